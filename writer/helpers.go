package writer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"golang.org/x/text/encoding/unicode"

	"github.com/Schewwpid/note2PDF/contentstream"
	"github.com/Schewwpid/note2PDF/ir/raw"
	"github.com/Schewwpid/note2PDF/ir/semantic"
)

func pdfVersion(cfg Config) string {
	if cfg.Version == "" {
		return string(PDF17)
	}
	return string(cfg.Version)
}

func flateEncode(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// stream builds a stream object, compressing data when the config asks for
// it and no filter has been applied already.
func stream(dict *raw.Dict, data []byte, preFilter string, cfg Config) (*raw.Stream, error) {
	switch {
	case preFilter != "":
		dict.Set("Filter", raw.Name(preFilter))
	case cfg.Compression != 0 && len(data) > 0:
		enc, err := flateEncode(data, cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("flate: %w", err)
		}
		data = enc
		dict.Set("Filter", raw.Name("FlateDecode"))
	}
	dict.Set("Length", raw.Integer(len(data)))
	return raw.NewStream(dict, data), nil
}

var utf16BOM = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// textString encodes s as a PDF text string: PDFDocEncoding-compatible
// ASCII stays literal, anything else becomes UTF-16BE with a BOM.
func textString(s string) raw.String {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			b, err := utf16BOM.NewEncoder().Bytes([]byte(s))
			if err != nil {
				break
			}
			return raw.HexStr(b)
		}
	}
	return raw.Str([]byte(s))
}

func rectArray(r semantic.Rectangle) *raw.Array {
	return raw.NewArray(
		raw.Real(r.LLX),
		raw.Real(r.LLY),
		raw.Real(r.URX),
		raw.Real(r.URY),
	)
}

func encodeWidths(widths []int) *raw.Array {
	arr := raw.NewArray()
	for _, w := range widths {
		arr.Append(raw.Integer(w))
	}
	return arr
}

func serializeContentStream(cs semantic.ContentStream) []byte {
	if len(cs.RawBytes) > 0 {
		return cs.RawBytes
	}
	return contentstream.Encode(cs.Operations)
}

func serializePrimitive(o raw.Object) []byte {
	return appendObject(nil, o)
}

func appendObject(b []byte, o raw.Object) []byte {
	switch v := o.(type) {
	case raw.Name:
		return append(append(b, '/'), pdfNameLiteral(string(v))...)
	case raw.Integer:
		return strconv.AppendInt(b, int64(v), 10)
	case raw.Real:
		return append(b, contentstream.FormatNumber(float64(v))...)
	case raw.Bool:
		return strconv.AppendBool(b, bool(v))
	case raw.String:
		if v.Hex {
			return append(append(append(b, '<'), strings.ToUpper(hex.EncodeToString(v.Bytes))...), '>')
		}
		return append(b, contentstream.EscapeString(v.Bytes)...)
	case raw.ObjectRef:
		return fmt.Appendf(b, "%d %d R", v.Num, v.Gen)
	case *raw.Array:
		b = append(b, '[')
		for i, it := range v.Items {
			if i > 0 {
				b = append(b, ' ')
			}
			b = appendObject(b, it)
		}
		return append(b, ']')
	case *raw.Dict:
		b = append(b, "<<"...)
		for _, k := range v.Keys() {
			val, _ := v.Get(k)
			b = append(append(append(b, '/'), pdfNameLiteral(k)...), ' ')
			b = appendObject(b, val)
		}
		return append(b, ">>"...)
	case *raw.Stream:
		b = appendObject(b, v.Dict)
		b = append(b, "\nstream\n"...)
		b = append(b, v.Data...)
		return append(b, "\nendstream"...)
	default:
		return append(b, "null"...)
	}
}

func pdfNameLiteral(value string) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') || ch == '-' || ch == '_' || ch == '.' || ch == '+' || ch == '*' {
			b.WriteByte(ch)
			continue
		}
		fmt.Fprintf(&b, "#%02X", ch)
	}
	return b.String()
}
