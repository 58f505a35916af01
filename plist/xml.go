package plist

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"io"
	"math"
	"strconv"
	"strings"
)

const xmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
`

// UIDPrefix precedes the identifier of a UID written as a string leaf.
const UIDPrefix = "UID:"

// EncodeOption configures an Encoder.
type EncodeOption func(*Encoder)

// WithSortKeys controls whether dictionary keys are written sorted (the
// default) or in insertion order.
func WithSortKeys(sorted bool) EncodeOption {
	return func(e *Encoder) { e.sortKeys = sorted }
}

// Encoder writes values in the XML property-list form.
type Encoder struct {
	w        *bufio.Writer
	sortKeys bool
	level    int
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, opts ...EncodeOption) *Encoder {
	e := &Encoder{w: bufio.NewWriter(w), sortKeys: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EncodeXML returns the XML property-list form of v.
func EncodeXML(v Value, opts ...EncodeOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf, opts...).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes a complete document holding v. It fails only on a nil value
// or a write error; every value Decode produces is representable.
func (e *Encoder) Encode(v Value) error {
	if err := checkValues(v); err != nil {
		return err
	}
	e.level = 0
	e.w.WriteString(xmlHeader)
	e.writeValue(v)
	e.writeln("</plist>")
	return e.w.Flush()
}

// checkValues rejects nil entries up front so that a document is never left
// half written.
func checkValues(v Value) error {
	return Walk(v, func(_ []string, v Value) error {
		if v == nil {
			return ErrUnsupportedValue
		}
		return nil
	})
}

func (e *Encoder) writeValue(v Value) {
	switch t := v.(type) {
	case String:
		e.simple("string", string(t))
	case UID:
		e.simple("string", FormatUID(t))
	case Integer:
		e.simple("integer", t.String())
	case Real:
		e.simple("real", formatReal(float64(t)))
	case Boolean:
		if t {
			e.writeln("<true/>")
		} else {
			e.writeln("<false/>")
		}
	case Date:
		e.simple("date", t.Time.UTC().Format("2006-01-02T15:04:05Z"))
	case Data:
		e.writeData(t)
	case *Array:
		if t.Len() == 0 {
			e.writeln("<array/>")
			return
		}
		e.begin("array")
		for _, item := range t.Items {
			e.writeValue(item)
		}
		e.end("array")
	case *Dict:
		if t.Len() == 0 {
			e.writeln("<dict/>")
			return
		}
		keys := t.keys
		if e.sortKeys {
			keys = t.SortedKeys()
		}
		e.begin("dict")
		for _, k := range keys {
			e.simple("key", k)
			e.writeValue(t.vals[k])
		}
		e.end("dict")
	}
}

func (e *Encoder) writeData(b []byte) {
	e.begin("data")
	e.level--
	lineLen := 76 - 8*e.level
	if lineLen < 16 {
		lineLen = 16
	}
	chunk := (lineLen / 4) * 3
	for i := 0; i < len(b); i += chunk {
		j := min(i+chunk, len(b))
		e.writeln(base64.StdEncoding.EncodeToString(b[i:j]))
	}
	e.level++
	e.end("data")
}

func (e *Encoder) begin(tag string) {
	e.writeln("<" + tag + ">")
	e.level++
}

func (e *Encoder) end(tag string) {
	e.level--
	e.writeln("</" + tag + ">")
}

func (e *Encoder) simple(tag, text string) {
	e.writeln("<" + tag + ">" + escapeText(text) + "</" + tag + ">")
}

func (e *Encoder) writeln(line string) {
	for i := 0; i < e.level; i++ {
		e.w.WriteByte('\t')
	}
	e.w.WriteString(line)
	e.w.WriteByte('\n')
}

var textEscaper = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// escapeText escapes markup characters and folds line endings. Control
// characters that XML 1.0 cannot carry are replaced with U+FFFD.
func escapeText(s string) string {
	if strings.IndexFunc(s, isForbiddenControl) >= 0 {
		s = strings.Map(func(r rune) rune {
			if isForbiddenControl(r) {
				return '\uFFFD'
			}
			return r
		}, s)
	}
	return textEscaper.Replace(s)
}

func isForbiddenControl(r rune) bool {
	return r < 0x20 && r != '\t' && r != '\n' && r != '\r'
}

// formatReal renders f as the shortest round-tripping decimal, in fixed
// notation for exponents in [-4, 16) and scientific notation otherwise.
func formatReal(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == 0:
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	sign := ""
	if s[0] == '-' {
		sign, s = "-", s[1:]
	}
	mant, expPart, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expPart)
	digits := strings.Replace(mant, ".", "", 1)

	if exp >= -4 && exp < 16 {
		var intPart, frac string
		if exp >= 0 {
			if len(digits) <= exp+1 {
				intPart = digits + strings.Repeat("0", exp+1-len(digits))
				frac = "0"
			} else {
				intPart, frac = digits[:exp+1], digits[exp+1:]
			}
		} else {
			intPart, frac = "0", strings.Repeat("0", -exp-1)+digits
		}
		return sign + intPart + "." + frac
	}

	out := digits[:1]
	if len(digits) > 1 {
		out += "." + digits[1:]
	}
	expSign := "+"
	if exp < 0 {
		expSign, exp = "-", -exp
	}
	expDigits := strconv.Itoa(exp)
	if len(expDigits) < 2 {
		expDigits = "0" + expDigits
	}
	return sign + out + "e" + expSign + expDigits
}
