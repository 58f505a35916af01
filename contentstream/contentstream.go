// Package contentstream encodes page drawing operations into PDF content
// stream syntax and splits such streams back into tokens.
package contentstream

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/Schewwpid/note2PDF/ir/semantic"
)

// numberPrecision is the number of decimals kept for operands. At 300 DPI a
// device pixel is 0.24pt, so four decimals is far below visible error.
const numberPrecision = 4

// Encode serialises ops into content stream bytes, one operation per line.
func Encode(ops []semantic.Operation) []byte {
	if len(ops) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, op := range ops {
		for i, operand := range op.Operands {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(&buf, operand)
		}
		if len(op.Operands) > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// FormatNumber renders v in PDF real syntax (never exponent form).
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	scale := math.Pow(10, numberPrecision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		return "0"
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func writeOperand(buf *bytes.Buffer, op semantic.Operand) {
	switch v := op.(type) {
	case semantic.NumberOperand:
		buf.WriteString(FormatNumber(v.Value))
	case semantic.NameOperand:
		buf.WriteByte('/')
		buf.WriteString(v.Value)
	case semantic.StringOperand:
		buf.Write(EscapeString(v.Value))
	case semantic.ArrayOperand:
		buf.WriteByte('[')
		for i, it := range v.Values {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeOperand(buf, it)
		}
		buf.WriteByte(']')
	default:
		buf.WriteString("null")
	}
}

// EscapeString renders raw bytes as a PDF literal string.
func EscapeString(rawBytes []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, ch := range rawBytes {
		switch ch {
		case '\\', '(', ')':
			b.WriteByte('\\')
			b.WriteByte(ch)
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		case '\b':
			b.WriteString("\\b")
		case '\f':
			b.WriteString("\\f")
		default:
			if ch < 0x20 || ch >= 0x80 {
				fmt.Fprintf(&b, "\\%03o", ch)
			} else {
				b.WriteByte(ch)
			}
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}
