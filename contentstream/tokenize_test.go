package contentstream

// tokenize splits a content stream into operand and operator tokens. Literal
// strings (with nested parentheses and escapes) and arrays stay single tokens.
func tokenize(src []byte) []string {
	var out []string
	for i := 0; i < len(src); {
		ch := src[i]
		switch {
		case isSpace(ch):
			i++
		case ch == '(':
			j := skipString(src, i)
			out = append(out, string(src[i:j]))
			i = j
		case ch == '[':
			j := i + 1
			for depth := 1; j < len(src) && depth > 0; j++ {
				switch src[j] {
				case '[':
					depth++
				case ']':
					depth--
				case '(':
					j = skipString(src, j) - 1
				}
			}
			out = append(out, string(src[i:j]))
			i = j
		default:
			j := i + 1
			for j < len(src) && !isSpace(src[j]) && src[j] != '(' && src[j] != '[' && src[j] != '/' {
				j++
			}
			out = append(out, string(src[i:j]))
			i = j
		}
	}
	return out
}

// operators returns only the operator tokens of src, in order.
func operators(src []byte) []string {
	var ops []string
	for _, tok := range tokenize(src) {
		if isOperator(tok) {
			ops = append(ops, tok)
		}
	}
	return ops
}

func skipString(src []byte, i int) int {
	depth := 0
	for j := i; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j + 1
			}
		}
	}
	return len(src)
}

func isOperator(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '\'' || c == '"'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t' || c == '\f' || c == 0
}
