package extract

import "strings"

// TextFromContentStream pulls the literal strings shown by Tj, TJ, ' and "
// operators out of a decoded PDF page content stream. Text positioning
// operators that start a new line become newlines.
func TextFromContentStream(raw []byte) string {
	var out strings.Builder
	var pending []string
	s := string(raw)
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == '(':
			lit, next := readLiteral(s, i)
			pending = append(pending, lit)
			i = next
		case c == '%':
			for i < len(s) && s[i] != '\n' && s[i] != '\r' {
				i++
			}
		case isOperatorStart(c):
			j := i
			for j < len(s) && isOperatorChar(s[j]) {
				j++
			}
			op := s[i:j]
			switch op {
			case "Tj", "TJ":
				out.WriteString(strings.Join(pending, ""))
				pending = pending[:0]
			case "'", `"`:
				out.WriteByte('\n')
				out.WriteString(strings.Join(pending, ""))
				pending = pending[:0]
			case "Td", "TD", "T*", "ET":
				if out.Len() > 0 && !strings.HasSuffix(out.String(), "\n") {
					out.WriteByte('\n')
				}
				pending = pending[:0]
			default:
				pending = pending[:0]
			}
			i = j
		default:
			i++
		}
	}
	return strings.TrimSpace(out.String())
}

func isOperatorStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '\'' || c == '"'
}

func isOperatorChar(c byte) bool {
	return isOperatorStart(c) || c == '*'
}

// readLiteral decodes a balanced PDF literal string starting at s[start]=='('.
func readLiteral(s string, start int) (string, int) {
	var b strings.Builder
	depth := 0
	i := start
	for i < len(s) {
		c := s[i]
		switch c {
		case '\\':
			if i+1 >= len(s) {
				return b.String(), len(s)
			}
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '(', ')', '\\':
				b.WriteByte(e)
			default:
				if e >= '0' && e <= '7' {
					v, k := 0, 0
					for k < 3 && i < len(s) && s[i] >= '0' && s[i] <= '7' {
						v = v*8 + int(s[i]-'0')
						i++
						k++
					}
					b.WriteByte(byte(v))
					continue
				}
				b.WriteByte(e)
			}
		case '(':
			depth++
			if depth > 1 {
				b.WriteByte(c)
			}
		case ')':
			depth--
			if depth == 0 {
				return b.String(), i + 1
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
		i++
	}
	return b.String(), i
}
