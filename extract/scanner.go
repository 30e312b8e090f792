package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Qualifier is the only receiver name accepted in front of a .t(...) call.
const Qualifier = "i18n"

// Keys returns the static keys of every t(...) and i18n.t(...) call in text,
// in source order. Duplicates are kept; empty keys are not.
func Keys(text string) []string {
	var keys []string
	for i := 0; i < len(text); i++ {
		if text[i] != 't' || !callStart(text, i) {
			continue
		}
		if i+1 >= len(text) || text[i+1] != '(' {
			continue
		}
		key, end, ok := readLiteral(text, skipSpace(text, i+2))
		if !ok {
			continue
		}
		if key != "" {
			keys = append(keys, key)
		}
		i = end - 1
	}
	return keys
}

// callStart reports whether the 't' at i begins a call name: a bare t, the
// $t helper (this.$t as well), or the member of an i18n qualifier, which may
// itself end a member chain such as this.i18n.t.
func callStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	prev := text[i-1]
	if prev == '$' {
		return true
	}
	if isIdent(prev) {
		return false
	}
	if prev != '.' {
		return true
	}

	end := i - 1
	start := end
	for start > 0 && isIdent(text[start-1]) {
		start--
	}
	return text[start:end] == Qualifier
}

func isIdent(c byte) bool {
	return c == '_' || c == '$' ||
		c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c >= utf8.RuneSelf
}

func skipSpace(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// readLiteral decodes the string literal starting at i. It returns the
// decoded value and the index just past the closing quote. ok is false when
// there is no literal at i, the literal is unterminated, a quoted literal
// runs into a newline, or a template literal interpolates.
func readLiteral(text string, i int) (value string, end int, ok bool) {
	if i >= len(text) {
		return "", 0, false
	}
	quote := text[i]
	if quote != '\'' && quote != '"' && quote != '`' {
		return "", 0, false
	}

	var b strings.Builder
	for k := i + 1; k < len(text); k++ {
		c := text[k]
		switch {
		case c == quote:
			return b.String(), k + 1, true
		case c == '\n' && quote != '`':
			return "", 0, false
		case c == '$' && quote == '`' && k+1 < len(text) && text[k+1] == '{':
			return "", 0, false
		case c == '\\':
			k += unescape(text, k+1, &b)
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, false
}

// unescape decodes the escape sequence whose body starts at k (just after
// the backslash) into b and returns the number of bytes consumed.
func unescape(text string, k int, b *strings.Builder) int {
	if k >= len(text) {
		return 0
	}

	switch c := text[k]; c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\n':
		// line continuation
	case '\r':
		if k+1 < len(text) && text[k+1] == '\n' {
			return 2
		}
	case 'x':
		if k+3 <= len(text) {
			if v, err := strconv.ParseUint(text[k+1:k+3], 16, 8); err == nil {
				b.WriteRune(rune(v))
				return 3
			}
		}
		b.WriteByte(c)
	case 'u':
		if k+1 < len(text) && text[k+1] == '{' {
			if n := strings.IndexByte(text[k+2:], '}'); n > 0 {
				if v, err := strconv.ParseUint(text[k+2:k+2+n], 16, 32); err == nil {
					b.WriteRune(rune(v))
					return n + 3
				}
			}
		}
		if k+5 <= len(text) {
			if v, err := strconv.ParseUint(text[k+1:k+5], 16, 16); err == nil {
				b.WriteRune(rune(v))
				return 5
			}
		}
		b.WriteByte(c)
	default:
		// \' \" \\ \` and any other character stand for themselves.
		_, size := utf8.DecodeRuneInString(text[k:])
		b.WriteString(text[k : k+size])
		return size
	}
	return 1
}
