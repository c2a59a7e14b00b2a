package parser

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/runenames"
)

// stringPrefix returns the literal prefix letters (r, b, u, f) of a string token
func stringPrefix(raw string) string {
	for i, r := range raw {
		if r == '"' || r == '\'' {
			return raw[:i]
		}
	}
	return ""
}

// stringLiteralValue returns the value of a str or bytes token: prefix and
// quotes stripped, escape sequences decoded unless the literal is raw
func stringLiteralValue(raw string) string {
	prefix := strings.ToLower(stringPrefix(raw))
	s := raw[len(prefix):]
	for _, quote := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(quote) && strings.HasPrefix(s, quote) && strings.HasSuffix(s, quote) {
			s = s[len(quote) : len(s)-len(quote)]
			break
		}
	}
	if strings.Contains(prefix, "r") {
		return s
	}
	return decodeEscapes(s, strings.Contains(prefix, "b"))
}

var simpleEscapes = map[byte]byte{
	'\\': '\\', '\'': '\'', '"': '"',
	'a': '\a', 'b': '\b', 'f': '\f', 'n': '\n', 'r': '\r', 't': '\t', 'v': '\v',
}

// decodeEscapes decodes backslash escapes the way CPython does for str and
// bytes literals. Unknown or malformed escapes are kept as written.
func decodeEscapes(s string, isBytes bool) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var out strings.Builder
	out.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			out.WriteByte(s[i])
			continue
		}

		c := s[i+1]
		if r, ok := simpleEscapes[c]; ok {
			out.WriteByte(r)
			i++
			continue
		}

		switch {
		case c == '\n':
			i++
		case c == '\r':
			i++
			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		case c >= '0' && c <= '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			v, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			writeCodePoint(&out, rune(v), isBytes)
			i = j - 1
		case c == 'x':
			if v, ok := hexDigits(s, i+2, 2); ok {
				writeCodePoint(&out, rune(v), isBytes)
				i += 3
				continue
			}
			out.WriteByte(s[i])
		case !isBytes && (c == 'u' || c == 'U'):
			width := 4
			if c == 'U' {
				width = 8
			}
			if v, ok := hexDigits(s, i+2, width); ok && v <= unicode.MaxRune {
				out.WriteRune(rune(v))
				i += 1 + width
				continue
			}
			out.WriteByte(s[i])
		case !isBytes && c == 'N' && i+2 < len(s) && s[i+2] == '{':
			end := strings.IndexByte(s[i+3:], '}')
			if end < 0 {
				out.WriteByte(s[i])
				continue
			}
			if r, ok := lookupRuneName(s[i+3 : i+3+end]); ok {
				out.WriteRune(r)
				i += 3 + end
				continue
			}
			out.WriteByte(s[i])
		default:
			out.WriteByte(s[i])
		}
	}
	return out.String()
}

func hexDigits(s string, start, width int) (uint64, bool) {
	if start+width > len(s) {
		return 0, false
	}
	v, err := strconv.ParseUint(s[start:start+width], 16, 32)
	return v, err == nil
}

// writeCodePoint writes an escaped code point: a raw byte in bytes
// literals, UTF-8 in str literals
func writeCodePoint(out *strings.Builder, v rune, isBytes bool) {
	if isBytes {
		out.WriteByte(byte(v))
		return
	}
	if !utf8.ValidRune(v) {
		v = utf8.RuneError
	}
	out.WriteRune(v)
}

var (
	runeNamesOnce sync.Once
	runeNames     map[string]rune
)

// lookupRuneName resolves the name of a \N{...} escape, case-insensitively
func lookupRuneName(name string) (rune, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if hex, ok := strings.CutPrefix(name, "CJK UNIFIED IDEOGRAPH-"); ok {
		v, err := strconv.ParseUint(hex, 16, 32)
		return rune(v), err == nil && unicode.Is(unicode.Ideographic, rune(v))
	}

	runeNamesOnce.Do(func() {
		runeNames = make(map[string]rune)
		for r := rune(0); r <= unicode.MaxRune; r++ {
			if n := runenames.Name(r); n != "" && n[0] != '<' {
				runeNames[n] = r
			}
		}
	})
	r, ok := runeNames[name]
	return r, ok
}
