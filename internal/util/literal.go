package util

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// DecodeLiteral decodes a Python-style literal (dicts, lists, tuples,
// strings in either quote style, True/False/None) into JSON-shaped values.
// Repeated dict keys keep the last value.
func DecodeLiteral(src string) (any, error) {
	text, err := LiteralToJSON(src)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, errors.Wrap(err, "decode literal")
	}
	return v, nil
}

// LiteralToJSON rewrites a Python-style literal as JSON text. Strings are
// re-encoded after their backslash escapes are resolved, tuples become
// arrays and trailing commas are dropped. Structure is not validated here;
// json.Unmarshal does that.
func LiteralToJSON(src string) (string, error) {
	var b strings.Builder
	b.Grow(len(src))

	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case isSpace(c):
			b.WriteByte(c)
			i++
		case c == '{' || c == '}' || c == '[' || c == ']' || c == ':':
			b.WriteByte(c)
			i++
		case c == '(':
			b.WriteByte('[')
			i++
		case c == ')':
			b.WriteByte(']')
			i++
		case c == ',':
			if next := nextSignificant(src, i+1); next != '}' && next != ']' && next != ')' {
				b.WriteByte(c)
			}
			i++
		case c == '\'' || c == '"':
			s, n, err := readString(src[i:], false)
			if err != nil {
				return "", errors.Wrapf(err, "offset %d", i)
			}
			writeJSONString(&b, s)
			i += n
		case isDigit(c) || c == '-' || c == '+' || c == '.':
			n := scanNumber(src[i:])
			num, err := jsonNumber(src[i : i+n])
			if err != nil {
				return "", errors.Wrapf(err, "offset %d", i)
			}
			b.WriteString(num)
			i += n
		case isIdentStart(c):
			n := scanIdent(src[i:])
			word := src[i : i+n]
			switch word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				raw, ok := stringPrefix(word)
				if !ok || i+n >= len(src) || (src[i+n] != '\'' && src[i+n] != '"') {
					return "", errors.Newf("unexpected name %q at offset %d", word, i)
				}
				s, m, err := readString(src[i+n:], raw)
				if err != nil {
					return "", errors.Wrapf(err, "offset %d", i)
				}
				writeJSONString(&b, s)
				n += m
			}
			i += n
		default:
			return "", errors.Newf("unexpected %q at offset %d", c, i)
		}
	}
	return b.String(), nil
}

// readString reads a quoted string at the start of s and returns its value
// and the number of bytes consumed, closing quote included.
func readString(s string, raw bool) (string, int, error) {
	quote := s[0]
	var out strings.Builder
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == quote:
			return out.String(), i + 1, nil
		case c == '\\' && i+1 < len(s):
			if raw {
				// raw strings keep the backslash, but it still protects a quote
				out.WriteByte(c)
				out.WriteByte(s[i+1])
				i++
				continue
			}
			n, err := writeEscape(&out, s[i+1:])
			if err != nil {
				return "", 0, err
			}
			i += n
		default:
			out.WriteByte(c)
		}
	}
	return "", 0, errors.New("unterminated string")
}

// writeEscape resolves the escape whose body starts at rest[0] and returns
// how many bytes of rest it used
func writeEscape(out *strings.Builder, rest string) (int, error) {
	switch e := rest[0]; e {
	case '\\', '\'', '"':
		out.WriteByte(e)
	case 'n':
		out.WriteByte('\n')
	case 't':
		out.WriteByte('\t')
	case 'r':
		out.WriteByte('\r')
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case 'v':
		out.WriteByte('\v')
	case 'a':
		out.WriteByte('\a')
	case '\n':
		// line continuation
	case 'x':
		return writeCodePoint(out, rest, 2)
	case 'u':
		return writeCodePoint(out, rest, 4)
	case 'U':
		return writeCodePoint(out, rest, 8)
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 1
		for n < 3 && n < len(rest) && rest[n] >= '0' && rest[n] <= '7' {
			n++
		}
		v, _ := strconv.ParseUint(rest[:n], 8, 32)
		out.WriteRune(rune(v))
		return n, nil
	default:
		// unknown escapes are kept as written
		out.WriteByte('\\')
		out.WriteByte(e)
	}
	return 1, nil
}

// writeCodePoint decodes a \x, \u or \U escape with digits hex digits.
// A \u surrogate pair is joined into one rune.
func writeCodePoint(out *strings.Builder, rest string, digits int) (int, error) {
	if len(rest) < 1+digits {
		return 0, errors.Newf("truncated \\%c escape", rest[0])
	}
	v, err := strconv.ParseUint(rest[1:1+digits], 16, 32)
	if err != nil {
		return 0, errors.Newf("invalid \\%c escape %q", rest[0], rest[1:1+digits])
	}
	r := rune(v)
	used := 1 + digits

	if utf16.IsSurrogate(r) && len(rest) >= used+6 && rest[used] == '\\' && rest[used+1] == 'u' {
		if lo, err := strconv.ParseUint(rest[used+2:used+6], 16, 32); err == nil {
			if joined := utf16.DecodeRune(r, rune(lo)); joined != utf8.RuneError {
				out.WriteRune(joined)
				return used + 6, nil
			}
		}
	}
	out.WriteRune(r)
	return used, nil
}

func writeJSONString(b *strings.Builder, s string) {
	// marshalling a string cannot fail
	data, _ := json.Marshal(s)
	b.Write(data)
}

// jsonNumber normalizes a Python numeric literal: underscores, a leading
// plus and bare leading or trailing dots are not valid JSON
func jsonNumber(tok string) (string, error) {
	clean := strings.TrimPrefix(strings.ReplaceAll(tok, "_", ""), "+")
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return "", errors.Newf("invalid number %q", tok)
	}
	if !strings.ContainsAny(clean, ".eE") {
		if n, err := strconv.ParseInt(clean, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}

// stringPrefix reports whether word is a string prefix such as u or r, and
// whether it makes the string raw
func stringPrefix(word string) (raw bool, ok bool) {
	switch strings.ToLower(word) {
	case "u", "b":
		return false, true
	case "r", "br", "rb":
		return true, true
	}
	return false, false
}

func nextSignificant(s string, i int) byte {
	for ; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}

func scanNumber(s string) int {
	n := 0
	for n < len(s) {
		c := s[n]
		if isDigit(c) || c == '.' || c == '_' || c == 'e' || c == 'E' {
			n++
			continue
		}
		// signs lead the literal or follow an exponent marker
		if (c == '-' || c == '+') && (n == 0 || s[n-1] == 'e' || s[n-1] == 'E') {
			n++
			continue
		}
		break
	}
	return n
}

func scanIdent(s string) int {
	n := 0
	for n < len(s) && (isIdentStart(s[n]) || isDigit(s[n])) {
		n++
	}
	return n
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
