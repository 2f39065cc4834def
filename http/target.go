package http

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// SplitTarget breaks a request-target into its percent-decoded path and its
// query parameters. Absolute-form targets lose their scheme and authority;
// a fragment is ignored.
func SplitTarget(target string) (string, url.Values) {
	rest, _, _ := strings.Cut(target, "#")
	rest, rawQuery, _ := strings.Cut(rest, "?")

	if i := strings.IndexByte(rest, ':'); i > 0 && validScheme(rest[:i]) {
		rest = rest[i+1:]
	}
	if strings.HasPrefix(rest, "//") {
		rest = rest[2:]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[i:]
		} else {
			rest = ""
		}
	}

	return Unescape(rest), ParseQuery(rawQuery)
}

// ParseQuery parses form encoded pairs separated by '&'. Pairs without '='
// and pairs with an empty value are dropped. Repeated keys keep every value
// in order.
func ParseQuery(query string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found || value == "" {
			continue
		}
		key = Unescape(strings.ReplaceAll(key, "+", " "))
		value = Unescape(strings.ReplaceAll(value, "+", " "))
		values[key] = append(values[key], value)
	}
	return values
}

// Unescape decodes %XX escapes. Malformed escapes stay as they are and the
// decoded bytes are read as UTF-8 with invalid sequences replaced.
func Unescape(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, lo := hexToByte(s[i+1]), hexToByte(s[i+2])
			if hi != 255 && lo != 255 {
				buf = append(buf, hi<<4|lo)
				i += 2
				continue
			}
		}
		buf = append(buf, s[i])
	}
	return DecodeText(buf)
}

// DecodeText reads b as UTF-8, replacing invalid sequences with U+FFFD.
func DecodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	decoded, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), string(utf8.RuneError))
	}
	return string(decoded)
}

func validScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && ('0' <= c && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return s != ""
}
