package http

import (
	"strings"
	"unicode"

	"golang.org/x/text/encoding/charmap"
)

type Request struct {
	Method  string
	Target  string
	Version string

	// Headers is keyed by lower-cased name. A repeated name keeps the last value.
	Headers map[string]string

	Body []byte
}

// HeaderValue looks a header up by name, case-insensitively.
func (req *Request) HeaderValue(name string) (string, bool) {
	v, found := req.Headers[strings.ToLower(name)]
	return v, found
}

// ContentLength resolves the declared body length. A missing header is 0.
func (req *Request) ContentLength() (int64, error) {
	v, found := req.Headers[headerContentLength]
	if !found {
		return 0, nil
	}

	n, err := parseContentLength(v)
	if err != nil {
		return 0, ErrInvalidContentLength
	}
	return n, nil
}

// ParseRequest parses the request line and header fields out of a header
// block. The body is left empty.
func ParseRequest(header []byte, sep LineSeparator) (*Request, error) {
	lines := strings.Split(decodeLatin1(header), sep.String())

	parts := strings.Fields(lines[0])
	req := Request{
		Headers: make(map[string]string, len(lines)-1),
	}
	switch len(parts) {
	case 3:
		req.Method, req.Target, req.Version = parts[0], parts[1], parts[2]
	case 2:
		req.Method, req.Target, req.Version = parts[0], parts[1], DefaultProtocol
	default:
		return nil, ErrMalformedRequestLine
	}
	req.Method = strings.ToUpper(req.Method)

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		// Bad header lines are skipped rather than failing the request.
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		req.Headers[strings.ToLower(strings.TrimSpace(name))] = strings.TrimLeftFunc(value, unicode.IsSpace)
	}

	return &req, nil
}

// decodeLatin1 maps every byte onto a rune, so it cannot fail.
func decodeLatin1(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(charmap.ISO8859_1.DecodeByte(c))
	}
	return sb.String()
}
