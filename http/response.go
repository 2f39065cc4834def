package http

import (
	"strconv"
	"strings"
)

// Encode renders the error as a complete response: a JSON body of the form
// {"error":"<message>"} framed with CRLF line endings. The message is not
// escaped. Extra headers on the error override the defaults.
func (e *Error) Encode() []byte {
	return AppendError(nil, e)
}

// AppendError appends the encoding of e to dst. A nil error encodes as
// ErrInternal.
func AppendError(dst []byte, e *Error) []byte {
	if e == nil {
		e = ErrInternal
	}

	body := `{"error":"` + e.Message + `"}`
	headers := mergeHeaders([]HeaderField{
		{Name: "Content-Type", Value: "application/json; charset=utf-8"},
		{Name: "Content-Length", Value: strconv.Itoa(len(body))},
		{Name: "Connection", Value: "close"},
	}, e.Headers)

	dst = appendStatusLine(dst, e.Status, errorReason(e.Status))
	dst = appendHeaders(dst, headers)
	dst = append(dst, crlf...)
	return append(dst, body...)
}

// Response is a complete response written by a handler. It is always sent
// with an exact Content-Length and Connection: close.
type Response struct {
	Status  uint16
	Headers []HeaderField
	Body    []byte
}

func NewResponse() *Response {
	return &Response{Status: StatusOK}
}

func (res *Response) WithStatus(status uint16) *Response {
	res.Status = status
	return res
}

// WithHeader sets a header, replacing any earlier value of the same name.
func (res *Response) WithHeader(name, value string) *Response {
	res.Headers = mergeHeaders(res.Headers, []HeaderField{{Name: name, Value: value}})
	return res
}

func (res *Response) WithText(payload string) *Response {
	return res.WithBody("text/plain; charset=utf-8", []byte(payload))
}

func (res *Response) WithBody(contentType string, body []byte) *Response {
	res.Body = body
	return res.WithHeader("Content-Type", contentType)
}

func (res *Response) AppendTo(dst []byte) []byte {
	status := res.Status
	if status == 0 {
		status = StatusOK
	}

	headers := mergeHeaders(res.Headers, []HeaderField{
		{Name: "Content-Length", Value: strconv.Itoa(len(res.Body))},
		{Name: "Connection", Value: "close"},
	})

	dst = appendStatusLine(dst, status, StatusText(status))
	dst = appendHeaders(dst, headers)
	dst = append(dst, crlf...)
	return append(dst, res.Body...)
}

func appendStatusLine(dst []byte, status uint16, reason string) []byte {
	dst = append(dst, DefaultProtocol...)
	dst = append(dst, ' ')
	dst = strconv.AppendUint(dst, uint64(status), 10)
	dst = append(dst, ' ')
	dst = append(dst, reason...)
	return append(dst, crlf...)
}

func appendHeaders(dst []byte, headers []HeaderField) []byte {
	for _, h := range headers {
		dst = append(dst, h.Name...)
		dst = append(dst, headerSep...)
		dst = append(dst, h.Value...)
		dst = append(dst, crlf...)
	}
	return dst
}

// mergeHeaders layers overrides on top of base. A header already present in
// base keeps its position and takes the new value.
func mergeHeaders(base, overrides []HeaderField) []HeaderField {
	merged := make([]HeaderField, len(base), len(base)+len(overrides))
	copy(merged, base)

next:
	for _, o := range overrides {
		for i := range merged {
			if strings.EqualFold(merged[i].Name, o.Name) {
				merged[i].Value = o.Value
				continue next
			}
		}
		merged = append(merged, o)
	}
	return merged
}
