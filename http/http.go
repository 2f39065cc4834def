package http

import "time"

const (
	DefaultReadBufferSize = 4096

	DefaultMaxHeaderBytes = 64 * 1024
	DefaultHeaderTimeout  = 3 * time.Second
	DefaultBodyTimeout    = 30 * time.Second

	DefaultProtocol = "HTTP/1.1"

	// AllowedMethods is advertised in the Allow header of 405 responses.
	AllowedMethods = "GET, POST, PUT, PATCH, DELETE"
)

const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
)

var (
	terminatorCRLF = []byte("\r\n\r\n")
	terminatorLF   = []byte("\n\n")
	crlf           = []byte("\r\n")
	headerSep      = []byte(": ")

	headerContentLength = "content-length"
)

// HeaderField is a single response header line. Order is preserved on the wire.
type HeaderField struct {
	Name  string
	Value string
}
