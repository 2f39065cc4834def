package http

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// Error is a protocol level failure that can be rendered as a response.
type Error struct {
	Status  uint16
	Message string
	Headers []HeaderField
}

func (e *Error) Error() string {
	return "http: " + errorReason(e.Status) + ": " + e.Message
}

var (
	ErrConnectionClosed = errors.New("http: connection closed by peer")
	ErrServerClosed     = errors.New("http: server closed")
	ErrAlreadyResponded = errors.New("http: response already sent")

	ErrRequestTimeout       = &Error{Status: StatusBadRequest, Message: "Request timeout"}
	ErrHeaderTooLarge       = &Error{Status: StatusBadRequest, Message: "Header section too large"}
	ErrMalformedRequestLine = &Error{Status: StatusBadRequest, Message: "Malformed request line"}
	ErrInvalidContentLength = &Error{Status: StatusBadRequest, Message: "Invalid Content-Length header"}
	ErrBodyTooLarge         = &Error{Status: StatusRequestEntityTooLarge, Message: "Payload too large"}
	ErrMethodNotAllowed     = &Error{
		Status:  StatusMethodNotAllowed,
		Message: "Allowed methods: " + AllowedMethods,
		Headers: []HeaderField{{Name: "Allow", Value: AllowedMethods}},
	}
	ErrInternal = &Error{Status: StatusInternalServerError, Message: "Internal Server Error"}
)

// classifyReadError maps a socket read failure onto the error taxonomy.
// Timeouts become ErrRequestTimeout, every flavour of peer disconnect becomes
// ErrConnectionClosed, anything else is returned untouched.
func classifyReadError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrRequestTimeout
	}

	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return ErrConnectionClosed
	}

	return err
}
