package http

import (
	"context"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// RequestCtx is everything a handler gets for one connection: the parsed
// request, its decoded path, query and body text, and the live connection.
type RequestCtx struct {
	ID     uuid.UUID
	Conn   net.Conn
	Remote string

	Request Request
	Path    string
	Query   url.Values
	Body    string

	Logger  *slog.Logger
	Context context.Context

	writeTimeout time.Duration
	responded    bool
}

// Send writes res and closes the connection. Only the first call writes.
func (ctx *RequestCtx) Send(res *Response) error {
	return ctx.send(res.AppendTo(nil))
}

// SendError writes the JSON encoding of e and closes the connection.
func (ctx *RequestCtx) SendError(e *Error) error {
	return ctx.send(e.Encode())
}

// Responded reports whether a response went out on this connection.
func (ctx *RequestCtx) Responded() bool {
	return ctx.responded
}

func (ctx *RequestCtx) send(payload []byte) error {
	if ctx.responded {
		return ErrAlreadyResponded
	}
	ctx.responded = true

	if ctx.writeTimeout > 0 {
		_ = ctx.Conn.SetWriteDeadline(time.Now().Add(ctx.writeTimeout))
	}
	_, err := ctx.Conn.Write(payload)

	// Close never fails; teardown problems are logged by the conn itself.
	_ = ctx.Conn.Close()
	return err
}
