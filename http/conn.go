package http

import (
	"errors"
	"log/slog"
	"net"
	"sync"
)

type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// conn shuts a connection down in both directions and closes it exactly
// once, however many times Close is called. Teardown failures are logged and
// never returned.
type conn struct {
	net.Conn

	logger *slog.Logger
	once   sync.Once
}

func newConn(c net.Conn, logger *slog.Logger) *conn {
	return &conn{Conn: c, logger: logger}
}

func (c *conn) Close() error {
	c.once.Do(c.teardown)
	return nil
}

func (c *conn) teardown() {
	if hc, ok := c.Conn.(halfCloser); ok {
		if err := hc.CloseWrite(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Debug("shutdown write side", "error", err)
		}
		if err := hc.CloseRead(); err != nil && !errors.Is(err, net.ErrClosed) {
			c.logger.Debug("shutdown read side", "error", err)
		}
	}

	if err := c.Conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		c.logger.Error("closing connection error", "error", err)
	}
}
