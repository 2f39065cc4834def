package http

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// LineSeparator is the line terminator a request was framed with. It is
// decided once, by whichever header terminator was found, and used to split
// every header line afterwards.
type LineSeparator uint8

const (
	CRLF LineSeparator = iota
	LF
)

func (sep LineSeparator) String() string {
	if sep == LF {
		return "\n"
	}
	return "\r\n"
}

// Frame is the header block of a request and whatever body bytes arrived in
// the same reads.
type Frame struct {
	Header    []byte
	Remainder []byte
	Separator LineSeparator
}

// DeadlineReader is the part of net.Conn the readers need.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// ReadFrame reads from conn until the end of the header section is seen.
// The buffer may never grow past maxHeaderBytes, even in the read that
// brings the terminator, and the whole phase must finish within timeout. A
// read of zero bytes counts as the peer closing.
func ReadFrame(conn DeadlineReader, timeout time.Duration, maxHeaderBytes int) (Frame, error) {
	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return Frame{}, err
		}
	}
	if maxHeaderBytes <= 0 {
		maxHeaderBytes = DefaultMaxHeaderBytes
	}

	buf := make([]byte, 0, DefaultReadBufferSize)
	chunk := make([]byte, DefaultReadBufferSize)

	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			// A terminator may straddle two reads.
			from := max(len(buf)-len(terminatorCRLF)+1, 0)
			buf = append(buf, chunk[:n]...)

			if len(buf) > maxHeaderBytes {
				return Frame{}, ErrHeaderTooLarge
			}
			if hasTerminator(buf[from:]) {
				return splitFrame(buf), nil
			}
			if err == nil {
				continue
			}
		}
		if err == nil {
			err = io.EOF
		}

		err = classifyReadError(err)
		if err == ErrConnectionClosed {
			if len(buf) == 0 {
				return Frame{}, fmt.Errorf("%w before sending any data", ErrConnectionClosed)
			}
			return Frame{}, fmt.Errorf("%w during headers", ErrConnectionClosed)
		}
		return Frame{}, fmt.Errorf("reading headers: %w", err)
	}
}

func hasTerminator(b []byte) bool {
	return bytes.Contains(b, terminatorCRLF) || bytes.Contains(b, terminatorLF)
}

// splitFrame prefers CRLFCRLF anywhere in buf over an earlier LFLF.
func splitFrame(buf []byte) Frame {
	if i := bytes.Index(buf, terminatorCRLF); i >= 0 {
		return Frame{
			Header:    buf[:i],
			Remainder: buf[i+len(terminatorCRLF):],
			Separator: CRLF,
		}
	}

	i := bytes.Index(buf, terminatorLF)
	return Frame{
		Header:    buf[:i],
		Remainder: buf[i+len(terminatorLF):],
		Separator: LF,
	}
}
