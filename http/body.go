package http

import (
	"fmt"
	"time"
)

// ReadBody completes a body of declared bytes. remainder holds the body bytes
// that arrived together with the headers; only the shortfall is read from
// conn, under the body timeout. Bytes past the declared length are dropped.
func ReadBody(conn DeadlineReader, declared int64, remainder []byte, timeout time.Duration) ([]byte, error) {
	if declared <= 0 {
		return []byte{}, nil
	}
	if int64(len(remainder)) >= declared {
		return remainder[:declared], nil
	}

	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}
	}

	// Grow with what actually arrives instead of trusting the declared size.
	body := make([]byte, len(remainder), min(declared, int64(len(remainder))+DefaultReadBufferSize))
	copy(body, remainder)

	chunk := make([]byte, DefaultReadBufferSize)
	for int64(len(body)) < declared {
		want := min(declared-int64(len(body)), int64(len(chunk)))
		n, err := conn.Read(chunk[:want])
		body = append(body, chunk[:n]...)
		if int64(len(body)) >= declared {
			break
		}
		if err != nil {
			err = classifyReadError(err)
			if err == ErrConnectionClosed {
				return nil, fmt.Errorf("%w while sending body", ErrConnectionClosed)
			}
			return nil, fmt.Errorf("reading body: %w", err)
		}
		if n == 0 {
			return nil, fmt.Errorf("%w while sending body", ErrConnectionClosed)
		}
	}

	return body, nil
}
