package http

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrame(t *testing.T) {
	testCases := []struct {
		name      string
		chunks    []string
		header    string
		remainder string
		sep       LineSeparator
	}{
		{
			name:   "crlf",
			chunks: []string{"GET /x HTTP/1.1\r\nHost: h\r\n\r\n"},
			header: "GET /x HTTP/1.1\r\nHost: h",
			sep:    CRLF,
		},
		{
			name:   "lf",
			chunks: []string{"GET /x HTTP/1.1\nHost: h\n\n"},
			header: "GET /x HTTP/1.1\nHost: h",
			sep:    LF,
		},
		{
			name:      "body in same read",
			chunks:    []string{"POST /a\r\nContent-Length: 5\r\n\r\nhello"},
			header:    "POST /a\r\nContent-Length: 5",
			remainder: "hello",
			sep:       CRLF,
		},
		{
			name:      "terminator split across reads",
			chunks:    []string{"GET / HTTP/1.1\r\nA: b\r", "\n", "\r", "\nrest"},
			header:    "GET / HTTP/1.1\r\nA: b",
			remainder: "rest",
			sep:       CRLF,
		},
		{
			name:      "strict terminator wins over earlier lenient one",
			chunks:    []string{"GET / HTTP/1.1\nA: b\n\nX: y\r\n\r\nbody"},
			header:    "GET / HTTP/1.1\nA: b\n\nX: y",
			remainder: "body",
			sep:       CRLF,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn := newFakeConn(tc.chunks...)

			frame, err := ReadFrame(conn, time.Second, DefaultMaxHeaderBytes)
			require.NoError(t, err)

			assert.Equal(t, tc.header, string(frame.Header))
			assert.Equal(t, tc.remainder, string(frame.Remainder))
			assert.Equal(t, tc.sep, frame.Separator)
		})
	}
}

func TestReadFrameSetsHeaderDeadline(t *testing.T) {
	conn := newFakeConn("GET / HTTP/1.1\r\n\r\n")

	before := time.Now()
	_, err := ReadFrame(conn, 3*time.Second, DefaultMaxHeaderBytes)
	require.NoError(t, err)

	require.Len(t, conn.readDeadlines, 1)
	assert.WithinDuration(t, before.Add(3*time.Second), conn.readDeadlines[0], time.Second)
}

func TestReadFrameClosedBeforeData(t *testing.T) {
	conn := newFakeConn()

	_, err := ReadFrame(conn, time.Second, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Contains(t, err.Error(), "before sending any data")
}

func TestReadFrameClosedMidHeaders(t *testing.T) {
	conn := newFakeConn("GET / HTTP/1.1\r\nHost: h\r\n")

	_, err := ReadFrame(conn, time.Second, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Contains(t, err.Error(), "during headers")
}

func TestReadFrameHeaderTooLarge(t *testing.T) {
	huge := strings.Repeat("a", 70000)
	conn := newFakeConn(huge)

	_, err := ReadFrame(conn, time.Second, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)

	// Reading stops as soon as the cap is crossed.
	require.Len(t, conn.chunks, 1)
	assert.Less(t, len(conn.chunks[0]), 70000-DefaultMaxHeaderBytes+DefaultReadBufferSize)
}

func TestReadFrameHeaderTooLargeWithTerminator(t *testing.T) {
	chunks := make([]string, 0, 17)
	chunks = append(chunks, "GET / HTTP/1.1\r\nX-Fill: "+strings.Repeat("a", DefaultReadBufferSize-len("GET / HTTP/1.1\r\nX-Fill: ")))
	for i := 0; i < 15; i++ {
		chunks = append(chunks, strings.Repeat("a", DefaultReadBufferSize))
	}
	// The read that crosses the cap also ends the header section.
	chunks = append(chunks, "\r\nX-More: "+strings.Repeat("b", 3000)+"\r\n\r\n")

	conn := newFakeConn(chunks...)

	frame, err := ReadFrame(conn, time.Second, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
	assert.Empty(t, frame.Header)
	assert.Equal(t, 17, conn.reads)
}

func TestReadFrameHeaderAtCap(t *testing.T) {
	head := "GET / HTTP/1.1\r\nX-Fill: "
	msg := head + strings.Repeat("a", DefaultMaxHeaderBytes-len(head)-4) + "\r\n\r\n"
	require.Len(t, msg, DefaultMaxHeaderBytes)

	frame, err := ReadFrame(newFakeConn(msg), time.Second, DefaultMaxHeaderBytes)
	require.NoError(t, err)
	assert.Len(t, frame.Header, DefaultMaxHeaderBytes-4)
}

func TestReadFrameZeroByteRead(t *testing.T) {
	// An empty chunk makes the fake return (0, nil).
	conn := newFakeConn("GET / HTTP/1.1\r\n", "", "Host: h\r\n\r\n")

	_, err := ReadFrame(conn, time.Second, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Contains(t, err.Error(), "during headers")
	assert.Equal(t, 2, conn.reads)

	_, err = ReadFrame(newFakeConn(""), time.Second, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrConnectionClosed)
	assert.Contains(t, err.Error(), "before sending any data")
}

func TestReadFrameTimeout(t *testing.T) {
	conn := newFakeConn("GET / HTTP/1.1\r\n")
	conn.readErr = os.ErrDeadlineExceeded

	_, err := ReadFrame(conn, time.Millisecond, DefaultMaxHeaderBytes)
	assert.ErrorIs(t, err, ErrRequestTimeout)

	var httpErr *Error
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, StatusBadRequest, httpErr.Status)
}

func BenchmarkReadFrame(b *testing.B) {
	msg := "GET /test HTTP/1.1\r\nAccept: text/css\r\nConnection: keep-alive\r\nContent-Length: 0\r\n\r\n"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		conn := newFakeConn(msg)
		if _, err := ReadFrame(conn, 0, DefaultMaxHeaderBytes); err != nil {
			b.Error(err)
		}
	}
}
