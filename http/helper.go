package http

import (
	"errors"
	"math"
	"strings"
)

var errInvalidNumber = errors.New("invalid number")

// parseContentLength accepts an optionally signed decimal surrounded by
// whitespace. Negative values and anything non-numeric are rejected.
func parseContentLength(s string) (int64, error) {
	b := strings.TrimSpace(s)
	if b == "" {
		return 0, errInvalidNumber
	}

	negative := false
	switch b[0] {
	case '-':
		negative = true
		b = b[1:]
	case '+':
		b = b[1:]
	}
	if b == "" {
		return 0, errInvalidNumber
	}

	var n int64
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, errInvalidNumber
		}
		d := int64(c - '0')
		if n > (math.MaxInt64-d)/10 {
			return 0, errInvalidNumber
		}
		n = n*10 + d
	}

	if negative && n != 0 {
		return 0, errInvalidNumber
	}
	return n, nil
}

func hexToByte(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 255 // Invalid hex
}
