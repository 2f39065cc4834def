// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package http

const (
	StatusOK        uint16 = 200 // RFC 7231, 6.3.1
	StatusCreated   uint16 = 201 // RFC 7231, 6.3.2
	StatusNoContent uint16 = 204 // RFC 7231, 6.3.5

	StatusBadRequest            uint16 = 400 // RFC 7231, 6.5.1
	StatusForbidden             uint16 = 403 // RFC 7231, 6.5.3
	StatusNotFound              uint16 = 404 // RFC 7231, 6.5.4
	StatusMethodNotAllowed      uint16 = 405 // RFC 7231, 6.5.5
	StatusRequestEntityTooLarge uint16 = 413 // RFC 7231, 6.5.11

	StatusInternalServerError uint16 = 500 // RFC 7231, 6.6.1
)

var statusMessages = map[uint16]string{
	StatusOK:        "OK",
	StatusCreated:   "Created",
	StatusNoContent: "No Content",

	StatusBadRequest:            "Bad Request",
	StatusForbidden:             "Forbidden",
	StatusNotFound:              "Not Found",
	StatusMethodNotAllowed:      "Method Not Allowed",
	StatusRequestEntityTooLarge: "Payload Too Large",

	StatusInternalServerError: "Internal Server Error",
}

// StatusText returns the reason phrase used by handler responses.
func StatusText(status uint16) string {
	if msg, found := statusMessages[status]; found {
		return msg
	}
	return "Unknown Status Code"
}

// errorReason is the deliberately small table used for JSON error responses.
func errorReason(status uint16) string {
	switch status {
	case StatusBadRequest:
		return "Bad Request"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusRequestEntityTooLarge:
		return "Payload Too Large"
	case StatusInternalServerError:
		return "Internal Server Error"
	}
	return "Error"
}
