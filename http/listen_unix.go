//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package http

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// control marks listening sockets as address reusable so a restarted server
// can bind while old connections sit in TIME_WAIT.
func (s *Server) control(network, address string, rc syscall.RawConn) error {
	var sockErr error
	err := rc.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		if sockErr == nil && s.ReusePort {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		}
	})
	if err != nil {
		return err
	}
	return sockErr
}
