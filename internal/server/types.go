// Package server defines shared transport errors and utility helpers that
// are reused across client and handler logic.
package server

import (
	"errors"
	"strings"
)

var (
	// ErrClientClosed is returned by Client.Send once the client has
	// disconnected.
	ErrClientClosed = errors.New("client closed")

	// ErrSendBufferFull is returned by Client.Send when the client's outbound
	// buffer has no room left.
	ErrSendBufferFull = errors.New("send buffer full")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
