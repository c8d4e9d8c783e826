package protocol

import "errors"

var (
	// ErrNotConnected is returned when a command is submitted before the
	// connection is open, or after it went down.
	ErrNotConnected = errors.New("not connected")
	// ErrCommandFailed is returned when the server answers with a status
	// other than OK. The error message carries the full server line.
	ErrCommandFailed = errors.New("command failed")
	// ErrConnectionClosed rejects the commands left pending when the
	// connection is lost.
	ErrConnectionClosed = errors.New("connection closed")
)
