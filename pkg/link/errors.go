package link

import (
	"errors"
	"fmt"
)

var (
	// ErrLinkUnavailable indicates no matching peripheral is present.
	ErrLinkUnavailable = errors.New("peripheral not found")
	// ErrNoLink indicates the operation needs an open connection.
	ErrNoLink = errors.New("not connected")
	// ErrNoRecord indicates SendStream is called before UpdateStream.
	ErrNoRecord = errors.New("no command to send")
	// ErrCircuitOpen indicates connecting is suspended after repeated failures.
	ErrCircuitOpen = errors.New("connect suspended after repeated failures")
)

// ConnectError is returned when all connect attempts failed.
type ConnectError struct {
	Port     string
	Attempts int
	Err      error
}

// Error implements error.
func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %q failed after %d attempt(s): %v", e.Port, e.Attempts, e.Err)
}

// Unwrap returns the last failure.
func (e *ConnectError) Unwrap() error {
	return e.Err
}

// TransportError is a read or write failure on an open connection.
type TransportError struct {
	Op   string
	Port string
	Err  error
}

// Error implements error.
func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Port, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}
