package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNoLine indicates the read timed out before a complete line arrived.
	ErrNoLine = errors.New("no complete line")
	// ErrLineTooLong indicates more than MaxLineLength bytes without a newline.
	ErrLineTooLong = errors.New("line too long")
)

// ErrMalformedFrame is matched by every *FrameError.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameError describes why an inbound line could not be parsed.
type FrameError struct {
	Reason string
	Line   []byte
}

// Error implements error.
func (e *FrameError) Error() string {
	return fmt.Sprintf("malformed frame (%s): %q", e.Reason, e.Line)
}

// Is matches ErrMalformedFrame.
func (e *FrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}
