package comm

import (
	"bytes"
	"encoding/json"
	"io"
)

// Record is a command sent to the firmware.
type Record struct {
	// Command is the letter or short token to execute.
	Command string `json:"command"`
	// Purpose is the current purpose of the application.
	Purpose string `json:"purpose"`
	// Time is how long to stay on this command before the next one.
	Time float64 `json:"time"`
}

// Bytes returns encoded bytes for sending. Text is not HTML escaped and
// no line terminator is appended.
func (r *Record) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// WriteTo implements io.WriterTo.
func (r *Record) WriteTo(w io.Writer) (int64, error) {
	b, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

// String returns the encoded form, for logging.
func (r *Record) String() string {
	b, err := r.Bytes()
	if err != nil {
		return err.Error()
	}
	return string(b)
}
