package comm

import (
	"bytes"
	"io"
)

// MaxLineLength bounds the bytes buffered while waiting for a newline.
const MaxLineLength = 1024

// LineReader reads newline-terminated lines from a port whose Read
// returns (0, nil) when its read timeout expires. Partial lines are kept
// for the next call.
type LineReader struct {
	r   io.Reader
	buf []byte
	tmp []byte
}

// NewLineReader creates a LineReader.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{r: r, tmp: make([]byte, 256)}
}

// ReadLine returns the next line without the trailing newline.
// ErrNoLine is returned if a read times out first.
func (l *LineReader) ReadLine() ([]byte, error) {
	for {
		if pos := bytes.IndexByte(l.buf, '\n'); pos >= 0 {
			line := make([]byte, pos)
			copy(line, l.buf[:pos])
			l.buf = l.buf[pos+1:]
			return bytes.TrimSuffix(line, []byte{'\r'}), nil
		}
		if len(l.buf) > MaxLineLength {
			l.buf = nil
			return nil, ErrLineTooLong
		}
		n, err := l.r.Read(l.tmp)
		l.buf = append(l.buf, l.tmp[:n]...)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, ErrNoLine
		}
	}
}

// Reset drops buffered partial data.
func (l *LineReader) Reset() {
	l.buf = nil
}
