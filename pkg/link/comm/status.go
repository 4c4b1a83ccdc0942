package comm

import (
	"strings"
	"unicode/utf8"
)

const (
	// StatusKey is the only key read from inbound lines.
	StatusKey = "com_state"
	// StatusNone is reported when no status is available.
	StatusNone = "none"
)

// ParseStatus extracts the value of com_state from a line such as
// `{"com_state":"ready"}`. The line may be a fragment, only the first
// key/value pair is examined. StatusNone and an error matching
// ErrMalformedFrame are returned when nothing can be extracted.
func ParseStatus(line []byte) (string, error) {
	if !utf8.Valid(line) {
		return StatusNone, &FrameError{Reason: "invalid utf-8", Line: line}
	}
	s := string(line)
	colon := strings.IndexByte(s, ':')
	if colon < 0 {
		return StatusNone, &FrameError{Reason: "missing colon", Line: line}
	}
	quoted := strings.Split(s[:colon], `"`)
	if len(quoted) < 3 {
		return StatusNone, &FrameError{Reason: "unquoted key", Line: line}
	}
	if key := quoted[1]; key != StatusKey {
		return StatusNone, &FrameError{Reason: "unexpected key " + key, Line: line}
	}
	value := strings.TrimSpace(s[colon+1:])
	if strings.HasPrefix(value, `"`) {
		value = value[1:]
		if end := strings.IndexByte(value, '"'); end >= 0 {
			value = value[:end]
		} else {
			value = strings.TrimRight(value, "}\r\n \t")
		}
	} else if end := strings.IndexAny(value, ",}"); end >= 0 {
		value = value[:end]
	}
	if value = strings.TrimSpace(value); value == "" {
		return StatusNone, &FrameError{Reason: "empty value", Line: line}
	}
	return value, nil
}
