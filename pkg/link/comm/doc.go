// Package comm implements the framing between the host and the hand
// controller firmware.
//
// The host writes one JSON object per command:
//
//	{"command":"F","purpose":"grip","time":500}
//
// No terminator is appended, the firmware reads up to the closing brace.
//
// The firmware reports its state with one newline-terminated line such as
//
//	{"com_state":"ready"}
//
// The line is not guaranteed to be well-formed JSON, so only the value of
// com_state is extracted with a tolerant scan. Anything unparsable yields
// StatusNone, which callers treat as "no new status".
package comm
