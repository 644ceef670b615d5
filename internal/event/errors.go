package event

import "fmt"

// UnsupportedEventError marks a well-formed runtime record whose type or
// action the daemon does not track. Callers skip these silently.
type UnsupportedEventError struct {
	kind   string
	action string
}

func NewUnsupportedEventError(kind, action string) *UnsupportedEventError {
	return &UnsupportedEventError{kind: kind, action: action}
}

func (e *UnsupportedEventError) Error() string {
	return fmt.Sprintf("unsupported event: type=%s action=%s", e.kind, e.action)
}

// MalformedEventError marks a runtime record that could not be decoded.
// Malformed records are counted and skipped, never fatal.
type MalformedEventError struct {
	line string
	err  error
}

func NewMalformedEventError(line string, err error) *MalformedEventError {
	return &MalformedEventError{line: line, err: err}
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event record %q: %v", e.line, e.err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.err
}
