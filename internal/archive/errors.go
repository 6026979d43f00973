package archive

import (
	"errors"
	"fmt"
)

// ErrNotFound reports that a path or session does not exist in the
// archive. Handlers map it to a 404.
var ErrNotFound = errors.New("not found")

// SecurityError reports a user-supplied path that would resolve
// outside the archive root, or a filename with a forbidden component.
// It is always raised before any filesystem mutation.
type SecurityError struct {
	Path string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("path escapes archive root: %q", e.Path)
}

// ParseError reports a JSONL line that is not valid JSON. It carries
// the 0-based session index and a bounded excerpt of the offending
// text for diagnosis.
type ParseError struct {
	Line    int
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf(
		"line %d is not valid JSON: %q", e.Line, e.Excerpt,
	)
}
