package archive

import "fmt"

// FormatError reports a structurally invalid archive. The path is the
// archive-internal entry when one is implicated.
type FormatError struct {
	Entry  string
	Reason string
}

func (e *FormatError) Error() string {
	if e.Entry == "" {
		return "archive format: " + e.Reason
	}
	return fmt.Sprintf("archive format: %s: %s", e.Entry, e.Reason)
}

func formatErrorf(entry, format string, args ...any) *FormatError {
	return &FormatError{Entry: entry, Reason: fmt.Sprintf(format, args...)}
}
