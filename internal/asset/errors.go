package asset

import (
	"fmt"
	"strings"
)

// Error ties an admission failure to the source file that caused it.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ErrorList accumulates admission failures across a batch so one bad file
// does not hide the others.
type ErrorList []*Error

func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no asset errors"
	case 1:
		return l[0].Error()
	}
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.Error()
	}
	return fmt.Sprintf("%d asset errors: %s", len(l), strings.Join(parts, "; "))
}

// ErrOrNil returns the list as an error, or nil when it is empty.
func (l ErrorList) ErrOrNil() error {
	if len(l) == 0 {
		return nil
	}
	return l
}
