package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupt marks an archive or member that could not be read.
	ErrCorrupt = errors.New("archive: corrupt entry")
	// ErrDepthExceeded marks a container nested deeper than Limits.MaxDepth.
	ErrDepthExceeded = errors.New("archive: nesting depth exceeded")
	// ErrSizeExceeded marks a member or input that inflates past its byte limit.
	ErrSizeExceeded = errors.New("archive: size limit exceeded")
)

// EntryError names the entry that failed and why.
type EntryError struct {
	// Path is the nesting chain of the failing entry, e.g. "in.zip!/EQ.xml".
	Path string
	// Err is one of ErrCorrupt, ErrDepthExceeded or ErrSizeExceeded.
	Err error
	// Cause is the underlying decoder error, if any.
	Cause error
}

func (e *EntryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v: %v", e.Path, e.Err, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *EntryError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// Reason returns a short label for metrics and reports.
func (e *EntryError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrDepthExceeded):
		return "depth"
	case errors.Is(e.Err, ErrSizeExceeded):
		return "size"
	default:
		return "corrupt"
	}
}
