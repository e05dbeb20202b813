package imports

import (
	"errors"
	"fmt"
)

var (
	// ErrFetchFailed marks an import target that could not be retrieved or parsed.
	ErrFetchFailed = errors.New("imports: fetch failed")
	// ErrNoConstraints is returned when no root document could be resolved.
	ErrNoConstraints = errors.New("imports: no constraint document resolved")
)

// FetchError records why one import target failed.
type FetchError struct {
	Target string
	// Status is the HTTP status for remote targets, 0 otherwise.
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("imports: fetch %s: status %d: %v", e.Target, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("imports: fetch %s: status %d", e.Target, e.Status)
	default:
		return fmt.Sprintf("imports: fetch %s: %v", e.Target, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrFetchFailed.
func (e *FetchError) Is(target error) bool { return target == ErrFetchFailed }

func asFetchError(target string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Target: target, Err: err}
}
