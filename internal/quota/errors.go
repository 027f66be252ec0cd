package quota

import (
	"errors"
	"fmt"
)

// FetchError is a classified quota failure. Transient errors are worth
// retrying; everything else fails the fetch on the first attempt.
type FetchError struct {
	Err        error
	StatusCode int
	Transient  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("quota fetch failed (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("quota fetch failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a FetchError marked transient.
func IsTransient(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Transient
}

func transient(status int, err error) *FetchError {
	return &FetchError{Err: err, StatusCode: status, Transient: true}
}

func permanent(status int, err error) *FetchError {
	return &FetchError{Err: err, StatusCode: status}
}
