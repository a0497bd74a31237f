package memory

import (
	"errors"
	"fmt"
)

var (
	// ErrAccessorUnavailable is returned when no backend was supplied.
	ErrAccessorUnavailable = errors.New("memory accessor unavailable")
	// ErrReadFailed marks a failed or short transfer.
	ErrReadFailed = errors.New("remote read failed")
	// ErrNullPointer marks a required hop that resolved to zero.
	ErrNullPointer = errors.New("null remote pointer")
	// ErrBoundsExceeded marks a count or index that failed a sanity ceiling.
	ErrBoundsExceeded = errors.New("structural bounds exceeded")
	// ErrNotFound marks a well-formed traversal without a qualifying element.
	ErrNotFound = errors.New("not found")
)

// ReadError describes a failed transfer at a specific address.
type ReadError struct {
	Addr  Address
	Size  int
	Moved int
	Err   error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("read %d bytes at %s: %d transferred: %v", e.Size, e.Addr, e.Moved, e.Err)
	}
	return fmt.Sprintf("read %d bytes at %s: %d transferred", e.Size, e.Addr, e.Moved)
}

func (e *ReadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrReadFailed, e.Err}
	}
	return []error{ErrReadFailed}
}

// BoundsError reports which count tripped a ceiling.
type BoundsError struct {
	What  string
	Value int64
	Limit int64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s %d outside [0, %d]", e.What, e.Value, e.Limit)
}

func (e *BoundsError) Unwrap() error {
	return ErrBoundsExceeded
}

// CheckBounds returns a *BoundsError when v is negative or above limit.
func CheckBounds(what string, v, limit int64) error {
	if v < 0 || v > limit {
		return &BoundsError{What: what, Value: v, Limit: limit}
	}
	return nil
}
