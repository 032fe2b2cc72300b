package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID is returned when an operation is addressed with an empty id.
	ErrInvalidID = errors.New("item id required")
	// ErrIDMismatch is returned when an update carries an id other than the
	// one it is addressed to.
	ErrIDMismatch = errors.New("item id does not match target")
)

// WriteError reports a store write or delete the store rejected.
type WriteError struct {
	Op  string
	ID  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s item %s: %v", e.Op, e.ID, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
