package agenda

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned when the same action is already in flight for a view.
	ErrBusy = errors.New("action already in progress")
	// ErrNoPendingDelete is returned when a delete is confirmed without a selection.
	ErrNoPendingDelete = errors.New("no event selected for deletion")
	// ErrEventNotLoaded is returned when an update targets an event that is not
	// part of the window on screen.
	ErrEventNotLoaded = errors.New("event is not in the displayed range")
)

// FetchError wraps a provider or transport failure for one calendar operation.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ValidationError reports a missing or malformed field. It is raised before
// any provider call.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func validation(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsFetch reports whether err is (or wraps) a FetchError.
func IsFetch(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
