package dataset

import (
	"errors"
	"fmt"
)

// ErrRejected is the sentinel every input rejection matches with errors.Is.
var ErrRejected = errors.New("dataset rejected")

// RejectError reports why an uploaded file cannot be analysed. Reason is
// safe to show to the caller.
type RejectError struct {
	Reason string
	Err    error
}

func (e *RejectError) Error() string { return e.Reason }

func (e *RejectError) Unwrap() error { return e.Err }

// Is makes every RejectError match ErrRejected.
func (e *RejectError) Is(target error) bool { return target == ErrRejected }

func reject(reason string, err error) error {
	return &RejectError{Reason: reason, Err: err}
}

// TooLarge builds the rejection returned when an upload exceeds limitMB.
func TooLarge(limitMB int64) error {
	return reject(fmt.Sprintf("File exceeds the maximum upload size of %d MB", limitMB), nil)
}
