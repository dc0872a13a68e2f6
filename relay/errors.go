package relay

import (
	"errors"
	"fmt"
)

// ErrRunInProgress is returned when a run is triggered while another is active.
var ErrRunInProgress = errors.New("a relay run is already in progress")

// TransportError wraps a failed Discord or blob storage call. It is never retried.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return &TransportError{Op: op, Err: err}
}

// PostError records which post and step failed, so a run can be resumed by hand.
type PostError struct {
	PostID     string
	BusinessID string
	Step       string
	Err        error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post %s (%s) failed at %s: %v", e.PostID, e.BusinessID, e.Step, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }
