package pipeline

import (
	"errors"
	"fmt"
)

// Precondition errors. They block a batch before any work starts.
var (
	ErrNotReady          = errors.New("face detector is not ready")
	ErrAlreadyProcessing = errors.New("still processing the previous batch")
)

// Per-file stage errors
var (
	ErrFileRead    = errors.New("file read failed")
	ErrImageDecode = errors.New("image decode failed")
	ErrDetector    = errors.New("face detection failed")
	ErrEncode      = errors.New("image encode failed")
)

// FileError reports the failure of one file of a batch. It unwraps to both
// the stage error (ErrFileRead, ErrImageDecode, ...) and the cause.
type FileError struct {
	Index int
	Name  string
	Stage Stage
	Kind  error
	Err   error
}

func (e *FileError) Error() string {
	if e.Kind != nil {
		return fmt.Sprintf("%s: %v: %v", e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Name, e.Stage, e.Err)
}

func (e *FileError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
