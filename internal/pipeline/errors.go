package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrefix is returned when a folder stage is invoked without a prefix.
	ErrMissingPrefix = errors.New("folder prefix is required")

	// ErrMissingFile is returned when a file stage has no file or the file is not in staging.
	ErrMissingFile = errors.New("file is missing")

	// ErrNoDocuments is returned by intake when the folder holds no PDF files.
	ErrNoDocuments = errors.New("no PDF files found in the specified folder")

	// ErrNotConfigured is returned when a stage needs a collaborator that was not provided.
	ErrNotConfigured = errors.New("pipeline collaborator not configured")
)

// PipelineError wraps stage failures with the operation and subject.
type PipelineError struct {
	Op      string
	Err     error
	Details string
}

func (e *PipelineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("pipeline: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("pipeline: %s failed: %v", e.Op, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

func (e *PipelineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapPipelineError wraps err unless it already is a PipelineError.
func WrapPipelineError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var pErr *PipelineError
	if errors.As(err, &pErr) {
		return err
	}

	return &PipelineError{Op: op, Err: err, Details: details}
}
