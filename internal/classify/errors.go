package classify

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no OpenAI API key is configured.
	ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable is required")

	// ErrMalformedResponse is returned when the model reply has no usable message.
	ErrMalformedResponse = errors.New("malformed classification response")

	// ErrEmptyDocument is returned when there is no text to classify.
	ErrEmptyDocument = errors.New("document has no text to classify")
)

// ClassificationError wraps errors with the operation and document that failed.
type ClassificationError struct {
	Op      string
	Err     error
	Details string
}

func (e *ClassificationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("classify: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("classify: %s failed: %v", e.Op, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}

func (e *ClassificationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapClassificationError wraps err unless it already is a ClassificationError.
func WrapClassificationError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var classErr *ClassificationError
	if errors.As(err, &classErr) {
		return err
	}

	return &ClassificationError{Op: op, Err: err, Details: details}
}
