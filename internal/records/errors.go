package records

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity is returned for records without a claim number or file name.
	ErrMissingIdentity = errors.New("record is missing claimNumber or fileName")

	// ErrInvalidSheetURL is returned when a Google Sheets URL has no spreadsheet id.
	ErrInvalidSheetURL = errors.New("invalid Google Sheets URL format")
)

// RecordError wraps structured store failures.
type RecordError struct {
	Op      string
	Err     error
	Details string
}

func (e *RecordError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("records: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("records: %s failed: %v", e.Op, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapRecordError wraps err unless it already is a RecordError.
func WrapRecordError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var recErr *RecordError
	if errors.As(err, &recErr) {
		return err
	}

	return &RecordError{Op: op, Err: err, Details: details}
}
