package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrJobFailed is returned when the provider reports the job as failed.
	ErrJobFailed = errors.New("OCR job failed")

	// ErrJobTimeout is returned when a job is still running after the last poll attempt.
	ErrJobTimeout = errors.New("OCR job did not complete in time")

	// ErrJobNotFound is returned for an unknown job id.
	ErrJobNotFound = errors.New("OCR job not found")

	// ErrUnsupportedFormat is returned for documents the provider cannot analyze.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when required provider settings are missing.
	ErrInvalidConfiguration = errors.New("invalid OCR provider configuration")

	// ErrMalformedOutput is returned when job output cannot be decoded.
	ErrMalformedOutput = errors.New("malformed OCR output")
)

// OCRError records the provider operation that failed and the job or
// document it was working on.
type OCRError struct {
	Op      string
	Err     error
	Details string
}

func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

func (e *OCRError) Unwrap() error {
	return e.Err
}

func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapOCRError wraps err unless it already is an OCRError. Sentinels such as
// ErrJobTimeout stay reachable through errors.Is.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err
	}

	return &OCRError{Op: op, Err: err, Details: details}
}
