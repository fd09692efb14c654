package ocr

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"intake/internal/logger"
)

// PollConfig bounds the wait for an OCR job.
type PollConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPollConfig polls every 10 seconds for up to 30 attempts.
func DefaultPollConfig() PollConfig {
	return PollConfig{MaxAttempts: 30, Delay: 10 * time.Second}
}

// WaitForCompletion polls the job until it succeeds, fails or runs out of
// attempts. Transient poll errors count as an attempt and are retried;
// permanent gRPC errors end the wait at once.
func WaitForCompletion(ctx context.Context, p Provider, jobID string, cfg PollConfig) error {
	const op = "WaitForCompletion"
	log := logger.WithComponent("ocr").With().Str("job_id", jobID).Logger()

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		st, err := p.Poll(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return WrapOCRError(op, ctx.Err(), jobID)
			}
			if isPermanent(err) {
				return WrapOCRError(op, err, fmt.Sprintf("polling job %s", jobID))
			}
			log.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Poll failed, retrying")
		case st.State == JobSucceeded:
			log.Debug().Int("attempt", attempt).Msg("OCR job succeeded")
			return nil
		case st.State == JobFailed:
			return WrapOCRError(op, ErrJobFailed, fmt.Sprintf("job %s: %s", jobID, st.Message))
		default:
			log.Debug().Int("attempt", attempt).Msg("OCR job still running")
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(cfg.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return WrapOCRError(op, ctx.Err(), jobID)
		case <-timer.C:
		}
	}

	return WrapOCRError(op, ErrJobTimeout, fmt.Sprintf("job %s after %d attempts", jobID, cfg.MaxAttempts))
}

func isPermanent(err error) bool {
	switch status.Code(err) {
	case codes.InvalidArgument, codes.NotFound, codes.PermissionDenied, codes.Unauthenticated, codes.FailedPrecondition:
		return true
	}
	return false
}
