// Package ocr runs asynchronous OCR jobs and returns their output as a block graph.
//
// A Provider follows a submit/poll/fetch contract:
//   - Submit starts a job for a document in object storage and returns its id
//   - Poll reports RUNNING, SUCCEEDED or FAILED
//   - Fetch drains every page of output into an ordered block sequence
//
// Providers:
//   - DocumentAIProvider: Google Document AI batch processing (form parser).
//     Requires GOOGLE_CLOUD_PROJECT, DOCUMENT_AI_PROCESSOR_ID and an output bucket.
//   - VisionProvider: Google Cloud Vision document text detection (text only, no forms)
//   - BlockFileProvider: precomputed block pages stored next to the document
//
// Credentials come from GOOGLE_CREDENTIALS (inline JSON) or
// GOOGLE_APPLICATION_CREDENTIALS (file path).
package ocr

import (
	"context"
	"fmt"

	"intake/internal/storage"
	"intake/pkg/models"
)

// JobState is the coarse state of an OCR job.
type JobState string

const (
	JobRunning   JobState = "RUNNING"
	JobSucceeded JobState = "SUCCEEDED"
	JobFailed    JobState = "FAILED"
)

// JobStatus is the result of one poll.
type JobStatus struct {
	State JobState
	// Message carries the provider's failure reason, if any.
	Message string
}

// Provider is an asynchronous OCR backend.
type Provider interface {
	// Submit starts analysis of the document at loc and returns the job id.
	Submit(ctx context.Context, loc storage.Location) (string, error)

	// Poll reports the current state of the job.
	Poll(ctx context.Context, jobID string) (JobStatus, error)

	// Fetch returns every block of a succeeded job in detection order.
	Fetch(ctx context.Context, jobID string) ([]models.Block, error)
}

// Analyze submits the document, waits for the job and fetches its blocks.
func Analyze(ctx context.Context, p Provider, loc storage.Location, cfg PollConfig) ([]models.Block, error) {
	const op = "Analyze"

	jobID, err := p.Submit(ctx, loc)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to submit %s", loc))
	}

	if err := WaitForCompletion(ctx, p, jobID, cfg); err != nil {
		return nil, err
	}

	blocks, err := p.Fetch(ctx, jobID)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to fetch results for job %s", jobID))
	}
	return blocks, nil
}
