package pipeline

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"intake/internal/logger"
	"intake/internal/routing"
)

// Report summarizes one full run over a folder.
type Report struct {
	RunID     string
	Prefix    string
	Documents []DocumentResult
}

// Count returns the number of documents with the given outcome.
func (r *Report) Count(outcome routing.Outcome) int {
	n := 0
	for _, d := range r.Documents {
		if d.Outcome == outcome {
			n++
		}
	}
	return n
}

// Failed returns the documents that ended with an error.
func (r *Report) Failed() []DocumentResult {
	var failed []DocumentResult
	for _, d := range r.Documents {
		if d.Err != nil {
			failed = append(failed, d)
		}
	}
	return failed
}

// Run processes a folder end to end: intake, classification and routing of
// every document. One document failing never aborts the batch; it is
// reported and left where routing put it. ErrNoDocuments is returned together
// with the report when the folder held no PDF.
func (p *Pipeline) Run(ctx context.Context, prefix string) (*Report, error) {
	const op = "Run"

	runID := uuid.NewString()
	run := p.withLogger(logger.WithRunID("pipeline", runID))
	report := &Report{RunID: runID, Prefix: prefix}

	run.log.Info().
		Str("prefix", prefix).
		Int("workers", p.opts.Workers).
		Str("no_data_policy", string(p.opts.NoDataPolicy)).
		Msg("Starting pipeline run")

	intake, err := run.Extract(ctx, prefix)
	if intake != nil {
		report.Documents = append(report.Documents, intake.Skipped...)
		report.Documents = append(report.Documents, intake.Failed...)
	}
	if err != nil {
		if errors.Is(err, ErrNoDocuments) {
			run.finish(report)
			return report, err
		}
		return nil, WrapPipelineError(op, err, prefix)
	}

	classifications, err := run.classifyDocuments(ctx, intake.Extracted)
	if err != nil {
		return nil, WrapPipelineError(op, err, prefix)
	}

	byFile := make(map[string]Classification, len(classifications))
	for _, c := range classifications {
		byFile[c.File] = c
	}
	routed := processInParallel(ctx, run.log, intake.Extracted, p.opts.Workers, func(ctx context.Context, key string) DocumentResult {
		return run.routeClassified(ctx, byFile[key])
	})
	report.Documents = append(report.Documents, routed...)

	run.finish(report)
	return report, nil
}

// routeClassified turns a classification into an outcome and applies it.
func (p *Pipeline) routeClassified(ctx context.Context, c Classification) DocumentResult {
	switch {
	case c.Err != nil:
		// Failed classifications stay in staging with their artifacts.
		return DocumentResult{
			Key:      c.File,
			Outcome:  routing.ProcessingError,
			Decision: routing.Decide(routing.ProcessingError, p.opts.NoDataPolicy),
			Err:      c.Err,
		}
	case c.IsTarget:
		return p.archiveDocument(ctx, c.File)
	default:
		return p.reviewDocument(ctx, c.File)
	}
}

func (p *Pipeline) finish(report *Report) {
	sort.SliceStable(report.Documents, func(i, j int) bool {
		return report.Documents[i].Key < report.Documents[j].Key
	})

	p.log.Info().
		Str("prefix", report.Prefix).
		Int("documents", len(report.Documents)).
		Int("archived_with_data", report.Count(routing.SucceededWithData)).
		Int("no_data", report.Count(routing.SucceededNoData)).
		Int("non_target", report.Count(routing.ClassifiedNonTarget)).
		Int("unsupported", report.Count(routing.UnsupportedFormat)).
		Int("processing_errors", report.Count(routing.ProcessingError)).
		Int("errors", len(report.Failed())).
		Msg("Pipeline run completed")
}
