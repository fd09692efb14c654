package pipeline

import (
	"context"
	"fmt"
	"strings"

	"intake/internal/artifacts"
	"intake/internal/logger"
)

// Classification is the classifier's decision for one extracted document.
type Classification struct {
	// File is the document key in the staging bucket.
	File     string
	IsTarget bool
	Verdict  string
	// Err is set when the text could not be read or the classifier failed.
	Err error
}

// Classify classifies every text artifact under prefix in the text bucket.
// The prefix marker, folder markers and key/value artifacts are skipped.
func (p *Pipeline) Classify(ctx context.Context, prefix string) ([]Classification, error) {
	const op = "Classify"

	if prefix == "" {
		return nil, WrapPipelineError(op, ErrMissingPrefix, "")
	}
	if p.objects == nil {
		return nil, WrapPipelineError(op, ErrNotConfigured, "object store is required")
	}

	objects, err := p.artifacts.List(ctx, prefix)
	if err != nil {
		return nil, WrapPipelineError(op, err, fmt.Sprintf("failed to list %s/%s", p.artifacts.Bucket(), prefix))
	}

	var keys []string
	for _, obj := range objects {
		if obj.Key == prefix || strings.HasSuffix(obj.Key, "/") || strings.HasSuffix(obj.Key, artifacts.JSONSuffix) {
			continue
		}
		keys = append(keys, artifacts.SourceKey(obj.Key))
	}

	return p.classifyDocuments(ctx, keys)
}

func (p *Pipeline) classifyDocuments(ctx context.Context, keys []string) ([]Classification, error) {
	if p.classifier == nil {
		return nil, WrapPipelineError("Classify", ErrNotConfigured, "classifier is required")
	}
	return processInParallel(ctx, p.log, keys, p.opts.Workers, p.classifyDocument), nil
}

func (p *Pipeline) classifyDocument(ctx context.Context, key string) Classification {
	c := Classification{File: key}

	text, err := p.artifacts.ReadText(ctx, key)
	if err != nil {
		log := logger.ForDocument(p.log, key)
		log.Error().Err(err).Msg("Failed to read text artifact")
		c.Err = err
		return c
	}

	d := p.classifier.Decide(ctx, key, text)
	c.IsTarget = d.IsTarget
	c.Verdict = d.Verdict
	c.Err = d.Err
	return c
}
