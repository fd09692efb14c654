package pipeline

import (
	"context"
	"errors"
	"fmt"

	"intake/internal/artifacts"
	"intake/internal/logger"
	"intake/internal/normalize"
	"intake/internal/routing"
	"intake/internal/storage"
	"intake/pkg/models"
)

// DocumentResult is what happened to one document.
type DocumentResult struct {
	Key      string
	Outcome  routing.Outcome
	Decision routing.Decision
	// Record is set for documents that went through normalization.
	Record *models.CanonicalRecord
	// Persisted reports whether Record was written to the structured store.
	Persisted bool
	Err       error
}

// destination returns where a document goes for a routing decision.
func (p *Pipeline) destination(key string, outcome routing.Outcome, dest routing.Destination) (storage.Location, bool) {
	switch dest {
	case routing.Archive:
		return storage.Location{Bucket: p.opts.Archive, Key: joinKey(p.opts.ArchivePrefix, key)}, true
	case routing.Review:
		prefix := p.opts.ReviewPrefix
		if outcome == routing.UnsupportedFormat {
			prefix = p.opts.SkippedPrefix
		}
		return storage.Location{Bucket: p.opts.Review, Key: joinKey(prefix, key)}, true
	}
	return storage.Location{}, false
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// route applies a routing decision to the source document and its artifacts.
func (p *Pipeline) route(ctx context.Context, key string, outcome routing.Outcome, decision routing.Decision) error {
	const op = "Route"

	if dst, ok := p.destination(key, outcome, decision.Source); ok {
		if err := storage.Move(ctx, p.objects, p.staging(key), dst); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return WrapPipelineError(op, fmt.Errorf("%w: %s", ErrMissingFile, key), p.opts.Staging)
			}
			return WrapPipelineError(op, err, key)
		}
		p.log.Info().
			Str("document", key).
			Str("outcome", outcome.String()).
			Str("destination", dst.String()).
			Msg("Document moved")
	}

	if decision.Artifacts == routing.Discard && outcome != routing.UnsupportedFormat {
		if err := p.artifacts.Delete(ctx, key); err != nil {
			return WrapPipelineError(op, err, "failed to delete artifacts of "+key)
		}
	}
	return nil
}

// Archive normalizes the key/value artifact of a target document, persists the
// record when it carries attributes and moves the document to the archive
// bucket. Documents without attributes follow the no-data policy. file may be
// the document key or one of its artifact keys.
func (p *Pipeline) Archive(ctx context.Context, file string) (DocumentResult, error) {
	const op = "Archive"

	if file == "" {
		return DocumentResult{}, WrapPipelineError(op, ErrMissingFile, "")
	}
	if p.objects == nil {
		return DocumentResult{}, WrapPipelineError(op, ErrNotConfigured, "object store is required")
	}

	res := p.archiveDocument(ctx, artifacts.SourceKey(file))
	if res.Err != nil {
		return res, WrapPipelineError(op, res.Err, res.Key)
	}
	return res, nil
}

func (p *Pipeline) archiveDocument(ctx context.Context, key string) DocumentResult {
	log := logger.ForDocument(p.log, key)
	res := DocumentResult{Key: key}

	kvs, err := p.artifacts.ReadKeyValues(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		log.Warn().Msg("No key/value artifact, archiving without a record")
		kvs = models.NewKeyValueMapping()
	case err != nil:
		log.Error().Err(err).Msg("Failed to read key/value artifact")
		res.Outcome = routing.ProcessingError
		res.Decision = routing.Decide(res.Outcome, p.opts.NoDataPolicy)
		res.Err = err
		return res
	}

	normalized := p.normalizer.Normalize(normalize.FileNameFor(key), kvs)
	res.Record = &normalized.Record
	res.Outcome = routing.SucceededNoData
	if normalized.Persistable() {
		res.Outcome = routing.SucceededWithData
		res.Persisted = p.persist(ctx, key, normalized.Record)
	}

	res.Decision = routing.Decide(res.Outcome, p.opts.NoDataPolicy)
	if err := p.route(ctx, key, res.Outcome, res.Decision); err != nil {
		log.Error().Err(err).Msg("Failed to route document")
		res.Err = err
	}
	return res
}

// persist writes rec and reports success. Failures are logged; the document
// is still routed.
func (p *Pipeline) persist(ctx context.Context, key string, rec models.CanonicalRecord) bool {
	log := logger.ForDocument(p.log, key)

	if p.records == nil {
		log.Warn().Msg("No record store configured, record not persisted")
		return false
	}
	if err := p.records.Put(ctx, rec); err != nil {
		log.Error().
			Err(err).
			Str("claim_number", rec.ClaimNumber).
			Str("file_name", rec.FileName).
			Msg("Failed to persist record")
		return false
	}
	log.Info().
		Str("claim_number", rec.ClaimNumber).
		Str("file_name", rec.FileName).
		Msg("Record persisted")
	return true
}

// Review moves a non-target document to the review bucket and deletes its
// artifacts. file may be the document key or one of its artifact keys.
func (p *Pipeline) Review(ctx context.Context, file string) (DocumentResult, error) {
	const op = "Review"

	if file == "" {
		return DocumentResult{}, WrapPipelineError(op, ErrMissingFile, "")
	}
	if p.objects == nil {
		return DocumentResult{}, WrapPipelineError(op, ErrNotConfigured, "object store is required")
	}

	res := p.reviewDocument(ctx, artifacts.SourceKey(file))
	if res.Err != nil {
		return res, WrapPipelineError(op, res.Err, res.Key)
	}
	return res, nil
}

func (p *Pipeline) reviewDocument(ctx context.Context, key string) DocumentResult {
	res := DocumentResult{Key: key, Outcome: routing.ClassifiedNonTarget}
	res.Decision = routing.Decide(res.Outcome, p.opts.NoDataPolicy)
	if err := p.route(ctx, key, res.Outcome, res.Decision); err != nil {
		log := logger.ForDocument(p.log, key)
		log.Error().Err(err).Msg("Failed to route document")
		res.Err = err
	}
	return res
}

// MoveFolder moves every object under prefix from srcBucket to dstBucket and,
// when purgeBucket is set, deletes the same prefix from purgeBucket. It
// returns the number of objects moved.
func (p *Pipeline) MoveFolder(ctx context.Context, prefix, srcBucket, dstBucket, purgeBucket string) (int, error) {
	const op = "MoveFolder"

	if prefix == "" {
		return 0, WrapPipelineError(op, ErrMissingPrefix, "")
	}
	if srcBucket == "" || dstBucket == "" {
		return 0, WrapPipelineError(op, storage.ErrInvalidLocation, "source and destination buckets are required")
	}
	if p.objects == nil {
		return 0, WrapPipelineError(op, ErrNotConfigured, "object store is required")
	}

	moved, err := storage.MoveFolder(ctx, p.objects, srcBucket, dstBucket, prefix)
	if err != nil {
		return moved, WrapPipelineError(op, err, prefix)
	}

	p.log.Info().
		Str("prefix", prefix).
		Str("source", srcBucket).
		Str("destination", dstBucket).
		Int("moved", moved).
		Msg("Folder moved")

	if purgeBucket != "" {
		deleted, err := storage.DeletePrefix(ctx, p.objects, purgeBucket, prefix)
		if err != nil {
			return moved, WrapPipelineError(op, err, "failed to purge "+purgeBucket)
		}
		p.log.Info().
			Str("prefix", prefix).
			Str("bucket", purgeBucket).
			Int("deleted", deleted).
			Msg("Folder purged")
	}
	return moved, nil
}
