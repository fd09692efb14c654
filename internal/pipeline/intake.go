package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"intake/internal/extraction"
	"intake/internal/logger"
	"intake/internal/ocr"
	"intake/internal/routing"
	"intake/internal/storage"
)

// IntakeResult is the outcome of Extract for one folder.
type IntakeResult struct {
	Prefix string
	// Extracted lists the PDFs whose artifacts were written, in listing order.
	Extracted []string
	// Skipped lists non-PDF files moved to the review bucket.
	Skipped []DocumentResult
	// Failed lists PDFs that could not be analyzed; they stay in staging.
	Failed []DocumentResult
}

func isPDF(key string) bool {
	return strings.HasSuffix(strings.ToLower(key), ".pdf")
}

// Extract OCRs every PDF under prefix in the staging bucket and writes its
// text and key/value artifacts to the text bucket. Folder markers are mirrored
// into the text bucket. Non-PDF files are moved to the review bucket under the
// skipped prefix. When the folder holds no PDF at all, skipped files are still
// moved and ErrNoDocuments is returned with the result.
func (p *Pipeline) Extract(ctx context.Context, prefix string) (*IntakeResult, error) {
	const op = "Extract"

	if prefix == "" {
		return nil, WrapPipelineError(op, ErrMissingPrefix, "")
	}
	if p.objects == nil || p.ocr == nil {
		return nil, WrapPipelineError(op, ErrNotConfigured, "object store and OCR provider are required")
	}

	objects, err := p.objects.List(ctx, p.opts.Staging, prefix)
	if err != nil {
		return nil, WrapPipelineError(op, err, fmt.Sprintf("failed to list %s/%s", p.opts.Staging, prefix))
	}

	p.log.Info().
		Str("prefix", prefix).
		Int("objects", len(objects)).
		Msg("Starting intake")

	result := &IntakeResult{Prefix: prefix}
	var pdfs, skipped []string
	for _, obj := range objects {
		switch {
		case strings.HasSuffix(obj.Key, "/"):
			if err := p.artifacts.MirrorMarker(ctx, obj.Key); err != nil {
				p.log.Warn().Err(err).Str("marker", obj.Key).Msg("Failed to mirror folder marker")
			}
		case ocr.IsBlockFile(obj.Key):
			// OCR output stored next to its document
		case isPDF(obj.Key):
			pdfs = append(pdfs, obj.Key)
		default:
			p.log.Info().Str("document", obj.Key).Msg("Skipping file that is not a PDF")
			skipped = append(skipped, obj.Key)
		}
	}

	failures := processInParallel(ctx, p.log, pdfs, p.opts.Workers, p.extractDocument)
	for i, err := range failures {
		if err != nil {
			result.Failed = append(result.Failed, DocumentResult{
				Key:      pdfs[i],
				Outcome:  routing.ProcessingError,
				Decision: routing.Decide(routing.ProcessingError, p.opts.NoDataPolicy),
				Err:      err,
			})
			continue
		}
		result.Extracted = append(result.Extracted, pdfs[i])
	}

	if len(skipped) > 0 {
		result.Skipped = p.moveSkipped(ctx, prefix, skipped)
	}

	p.log.Info().
		Str("prefix", prefix).
		Int("extracted", len(result.Extracted)).
		Int("skipped", len(result.Skipped)).
		Int("failed", len(result.Failed)).
		Msg("Intake completed")

	if len(pdfs) == 0 {
		return result, WrapPipelineError(op, ErrNoDocuments, prefix)
	}
	return result, nil
}

// extractDocument analyzes one PDF and writes both artifacts.
func (p *Pipeline) extractDocument(ctx context.Context, key string) error {
	log := logger.ForDocument(p.log, key)

	blocks, err := ocr.Analyze(ctx, p.ocr, p.staging(key), p.opts.Poll)
	if err != nil {
		log.Error().Err(err).Msg("OCR failed")
		return err
	}

	text := extraction.PageText(blocks)
	kvs := p.resolver.Resolve(extraction.NewIndex(blocks))

	if err := p.artifacts.Write(ctx, key, text, kvs); err != nil {
		log.Error().Err(err).Msg("Failed to write artifacts")
		return err
	}

	log.Info().
		Int("blocks", len(blocks)).
		Int("keys", kvs.Len()).
		Msg("Document extracted")
	return nil
}

// moveSkipped moves non-PDF files to the review bucket, removes the folder
// marker from the text bucket and tries to delete the emptied staging folder
// markers.
func (p *Pipeline) moveSkipped(ctx context.Context, prefix string, keys []string) []DocumentResult {
	decision := routing.Decide(routing.UnsupportedFormat, p.opts.NoDataPolicy)
	results := make([]DocumentResult, 0, len(keys))
	folders := make(map[string]bool)

	for _, key := range keys {
		res := DocumentResult{Key: key, Outcome: routing.UnsupportedFormat, Decision: decision}
		if err := p.route(ctx, key, routing.UnsupportedFormat, decision); err != nil {
			p.log.Error().Err(err).Str("document", key).Msg("Failed to move skipped file")
			res.Err = err
		}
		results = append(results, res)

		if dir := path.Dir(key); dir != "." {
			folders[dir+"/"] = true
		}
	}

	if err := p.artifacts.DeleteMarker(ctx, prefix); err != nil {
		p.log.Warn().Err(err).Str("marker", prefix).Msg("Failed to delete text folder marker")
	}

	for folder := range folders {
		if err := p.objects.Delete(ctx, storage.Location{Bucket: p.opts.Staging, Key: folder}); err != nil {
			p.log.Warn().Err(err).Str("folder", folder).Msg("Could not delete staging folder marker")
			continue
		}
		p.log.Debug().Str("folder", folder).Msg("Deleted staging folder marker")
	}
	return results
}
