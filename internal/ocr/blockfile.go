package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"intake/internal/storage"
	"intake/pkg/models"
)

// BlockFileSuffix is appended to a document key to find its first page of blocks.
const BlockFileSuffix = ".blocks.json"

// BlockPage is one page of analysis output: the blocks plus the token of the
// next page, if any.
type BlockPage struct {
	Blocks    []models.Block `json:"Blocks"`
	NextToken string         `json:"NextToken,omitempty"`
}

// BlockFileProvider serves precomputed analysis output stored next to each
// document. The first page of doc.pdf lives at doc.pdf.blocks.json and a page
// with NextToken T is followed by doc.pdf.blocks.T.json.
type BlockFileProvider struct {
	store storage.ObjectStore
}

func NewBlockFileProvider(store storage.ObjectStore) *BlockFileProvider {
	return &BlockFileProvider{store: store}
}

// PageLocation returns where the page with the given token is stored. An
// empty token addresses the first page.
func PageLocation(doc storage.Location, token string) storage.Location {
	if token == "" {
		return storage.Location{Bucket: doc.Bucket, Key: doc.Key + BlockFileSuffix}
	}
	return storage.Location{
		Bucket: doc.Bucket,
		Key:    doc.Key + strings.TrimSuffix(BlockFileSuffix, ".json") + "." + token + ".json",
	}
}

// IsBlockFile reports whether key is a block page rather than a document.
func IsBlockFile(key string) bool {
	return strings.HasSuffix(key, ".json") && strings.Contains(key, strings.TrimSuffix(BlockFileSuffix, ".json"))
}

func (p *BlockFileProvider) Submit(ctx context.Context, loc storage.Location) (string, error) {
	const op = "Submit"

	if _, err := p.store.Get(ctx, PageLocation(loc, "")); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", WrapOCRError(op, ErrJobNotFound, "no block file for "+loc.String())
		}
		return "", WrapOCRError(op, err, loc.String())
	}
	// The job id is the document URI.
	return loc.String(), nil
}

func (p *BlockFileProvider) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	if _, err := storage.ParseGCSURI(jobID); err != nil {
		return JobStatus{}, WrapOCRError("Poll", ErrJobNotFound, jobID)
	}
	return JobStatus{State: JobSucceeded}, nil
}

func (p *BlockFileProvider) Fetch(ctx context.Context, jobID string) ([]models.Block, error) {
	const op = "Fetch"

	doc, err := storage.ParseGCSURI(jobID)
	if err != nil {
		return nil, WrapOCRError(op, ErrJobNotFound, jobID)
	}

	var blocks []models.Block
	seen := make(map[string]bool)
	token := ""
	for {
		data, err := p.store.Get(ctx, PageLocation(doc, token))
		if err != nil {
			return nil, WrapOCRError(op, err, fmt.Sprintf("page %q of %s", token, jobID))
		}

		var page BlockPage
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, WrapOCRError(op, fmt.Errorf("%w: %v", ErrMalformedOutput, err), fmt.Sprintf("page %q of %s", token, jobID))
		}
		blocks = append(blocks, page.Blocks...)

		if page.NextToken == "" {
			return blocks, nil
		}
		if seen[page.NextToken] {
			return nil, WrapOCRError(op, ErrMalformedOutput, "pagination loop at token "+page.NextToken)
		}
		seen[page.NextToken] = true
		token = page.NextToken
	}
}
