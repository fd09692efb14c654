package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"intake/internal/logger"
	"intake/internal/storage"
	"intake/pkg/models"
)

const (
	// MaxFileSizeBytes is the maximum file size for synchronous processing (20MB)
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the maximum number of pages for synchronous processing
	MaxPagesSync = 5
)

type annotateFunc func(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest) (*visionpb.BatchAnnotateFilesResponse, error)

type visionJob struct {
	blocks []models.Block
	err    error
}

// VisionProvider runs Cloud Vision document text detection. Vision has no
// form model, so only PAGE, LINE and WORD blocks are produced. Annotation is
// synchronous; Submit does the work and keeps the result until Fetch.
type VisionProvider struct {
	annotate annotateFunc
	store    storage.ObjectStore
	client   *vision.ImageAnnotatorClient
	log      zerolog.Logger

	mu   sync.Mutex
	jobs map[string]visionJob
}

// NewVisionProvider creates a provider with a new Vision client. Documents
// are read through store.
func NewVisionProvider(ctx context.Context, store storage.ObjectStore, opts ...option.ClientOption) (*VisionProvider, error) {
	const op = "NewVisionProvider"

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, "failed to create Vision client")
	}

	p := newVisionProvider(func(ctx context.Context, req *visionpb.BatchAnnotateFilesRequest) (*visionpb.BatchAnnotateFilesResponse, error) {
		return client.BatchAnnotateFiles(ctx, req)
	}, store)
	p.client = client
	return p, nil
}

func newVisionProvider(annotate annotateFunc, store storage.ObjectStore) *VisionProvider {
	return &VisionProvider{
		annotate: annotate,
		store:    store,
		log:      logger.WithComponent("vision"),
		jobs:     make(map[string]visionJob),
	}
}

func (v *VisionProvider) Submit(ctx context.Context, loc storage.Location) (string, error) {
	const op = "Submit"

	pdfBytes, err := v.store.Get(ctx, loc)
	if err != nil {
		return "", WrapOCRError(op, err, "failed to read "+loc.String())
	}

	// Validate file size
	if len(pdfBytes) > MaxFileSizeBytes {
		return "", WrapOCRError(op, ErrUnsupportedFormat, fmt.Sprintf("file size: %d bytes", len(pdfBytes)))
	}

	// Validate PDF header
	if len(pdfBytes) < 4 || string(pdfBytes[:4]) != "%PDF" {
		return "", WrapOCRError(op, ErrUnsupportedFormat, "missing PDF header")
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	jobID := uuid.NewString()
	var job visionJob
	resp, err := v.annotate(ctx, req)
	switch {
	case err != nil:
		job.err = fmt.Errorf("Vision API call failed: %w", err)
	case len(resp.GetResponses()) == 0:
		job.err = fmt.Errorf("no response from Vision API")
	default:
		job.blocks, job.err = visionBlocks(resp.GetResponses()[0])
	}

	v.mu.Lock()
	v.jobs[jobID] = job
	v.mu.Unlock()

	v.log.Debug().
		Str("document", loc.String()).
		Str("job_id", jobID).
		Bool("failed", job.err != nil).
		Msg("Vision annotation finished")
	return jobID, nil
}

func (v *VisionProvider) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	v.mu.Lock()
	job, ok := v.jobs[jobID]
	v.mu.Unlock()

	if !ok {
		return JobStatus{}, WrapOCRError("Poll", ErrJobNotFound, jobID)
	}
	if job.err != nil {
		return JobStatus{State: JobFailed, Message: job.err.Error()}, nil
	}
	return JobStatus{State: JobSucceeded}, nil
}

// Fetch returns the blocks of a finished job and forgets it.
func (v *VisionProvider) Fetch(ctx context.Context, jobID string) ([]models.Block, error) {
	v.mu.Lock()
	job, ok := v.jobs[jobID]
	delete(v.jobs, jobID)
	v.mu.Unlock()

	if !ok {
		return nil, WrapOCRError("Fetch", ErrJobNotFound, jobID)
	}
	if job.err != nil {
		return nil, WrapOCRError("Fetch", ErrJobFailed, job.err.Error())
	}
	return job.blocks, nil
}

// Close closes the underlying Vision client.
func (v *VisionProvider) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// visionBlocks turns each paragraph into a LINE block whose children are
// its words.
func visionBlocks(fileResp *visionpb.AnnotateFileResponse) ([]models.Block, error) {
	if fileResp.GetError() != nil {
		return nil, fmt.Errorf("Vision API error: %s", fileResp.GetError().GetMessage())
	}
	if len(fileResp.GetResponses()) > MaxPagesSync {
		return nil, fmt.Errorf("%w: document has %d pages (maximum %d)", ErrUnsupportedFormat, len(fileResp.GetResponses()), MaxPagesSync)
	}

	var blocks []models.Block
	for pageIdx, page := range fileResp.GetResponses() {
		if page.GetError() != nil {
			return nil, fmt.Errorf("error processing page %d: %s", pageIdx+1, page.GetError().GetMessage())
		}

		pageID := fmt.Sprintf("p%d", pageIdx)
		pageBlock := models.Block{ID: pageID, BlockType: models.BlockTypePage}
		var lines, words []models.Block
		var lineIDs []string

		n := 0
		for _, annotated := range page.GetFullTextAnnotation().GetPages() {
			for _, block := range annotated.GetBlocks() {
				for _, paragraph := range block.GetParagraphs() {
					lineID := fmt.Sprintf("%s-l%d", pageID, n)
					n++

					var wordIDs, texts []string
					for wi, word := range paragraph.GetWords() {
						var sb strings.Builder
						for _, symbol := range word.GetSymbols() {
							sb.WriteString(symbol.GetText())
						}
						text := cleanText(sb.String())
						if text == "" {
							continue
						}
						id := fmt.Sprintf("%s-w%d", lineID, wi)
						words = append(words, models.Block{ID: id, BlockType: models.BlockTypeWord, Text: text})
						wordIDs = append(wordIDs, id)
						texts = append(texts, text)
					}
					if len(wordIDs) == 0 {
						continue
					}

					lines = append(lines, models.Block{
						ID:            lineID,
						BlockType:     models.BlockTypeLine,
						Text:          strings.Join(texts, " "),
						Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: wordIDs}},
					})
					lineIDs = append(lineIDs, lineID)
				}
			}
		}

		if len(lineIDs) > 0 {
			pageBlock.Relationships = []models.Relationship{{Type: models.RelationshipChild, IDs: lineIDs}}
		}
		blocks = append(blocks, pageBlock)
		blocks = append(blocks, lines...)
		blocks = append(blocks, words...)
	}
	return blocks, nil
}
