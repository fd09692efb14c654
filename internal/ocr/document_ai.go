package ocr

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"intake/internal/logger"
	"intake/internal/storage"
	"intake/pkg/models"
)

// DocumentAIConfig holds the Document AI processor settings.
type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string

	// OutputBucket receives the sharded JSON output of batch jobs.
	OutputBucket string
	OutputPrefix string
}

func (c DocumentAIConfig) processorName() string {
	if c.ProcessorVersion != "" {
		return fmt.Sprintf("projects/%s/locations/%s/processors/%s/processorVersions/%s",
			c.ProjectID, c.Location, c.ProcessorID, c.ProcessorVersion)
	}
	return fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		c.ProjectID, c.Location, c.ProcessorID)
}

// batchOperations is the slice of the Document AI client the provider uses.
type batchOperations interface {
	start(ctx context.Context, req *documentaipb.BatchProcessRequest) (string, error)
	poll(ctx context.Context, name string) (done bool, md *documentaipb.BatchProcessMetadata, err error)
}

type clientOperations struct {
	client *documentai.DocumentProcessorClient
}

func (c clientOperations) start(ctx context.Context, req *documentaipb.BatchProcessRequest) (string, error) {
	op, err := c.client.BatchProcessDocuments(ctx, req)
	if err != nil {
		return "", err
	}
	return op.Name(), nil
}

func (c clientOperations) poll(ctx context.Context, name string) (bool, *documentaipb.BatchProcessMetadata, error) {
	op := c.client.BatchProcessDocumentsOperation(name)
	_, err := op.Poll(ctx)
	md, mdErr := op.Metadata()
	if err == nil && mdErr != nil {
		err = mdErr
	}
	return op.Done(), md, err
}

// DocumentAIProvider runs Document AI batch jobs. Form fields become
// KEY/VALUE blocks, tokens WORD blocks and lines LINE blocks.
type DocumentAIProvider struct {
	ops    batchOperations
	client *documentai.DocumentProcessorClient
	store  storage.ObjectStore
	config DocumentAIConfig
	log    zerolog.Logger
}

// NewDocumentAIProvider creates a provider with a new Document AI client.
// store must be able to read the output bucket.
func NewDocumentAIProvider(ctx context.Context, config DocumentAIConfig, store storage.ObjectStore, opts ...option.ClientOption) (*DocumentAIProvider, error) {
	const op = "NewDocumentAIProvider"

	if config.ProjectID == "" || config.ProcessorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "project and processor id are required")
	}
	if config.OutputBucket == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "output bucket is required for batch processing")
	}
	if config.Location == "" {
		config.Location = "us"
	}

	// Regional endpoint outside the default location
	if config.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", config.Location)
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", config.Location))
	}

	p := newDocumentAIProvider(clientOperations{client: client}, store, config)
	p.client = client
	return p, nil
}

// Close releases the Document AI client.
func (p *DocumentAIProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func newDocumentAIProvider(ops batchOperations, store storage.ObjectStore, config DocumentAIConfig) *DocumentAIProvider {
	if config.OutputPrefix == "" {
		config.OutputPrefix = "documentai"
	}
	return &DocumentAIProvider{
		ops:    ops,
		store:  store,
		config: config,
		log:    logger.WithComponent("document-ai"),
	}
}

func (p *DocumentAIProvider) Submit(ctx context.Context, loc storage.Location) (string, error) {
	const op = "Submit"

	if !strings.EqualFold(path.Ext(loc.Key), ".pdf") {
		return "", WrapOCRError(op, ErrUnsupportedFormat, loc.Key)
	}

	output := storage.Location{
		Bucket: p.config.OutputBucket,
		Key:    path.Join(p.config.OutputPrefix, uuid.NewString()) + "/",
	}
	req := &documentaipb.BatchProcessRequest{
		Name: p.config.processorName(),
		InputDocuments: &documentaipb.BatchDocumentsInputConfig{
			Source: &documentaipb.BatchDocumentsInputConfig_GcsDocuments{
				GcsDocuments: &documentaipb.GcsDocuments{
					Documents: []*documentaipb.GcsDocument{
						{GcsUri: loc.String(), MimeType: "application/pdf"},
					},
				},
			},
		},
		DocumentOutputConfig: &documentaipb.DocumentOutputConfig{
			Destination: &documentaipb.DocumentOutputConfig_GcsOutputConfig_{
				GcsOutputConfig: &documentaipb.DocumentOutputConfig_GcsOutputConfig{
					GcsUri: output.String(),
				},
			},
		},
	}

	name, err := p.ops.start(ctx, req)
	if err != nil {
		return "", WrapOCRError(op, err, fmt.Sprintf("batch process request for %s", loc))
	}

	p.log.Info().
		Str("document", loc.String()).
		Str("job_id", name).
		Str("output", output.String()).
		Msg("Document AI job submitted")
	return name, nil
}

func (p *DocumentAIProvider) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	st, _, err := p.status(ctx, jobID)
	return st, err
}

func (p *DocumentAIProvider) status(ctx context.Context, jobID string) (JobStatus, *documentaipb.BatchProcessMetadata, error) {
	done, md, err := p.ops.poll(ctx, jobID)
	if err != nil {
		if done {
			return JobStatus{State: JobFailed, Message: err.Error()}, md, nil
		}
		return JobStatus{}, nil, WrapOCRError("Poll", err, jobID)
	}

	switch md.GetState() {
	case documentaipb.BatchProcessMetadata_SUCCEEDED:
		return JobStatus{State: JobSucceeded}, md, nil
	case documentaipb.BatchProcessMetadata_FAILED, documentaipb.BatchProcessMetadata_CANCELLED:
		return JobStatus{State: JobFailed, Message: md.GetStateMessage()}, md, nil
	}
	if done {
		return JobStatus{State: JobSucceeded}, md, nil
	}
	return JobStatus{State: JobRunning}, md, nil
}

// Fetch reads every output shard of the job and converts it to blocks.
// Shards are read in shard order and their output is deleted afterwards.
func (p *DocumentAIProvider) Fetch(ctx context.Context, jobID string) ([]models.Block, error) {
	const op = "Fetch"

	st, md, err := p.status(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if st.State != JobSucceeded {
		return nil, WrapOCRError(op, ErrJobFailed, fmt.Sprintf("job %s is %s", jobID, st.State))
	}

	var blocks []models.Block
	for _, ps := range md.GetIndividualProcessStatuses() {
		out, err := storage.ParseGCSURI(ps.GetOutputGcsDestination())
		if err != nil {
			return nil, WrapOCRError(op, ErrMalformedOutput, fmt.Sprintf("output destination for %s", ps.GetInputGcsSource()))
		}
		if !strings.HasSuffix(out.Key, "/") {
			out.Key += "/"
		}

		docs, err := p.readShards(ctx, out)
		if err != nil {
			return nil, WrapOCRError(op, err, out.String())
		}
		for _, doc := range docs {
			blocks = append(blocks, documentBlocks(doc, int(doc.GetShardInfo().GetShardIndex()))...)
		}

		if _, err := storage.DeletePrefix(ctx, p.store, out.Bucket, out.Key); err != nil {
			p.log.Warn().Err(err).Str("output", out.String()).Msg("Failed to clean up job output")
		}
	}
	return blocks, nil
}

func (p *DocumentAIProvider) readShards(ctx context.Context, out storage.Location) ([]*documentaipb.Document, error) {
	objects, err := p.store.List(ctx, out.Bucket, out.Key)
	if err != nil {
		return nil, err
	}

	unmarshal := protojson.UnmarshalOptions{DiscardUnknown: true}
	var docs []*documentaipb.Document
	for _, obj := range objects {
		if !strings.HasSuffix(obj.Key, ".json") {
			continue
		}
		data, err := p.store.Get(ctx, storage.Location{Bucket: out.Bucket, Key: obj.Key})
		if err != nil {
			return nil, err
		}
		doc := &documentaipb.Document{}
		if err := unmarshal.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedOutput, obj.Key, err)
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no output shards under %s", ErrMalformedOutput, out)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].GetShardInfo().GetShardIndex() < docs[j].GetShardInfo().GetShardIndex()
	})
	return docs, nil
}
