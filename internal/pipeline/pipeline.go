// Package pipeline runs claim documents from the staging bucket through OCR,
// classification and routing.
//
// Stages can run on their own (the CLI exposes each one) or together via Run:
//
//	Extract   OCR every PDF under a folder prefix and write .txt/.json artifacts
//	Classify  ask the classifier about every extracted document
//	Archive   normalize a target document, persist its record and archive it
//	Review    move a document to the human review bucket
//	MoveFolder move a whole folder between buckets
//
// Documents within a batch are processed by a bounded worker pool; results keep
// the listing order.
package pipeline

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"intake/internal/artifacts"
	"intake/internal/classify"
	"intake/internal/config"
	"intake/internal/extraction"
	"intake/internal/logger"
	"intake/internal/normalize"
	"intake/internal/ocr"
	"intake/internal/records"
	"intake/internal/routing"
	"intake/internal/storage"
)

// Buckets names the buckets a document passes through.
type Buckets struct {
	Staging string
	Text    string
	Review  string
	Archive string
}

// Options controls where documents go and how a batch is processed.
type Options struct {
	Buckets

	ReviewPrefix  string
	ArchivePrefix string
	SkippedPrefix string

	Poll         ocr.PollConfig
	NoDataPolicy routing.NoDataPolicy
	Workers      int
}

// OptionsFromConfig maps the loaded configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	policy, err := routing.ParseNoDataPolicy(cfg.NoDataPolicy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Buckets: Buckets{
			Staging: cfg.StagingBucket,
			Text:    cfg.TextBucket,
			Review:  cfg.ReviewBucket,
			Archive: cfg.ArchiveBucket,
		},
		ReviewPrefix:  cfg.ReviewPrefix,
		ArchivePrefix: cfg.ArchivePrefix,
		SkippedPrefix: cfg.SkippedPrefix,
		Poll: ocr.PollConfig{
			MaxAttempts: cfg.OCRPollMaxAttempts,
			Delay:       cfg.OCRPollDelay,
		},
		NoDataPolicy: policy,
		Workers:      cfg.BatchWorkers,
	}, nil
}

// Deps are the external collaborators. Stages that need a missing one fail
// with ErrNotConfigured; Records may be nil, in which case nothing is persisted.
type Deps struct {
	Objects    storage.ObjectStore
	OCR        ocr.Provider
	Classifier classify.Classifier
	Records    records.Store
	Prompt     string
}

// Pipeline processes staged claim documents.
type Pipeline struct {
	objects    storage.ObjectStore
	ocr        ocr.Provider
	classifier *classify.Service
	records    records.Store
	artifacts  *artifacts.Store
	resolver   *extraction.Resolver
	normalizer *normalize.Normalizer
	opts       Options
	log        zerolog.Logger
}

func New(deps Deps, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Poll.MaxAttempts <= 0 {
		opts.Poll = ocr.DefaultPollConfig()
	}
	if opts.NoDataPolicy == "" {
		opts.NoDataPolicy = routing.NoDataArchive
	}

	p := &Pipeline{
		objects:    deps.Objects,
		ocr:        deps.OCR,
		records:    deps.Records,
		resolver:   extraction.NewResolver(),
		normalizer: normalize.NewNormalizer(),
		opts:       opts,
		log:        logger.WithComponent("pipeline"),
	}
	if deps.Objects != nil {
		p.artifacts = artifacts.NewStore(deps.Objects, opts.Text)
	}
	if deps.Classifier != nil {
		prompt := deps.Prompt
		if prompt == "" {
			prompt = config.DefaultClassificationPrompt
		}
		p.classifier = classify.NewService(deps.Classifier, prompt)
	}
	return p
}

// withLogger returns a copy of the pipeline that logs through l.
func (p *Pipeline) withLogger(l zerolog.Logger) *Pipeline {
	run := *p
	run.log = l
	return &run
}

func (p *Pipeline) staging(key string) storage.Location {
	return storage.Location{Bucket: p.opts.Staging, Key: key}
}

// workerJob is one document handed to the worker pool.
type workerJob struct {
	Key   string
	Index int
}

// processInParallel runs fn for every key on at most workers goroutines and
// returns the results in key order.
func processInParallel[T any](ctx context.Context, log zerolog.Logger, keys []string, workers int, fn func(ctx context.Context, key string) T) []T {
	jobs := make(chan workerJob, len(keys))
	results := make([]T, len(keys))

	if workers > len(keys) {
		workers = len(keys)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("document", job.Key).
					Int("index", job.Index+1).
					Msg("Worker processing document")

				results[job.Index] = fn(ctx, job.Key)
			}
		}(w)
	}

	for i, key := range keys {
		jobs <- workerJob{Key: key, Index: i}
	}
	close(jobs)

	wg.Wait()

	return results
}
