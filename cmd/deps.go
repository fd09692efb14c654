package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"intake/internal/classify"
	"intake/internal/config"
	"intake/internal/ocr"
	"intake/internal/pipeline"
	"intake/internal/records"
	"intake/internal/storage"
)

// need selects which collaborators a command builds.
type need int

const (
	needOCR need = 1 << iota
	needClassifier
	needRecords
)

// resources tracks clients that must be closed when a command ends.
type resources struct {
	closers []io.Closer
	log     zerolog.Logger
}

func (r *resources) add(c io.Closer) {
	r.closers = append(r.closers, c)
}

func (r *resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			r.log.Warn().Err(err).Msg("Failed to close client")
		}
	}
}

// newPipeline builds the pipeline with the collaborators selected by needs.
func newPipeline(ctx context.Context, cfg *config.Config, needs need, log zerolog.Logger) (*pipeline.Pipeline, *resources, error) {
	res := &resources{log: log}

	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}

	objects, err := createObjectStore(ctx, cfg, res, log)
	if err != nil {
		res.Close()
		return nil, nil, err
	}
	deps := pipeline.Deps{Objects: objects, Prompt: cfg.ClassificationPrompt}

	if needs&needOCR != 0 {
		if deps.OCR, err = createOCRProvider(ctx, cfg, objects, res, log); err != nil {
			res.Close()
			return nil, nil, err
		}
	}
	if needs&needClassifier != 0 {
		if deps.Classifier, err = createClassifier(cfg, log); err != nil {
			res.Close()
			return nil, nil, err
		}
	}
	if needs&needRecords != 0 {
		store, err := createRecordStore(ctx, cfg, log)
		if err != nil {
			res.Close()
			return nil, nil, err
		}
		res.add(store)
		deps.Records = store
	}

	return pipeline.New(deps, opts), res, nil
}

func createObjectStore(ctx context.Context, cfg *config.Config, res *resources, log zerolog.Logger) (storage.ObjectStore, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		log.Debug().Str("root", cfg.LocalStorageRoot).Msg("Using local object store")
		return storage.NewLocalStore(cfg.LocalStorageRoot), nil
	default:
		store, err := storage.NewGCSStore(ctx, config.GoogleClientOptions()...)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create Cloud Storage client")
			return nil, fmt.Errorf("failed to create Cloud Storage client: %w", err)
		}
		res.add(store)
		return store, nil
	}
}

func createOCRProvider(ctx context.Context, cfg *config.Config, objects storage.ObjectStore, res *resources, log zerolog.Logger) (ocr.Provider, error) {
	switch cfg.OCRProvider {
	case config.OCRBlockFile:
		return ocr.NewBlockFileProvider(objects), nil
	case config.OCRVision:
		if !config.HasGoogleCredentials() {
			log.Warn().Msg("No explicit Google Cloud credentials, using application default credentials")
		}
		provider, err := ocr.NewVisionProvider(ctx, objects, config.GoogleClientOptions()...)
		if err != nil {
			return nil, credentialsError(err, log)
		}
		res.add(provider)
		return provider, nil
	default:
		if !config.HasGoogleCredentials() {
			log.Warn().Msg("No explicit Google Cloud credentials, using application default credentials")
		}
		provider, err := ocr.NewDocumentAIProvider(ctx, ocr.DocumentAIConfig{
			ProjectID:        cfg.GoogleCloudProject,
			Location:         cfg.GoogleCloudLocation,
			ProcessorID:      cfg.DocumentAIProcessorID,
			ProcessorVersion: cfg.DocumentAIProcessorVersion,
			OutputBucket:     cfg.DocumentAIOutputBucket,
		}, objects, config.GoogleClientOptions()...)
		if err != nil {
			return nil, credentialsError(err, log)
		}
		res.add(provider)
		return provider, nil
	}
}

func credentialsError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Failed to create OCR provider")
	if errors.Is(err, ocr.ErrMissingCredentials) {
		return fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n" +
			"1. Credentials file exists and is readable\n" +
			"2. JSON format is valid\n" +
			"3. Service account has proper permissions\n\n" +
			"Original error: %w", err)
	}
	return fmt.Errorf("failed to create OCR provider: %w", err)
}

func createClassifier(cfg *config.Config, log zerolog.Logger) (classify.Classifier, error) {
	classifier, err := classify.NewOpenAIClassifier(classify.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIModel,
		Temperature: float32(cfg.OpenAITemperature),
		MaxTokens:   cfg.OpenAIMaxTokens,
		MaxAttempts: cfg.OpenAIMaxAttempts,
		RetryDelay:  cfg.OpenAIRetryDelay,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to create classifier")
		return nil, err
	}
	return classifier, nil
}

func createRecordStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (records.Store, error) {
	var (
		store records.Store
		err   error
	)
	switch cfg.RecordStore {
	case config.RecordsPostgres:
		store, err = records.NewPostgresStore(ctx, records.DefaultPostgresConfig(cfg.DatabaseURL))
	case config.RecordsSheets:
		store, err = records.NewSheetsStore(ctx, cfg.GoogleSheetURL, cfg.GoogleSheetWorksheet)
	default:
		store, err = records.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("record_store", cfg.RecordStore).
			Msg("Failed to create record store")
		return nil, fmt.Errorf("failed to create %s record store: %w", cfg.RecordStore, err)
	}

	log.Debug().Str("record_store", cfg.RecordStore).Msg("Record store ready")
	return store, nil
}
