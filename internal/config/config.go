package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"intake/internal/logger"
)

// Supported backends
const (
	StorageGCS   = "gcs"
	StorageLocal = "local"

	OCRDocumentAI = "documentai"
	OCRVision     = "vision"
	OCRBlockFile  = "blockfile"

	RecordsSQLite   = "sqlite"
	RecordsPostgres = "postgres"
	RecordsSheets   = "sheets"
)

// DefaultClassificationPrompt asks the model for a True/False verdict.
const DefaultClassificationPrompt = "Your function is to read the contents of a PDF file, and determine if the file is an Auto Insurance Document. Answer with True or False"

type Config struct {
	// Buckets
	StagingBucket string `yaml:"staging_bucket"`
	TextBucket    string `yaml:"text_bucket"`
	ReviewBucket  string `yaml:"review_bucket"`
	ArchiveBucket string `yaml:"archive_bucket"`

	// Destination prefixes
	ReviewPrefix  string `yaml:"review_prefix"`
	ArchivePrefix string `yaml:"archive_prefix"`
	SkippedPrefix string `yaml:"skipped_prefix"`

	// Object storage backend
	StorageBackend   string `yaml:"storage_backend"`
	LocalStorageRoot string `yaml:"local_storage_root"`

	// OCR Configuration
	OCRProvider        string        `yaml:"ocr_provider"`
	OCRPollMaxAttempts int           `yaml:"ocr_poll_max_attempts"`
	OCRPollDelay       time.Duration `yaml:"ocr_poll_delay"`

	// Google Cloud Configuration
	GoogleCloudProject         string `yaml:"google_cloud_project"`
	GoogleCloudLocation        string `yaml:"google_cloud_location"`
	DocumentAIProcessorID      string `yaml:"document_ai_processor_id"`
	DocumentAIProcessorVersion string `yaml:"document_ai_processor_version"`
	DocumentAIOutputBucket     string `yaml:"document_ai_output_bucket"`

	// Classification Configuration
	OpenAIAPIKey         string        `yaml:"-"`
	OpenAIBaseURL        string        `yaml:"openai_base_url"`
	OpenAIModel          string        `yaml:"openai_model"`
	OpenAIMaxTokens      int           `yaml:"openai_max_tokens"`
	OpenAITemperature    float64       `yaml:"openai_temperature"`
	OpenAIMaxAttempts    int           `yaml:"openai_max_attempts"`
	OpenAIRetryDelay     time.Duration `yaml:"openai_retry_delay"`
	ClassificationPrompt string        `yaml:"classification_prompt"`

	// Structured store Configuration
	RecordStore          string `yaml:"record_store"`
	SQLitePath           string `yaml:"sqlite_path"`
	DatabaseURL          string `yaml:"-"`
	GoogleSheetURL       string `yaml:"google_sheet_url"`
	GoogleSheetWorksheet string `yaml:"google_sheet_worksheet"`

	// Routing and batching
	NoDataPolicy string `yaml:"no_data_policy"`
	BatchWorkers int    `yaml:"batch_workers"`

	// Logging Configuration
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	LogTimeFormat string `yaml:"log_time_format"`
	LogOutput     string `yaml:"log_output"`
}

// Default returns the configuration used before any file or environment is applied.
func Default() *Config {
	return &Config{
		ReviewPrefix:         "review_docs",
		ArchivePrefix:        "archived_docs",
		SkippedPrefix:        "skipped",
		StorageBackend:       StorageGCS,
		LocalStorageRoot:     "./data",
		OCRProvider:          OCRDocumentAI,
		OCRPollMaxAttempts:   30,
		OCRPollDelay:         10 * time.Second,
		GoogleCloudLocation:  "us",
		OpenAIModel:          "gpt-4o-mini",
		OpenAIMaxTokens:      500,
		OpenAIMaxAttempts:    3,
		OpenAIRetryDelay:     2 * time.Second,
		ClassificationPrompt: DefaultClassificationPrompt,
		RecordStore:          RecordsSQLite,
		SQLitePath:           "claims.db",
		GoogleSheetWorksheet: "Claims",
		NoDataPolicy:         "archive",
		BatchWorkers:         4,
		LogLevel:             "info",
		LogFormat:            "console",
		LogTimeFormat:        "2006-01-02T15:04:05Z07:00",
		LogOutput:            "stdout",
	}
}

// Load builds the configuration from defaults, the optional YAML file at path
// and the environment, in that order of precedence.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.applyEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) applyEnv() {
	c.StagingBucket = getEnv("STAGING_BUCKET", c.StagingBucket)
	c.TextBucket = getEnv("TEXT_BUCKET", c.TextBucket)
	c.ReviewBucket = getEnv("REVIEW_BUCKET", c.ReviewBucket)
	c.ArchiveBucket = getEnv("ARCHIVE_BUCKET", c.ArchiveBucket)
	c.ReviewPrefix = getEnv("REVIEW_PREFIX", c.ReviewPrefix)
	c.ArchivePrefix = getEnv("ARCHIVE_PREFIX", c.ArchivePrefix)
	c.SkippedPrefix = getEnv("SKIPPED_PREFIX", c.SkippedPrefix)
	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.LocalStorageRoot = getEnv("LOCAL_STORAGE_ROOT", c.LocalStorageRoot)
	c.OCRProvider = getEnv("OCR_PROVIDER", c.OCRProvider)
	c.OCRPollMaxAttempts = getEnvInt("OCR_POLL_MAX_ATTEMPTS", c.OCRPollMaxAttempts)
	c.OCRPollDelay = getEnvDuration("OCR_POLL_DELAY", c.OCRPollDelay)
	c.GoogleCloudProject = getEnv("GOOGLE_CLOUD_PROJECT", c.GoogleCloudProject)
	c.GoogleCloudLocation = getEnv("GOOGLE_CLOUD_LOCATION", c.GoogleCloudLocation)
	c.DocumentAIProcessorID = getEnv("DOCUMENT_AI_PROCESSOR_ID", c.DocumentAIProcessorID)
	c.DocumentAIProcessorVersion = getEnv("DOCUMENT_AI_PROCESSOR_VERSION", c.DocumentAIProcessorVersion)
	c.DocumentAIOutputBucket = getEnv("DOCUMENT_AI_OUTPUT_BUCKET", c.DocumentAIOutputBucket)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.OpenAIModel = getEnv("OPENAI_MODEL", c.OpenAIModel)
	c.OpenAIMaxTokens = getEnvInt("OPENAI_MAX_TOKENS", c.OpenAIMaxTokens)
	c.OpenAITemperature = getEnvFloat("OPENAI_TEMPERATURE", c.OpenAITemperature)
	c.OpenAIMaxAttempts = getEnvInt("OPENAI_MAX_ATTEMPTS", c.OpenAIMaxAttempts)
	c.OpenAIRetryDelay = getEnvDuration("OPENAI_RETRY_DELAY", c.OpenAIRetryDelay)
	c.ClassificationPrompt = getEnv("CLASSIFICATION_PROMPT", c.ClassificationPrompt)
	c.RecordStore = getEnv("RECORD_STORE", c.RecordStore)
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.GoogleSheetURL = getEnv("GOOGLE_SHEET_URL", c.GoogleSheetURL)
	c.GoogleSheetWorksheet = getEnv("GOOGLE_SHEET_WORKSHEET", c.GoogleSheetWorksheet)
	c.NoDataPolicy = getEnv("NO_DATA_POLICY", c.NoDataPolicy)
	c.BatchWorkers = getEnvInt("BATCH_WORKERS", c.BatchWorkers)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.LogTimeFormat = getEnv("LOG_TIME_FORMAT", c.LogTimeFormat)
	c.LogOutput = getEnv("LOG_OUTPUT", c.LogOutput)
}

func (c *Config) validate() error {
	if c.StagingBucket == "" {
		return fmt.Errorf("STAGING_BUCKET is required")
	}
	if c.TextBucket == "" {
		return fmt.Errorf("TEXT_BUCKET is required")
	}
	if c.ReviewBucket == "" {
		return fmt.Errorf("REVIEW_BUCKET is required")
	}
	if c.ArchiveBucket == "" {
		return fmt.Errorf("ARCHIVE_BUCKET is required")
	}

	switch c.StorageBackend {
	case StorageGCS, StorageLocal:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q (gcs, local)", c.StorageBackend)
	}

	switch c.OCRProvider {
	case OCRDocumentAI:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required for the documentai OCR provider")
		}
		if c.DocumentAIProcessorID == "" {
			return fmt.Errorf("DOCUMENT_AI_PROCESSOR_ID is required for the documentai OCR provider")
		}
		if c.DocumentAIOutputBucket == "" {
			return fmt.Errorf("DOCUMENT_AI_OUTPUT_BUCKET is required for the documentai OCR provider")
		}
	case OCRVision, OCRBlockFile:
	default:
		return fmt.Errorf("unsupported OCR_PROVIDER %q (documentai, vision, blockfile)", c.OCRProvider)
	}
	if c.OCRPollMaxAttempts <= 0 {
		return fmt.Errorf("OCR_POLL_MAX_ATTEMPTS must be positive")
	}
	if c.OCRPollDelay < 0 {
		return fmt.Errorf("OCR_POLL_DELAY must not be negative")
	}

	if c.OpenAIMaxAttempts <= 0 {
		return fmt.Errorf("OPENAI_MAX_ATTEMPTS must be positive")
	}
	if c.OpenAIRetryDelay < 0 {
		return fmt.Errorf("OPENAI_RETRY_DELAY must not be negative")
	}
	if c.OpenAIMaxTokens < 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must not be negative")
	}

	switch c.RecordStore {
	case RecordsSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite record store")
		}
	case RecordsPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres record store")
		}
	case RecordsSheets:
		if c.GoogleSheetURL == "" {
			return fmt.Errorf("GOOGLE_SHEET_URL is required for the sheets record store")
		}
	default:
		return fmt.Errorf("unsupported RECORD_STORE %q (sqlite, postgres, sheets)", c.RecordStore)
	}

	switch strings.ToLower(c.NoDataPolicy) {
	case "archive", "review":
	default:
		return fmt.Errorf("unsupported NO_DATA_POLICY %q (archive, review)", c.NoDataPolicy)
	}
	if c.BatchWorkers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be positive")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are seconds
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
