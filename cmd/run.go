package cmd

import (
	"github.com/spf13/cobra"

	"intake/internal/logger"
)

var runCmd = &cobra.Command{
	Use:   "run [folder-prefix]",
	Short: "Process a staged folder end to end",
	Long: `Run intake, classification and routing for every document under a folder
prefix of the staging bucket.

Steps:
  1. Every PDF is analyzed with OCR; text (.txt) and key/value (.json)
     artifacts are written to the text bucket. Other files are moved to
     the review bucket under the skipped prefix.
  2. Each extracted document is classified by the language model.
  3. Claim documents are normalized into claim records, persisted and
     archived; other documents are moved to human review.

Documents are processed in parallel (BATCH_WORKERS, default 4). A failing
document never stops the batch; it stays in staging and is listed as an
error in the summary.`,
	Example: `  # Process a folder with the default configuration
  intake run claims/2024-06-01/

  # Use a configuration file and local storage
  STORAGE_BACKEND=local intake run claims/2024-06-01/ --config pipeline.yaml

  # Send documents without extracted data to review instead of the archive
  NO_DATA_POLICY=review intake run claims/2024-06-01/`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("run")
	prefix := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Info().
		Str("prefix", prefix).
		Str("staging_bucket", cfg.StagingBucket).
		Str("ocr_provider", cfg.OCRProvider).
		Str("record_store", cfg.RecordStore).
		Int("workers", cfg.BatchWorkers).
		Msg("Starting pipeline run")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	p, res, err := newPipeline(ctx, cfg, needOCR|needClassifier|needRecords, log)
	if err != nil {
		return err
	}
	defer res.Close()

	report, err := p.Run(ctx, prefix)
	if report != nil {
		printReport(report)
	}
	if err != nil {
		return handlePipelineError(err, log)
	}
	return nil
}
