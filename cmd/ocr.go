package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"intake/internal/extraction"
	"intake/internal/logger"
	"intake/internal/ocr"
	"intake/internal/storage"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [file]",
	Short: "Run OCR on one staged document",
	Long: `Analyze a single document from the staging bucket with the configured OCR
provider (OCR_PROVIDER) and print its page text.

With --json the raw block graph is written instead, in the block file format
read by the blockfile provider and the kv command. Saving it as
<file>.blocks.json next to the document lets later runs skip the OCR call.

Required environment variables for Google providers:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID`,
	Example: `  # Print the page text of a staged document
  intake ocr claims/2024-06-01/claim-0042.pdf

  # Save the block graph for offline runs
  intake ocr claims/2024-06-01/claim-0042.pdf --json -o claim-0042.pdf.blocks.json

  # Read from another bucket
  intake ocr scans/claim.pdf --bucket human-review`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().Bool("json", false, "Output the block graph as JSON")
	ocrCmd.Flags().String("bucket", "", "Bucket holding the document (default: staging bucket)")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	bucket, _ := cmd.Flags().GetString("bucket")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if bucket == "" {
		bucket = cfg.StagingBucket
	}
	loc := storage.Location{Bucket: bucket, Key: args[0]}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	res := &resources{log: log}
	defer res.Close()

	objects, err := createObjectStore(ctx, cfg, res, log)
	if err != nil {
		return err
	}
	provider, err := createOCRProvider(ctx, cfg, objects, res, log)
	if err != nil {
		return err
	}

	log.Info().
		Str("document", loc.String()).
		Str("provider", cfg.OCRProvider).
		Msg("Starting OCR processing")

	startTime := time.Now()
	blocks, err := ocr.Analyze(ctx, provider, loc, ocr.PollConfig{
		MaxAttempts: cfg.OCRPollMaxAttempts,
		Delay:       cfg.OCRPollDelay,
	})
	if err != nil {
		return handlePipelineError(err, log)
	}

	log.Info().
		Int("blocks", len(blocks)).
		Dur("duration", time.Since(startTime)).
		Msg("OCR processing completed successfully")

	var outputData []byte
	if jsonOutput {
		outputData, err = json.MarshalIndent(ocr.BlockPage{Blocks: blocks}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		outputData = []byte(extraction.PageText(blocks) + "\n")
	}

	if outputPath == "" {
		_, err = os.Stdout.Write(outputData)
		return err
	}
	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}
	log.Info().
		Str("output_file", outputPath).
		Int("bytes", len(outputData)).
		Msg("OCR results written to file")
	return nil
}
