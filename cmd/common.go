package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"intake/internal/artifacts"
	"intake/internal/classify"
	"intake/internal/ocr"
	"intake/internal/pipeline"
	"intake/internal/records"
	"intake/internal/routing"
	"intake/internal/storage"
)

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(cmd *cobra.Command, log zerolog.Logger) (context.Context, context.CancelFunc) {
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// handlePipelineError provides user-friendly error messages for pipeline failures
func handlePipelineError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Pipeline command failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller folder")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, pipeline.ErrMissingPrefix):
		return fmt.Errorf("a folder prefix is required, for example: claims/2024-06-01/")
	case errors.Is(err, pipeline.ErrMissingFile):
		return fmt.Errorf("file not found in the staging bucket: %w", err)
	case errors.Is(err, pipeline.ErrNoDocuments):
		return fmt.Errorf("no PDF files found in the folder; other files were moved to human review")
	case errors.Is(err, ocr.ErrJobTimeout):
		return fmt.Errorf("OCR did not finish in time. Increase OCR_POLL_MAX_ATTEMPTS or OCR_POLL_DELAY: %w", err)
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return fmt.Errorf("document format is not supported by the OCR provider: %w", err)
	case errors.Is(err, classify.ErrMissingAPIKey):
		return fmt.Errorf("OPENAI_API_KEY is not set. Add it to your environment or .env file")
	case errors.Is(err, records.ErrInvalidSheetURL):
		return fmt.Errorf("GOOGLE_SHEET_URL is not a valid Google Sheets URL")
	case errors.Is(err, artifacts.ErrInvalidKeyValues):
		return fmt.Errorf("key/value artifact is malformed; rerun extraction for this folder: %w", err)
	case errors.Is(err, storage.ErrInvalidLocation):
		return fmt.Errorf("bucket and key are required: %w", err)
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n" +
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n" +
			"2. Or set GOOGLE_CREDENTIALS with inline JSON\n" +
			"3. Or run: gcloud auth application-default login\n\n" +
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. Check that the service account can read and write the configured buckets: %w", err)
	default:
		return err
	}
}

// printReport prints a run summary
func printReport(report *pipeline.Report) {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Run: %s\n", report.RunID)
	fmt.Printf("Folder: %s\n", report.Prefix)
	fmt.Println(strings.Repeat("=", 80))

	for i, doc := range report.Documents {
		status := getStatusEmoji(doc)
		fmt.Printf("[%d/%d] %s - %s %s -> %s", i+1, len(report.Documents), doc.Key, status, doc.Outcome, doc.Decision.Source)
		if doc.Err != nil {
			fmt.Printf(" (%s)", doc.Err.Error())
		} else if doc.Record != nil && doc.Record.ClaimNumber != "" {
			fmt.Printf(" (claim %s)", doc.Record.ClaimNumber)
		}
		fmt.Println()
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Archived with data: %d\n", report.Count(routing.SucceededWithData))
	fmt.Printf("Archived/reviewed without data: %d\n", report.Count(routing.SucceededNoData))
	fmt.Printf("Not a claim document: %d\n", report.Count(routing.ClassifiedNonTarget))
	fmt.Printf("Skipped (not a PDF): %d\n", report.Count(routing.UnsupportedFormat))
	if failed := len(report.Failed()); failed > 0 {
		fmt.Printf("Errors: %d\n", failed)
	}
}

// getStatusEmoji returns an emoji for the document status
func getStatusEmoji(doc pipeline.DocumentResult) string {
	switch {
	case doc.Err != nil:
		return "❌"
	case doc.Outcome == routing.UnsupportedFormat || doc.Outcome == routing.SucceededNoData:
		return "⚠️"
	default:
		return "✅"
	}
}
