package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intake/internal/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [folder-prefix]",
	Short: "OCR every PDF in a staged folder and write its artifacts",
	Long: `Analyze every PDF under a folder prefix of the staging bucket and write
two artifacts per document to the text bucket:

  <key>.txt   page text, lines joined by single spaces
  <key>.json  the form's key/value pairs, each key mapped to a list of values

Folder markers are mirrored into the text bucket. Files that are not PDFs
are moved to the review bucket under the skipped prefix.`,
	Example: `  # Extract a folder with Document AI
  intake extract claims/2024-06-01/

  # Use precomputed block files stored next to each PDF
  OCR_PROVIDER=blockfile intake extract claims/2024-06-01/`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var classifyCmd = &cobra.Command{
	Use:   "classify [folder-prefix]",
	Short: "Classify the extracted documents of a folder",
	Long: `Ask the language model whether each extracted document under a folder
prefix is a claim document. The text artifacts in the text bucket are
classified; key/value artifacts and folder markers are ignored.

The model's answer counts as a claim document when it contains "true" in
any case. Documents whose classification failed are reported with the error.`,
	Example: `  # Print the classification of every document as JSON
  intake classify claims/2024-06-01/`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

var archiveCmd = &cobra.Command{
	Use:   "archive [file]",
	Short: "Persist the claim record of a document and archive it",
	Long: `Normalize the key/value artifact of one document into a claim record,
persist the record when it carries attributes and move the document to the
archive bucket under the archive prefix. The text and key/value artifacts
are deleted afterwards.

The file may be the document key or one of its artifact keys.`,
	Example: `  intake archive claims/2024-06-01/claim-0042.pdf
  intake archive claims/2024-06-01/claim-0042.pdf.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

var reviewCmd = &cobra.Command{
	Use:   "review [file]",
	Short: "Move a document to human review",
	Long: `Move one document from the staging bucket to the review bucket under the
review prefix and delete its artifacts.`,
	Example: `  intake review claims/2024-06-01/letter.pdf`,
	Args:    cobra.ExactArgs(1),
	RunE:    runReview,
}

var moveFolderCmd = &cobra.Command{
	Use:   "move-folder [folder-prefix]",
	Short: "Move a folder between buckets",
	Long: `Move every object under a folder prefix from one bucket to another,
keeping keys. With --purge, the same prefix is deleted from a third bucket
afterwards, for example to clear leftover artifacts from the text bucket.

Defaults move the folder from the staging bucket to the review bucket.`,
	Example: `  # Send a whole folder to human review and clear its artifacts
  intake move-folder claims/2024-06-01/ --purge text

  # Move between explicit buckets
  intake move-folder claims/2024-06-01/ --from scanning-in-process --to archive`,
	Args: cobra.ExactArgs(1),
	RunE: runMoveFolder,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(moveFolderCmd)

	moveFolderCmd.Flags().String("from", "", "Source bucket (default: staging bucket)")
	moveFolderCmd.Flags().String("to", "", "Destination bucket (default: review bucket)")
	moveFolderCmd.Flags().String("purge", "", "Bucket to delete the prefix from afterwards (staging, text, review, archive or a bucket name)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	p, res, err := newPipeline(ctx, cfg, needOCR, log)
	if err != nil {
		return err
	}
	defer res.Close()

	result, err := p.Extract(ctx, args[0])
	if result != nil {
		fmt.Printf("Extracted: %d\n", len(result.Extracted))
		for _, doc := range result.Skipped {
			fmt.Printf("Skipped (not a PDF): %s\n", doc.Key)
		}
		for _, doc := range result.Failed {
			fmt.Printf("Failed: %s (%v)\n", doc.Key, doc.Err)
		}
	}
	if err != nil {
		return handlePipelineError(err, log)
	}
	return nil
}

// classificationOutput is the JSON shape printed by the classify command
type classificationOutput struct {
	File     string `json:"file"`
	IsTarget bool   `json:"is_claims_document"`
	Verdict  string `json:"verdict,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("classify")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	p, res, err := newPipeline(ctx, cfg, needClassifier, log)
	if err != nil {
		return err
	}
	defer res.Close()

	results, err := p.Classify(ctx, args[0])
	if err != nil {
		return handlePipelineError(err, log)
	}

	out := make([]classificationOutput, 0, len(results))
	for _, c := range results {
		o := classificationOutput{File: c.File, IsTarget: c.IsTarget, Verdict: c.Verdict}
		if c.Err != nil {
			o.Error = c.Err.Error()
		}
		out = append(out, o)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func runArchive(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("archive")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	p, res, err := newPipeline(ctx, cfg, needRecords, log)
	if err != nil {
		return err
	}
	defer res.Close()

	doc, err := p.Archive(ctx, args[0])
	if err != nil {
		return handlePipelineError(err, log)
	}

	fmt.Printf("%s -> %s (%s)\n", doc.Key, doc.Decision.Source, doc.Outcome)
	if doc.Persisted {
		fmt.Printf("Record stored: claim %s, file %s\n", doc.Record.ClaimNumber, doc.Record.FileName)
	}
	return nil
}

func runReview(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("review")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	p, res, err := newPipeline(ctx, cfg, 0, log)
	if err != nil {
		return err
	}
	defer res.Close()

	doc, err := p.Review(ctx, args[0])
	if err != nil {
		return handlePipelineError(err, log)
	}
	fmt.Printf("%s -> %s\n", doc.Key, doc.Decision.Source)
	return nil
}

func runMoveFolder(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("move-folder")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	purge, _ := cmd.Flags().GetString("purge")

	aliases := map[string]string{
		"staging": cfg.StagingBucket,
		"text":    cfg.TextBucket,
		"review":  cfg.ReviewBucket,
		"archive": cfg.ArchiveBucket,
	}
	resolve := func(name, fallback string) string {
		if name == "" {
			return fallback
		}
		if bucket, ok := aliases[name]; ok {
			return bucket
		}
		return name
	}
	from = resolve(from, cfg.StagingBucket)
	to = resolve(to, cfg.ReviewBucket)
	purge = resolve(purge, "")

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	p, res, err := newPipeline(ctx, cfg, 0, log)
	if err != nil {
		return err
	}
	defer res.Close()

	moved, err := p.MoveFolder(ctx, args[0], from, to, purge)
	if err != nil {
		return handlePipelineError(err, log)
	}
	fmt.Printf("Moved %d objects from %s to %s\n", moved, from, to)
	return nil
}
