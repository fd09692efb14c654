package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intake/internal/artifacts"
	"intake/internal/extraction"
	"intake/internal/logger"
	"intake/internal/normalize"
	"intake/internal/ocr"
	"intake/internal/records"
)

var kvCmd = &cobra.Command{
	Use:   "kv [blocks.json]",
	Short: "Resolve key/value pairs from a local OCR block file",
	Long: `Read a block file (an object with a "Blocks" array, as written by the OCR
analysis) and print the resolved key/value mapping in artifact form. With
--record, the canonical claim record derived from the mapping is printed as
well.

No configuration or cloud access is needed.`,
	Example: `  intake kv claim.pdf.blocks.json
  intake kv claim.pdf.blocks.json --record`,
	Args: cobra.ExactArgs(1),
	RunE: runKV,
}

var exportCmd = &cobra.Command{
	Use:   "export-records",
	Short: "Export stored claim records to an Excel workbook",
	Long: `Read every claim record from the configured record store (RECORD_STORE)
and write them to an .xlsx workbook, one row per record.`,
	Example: `  intake export-records -o claims.xlsx
  RECORD_STORE=postgres intake export-records -o claims.xlsx`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(kvCmd)
	rootCmd.AddCommand(exportCmd)

	kvCmd.Flags().Bool("record", false, "Also print the normalized claim record")
	exportCmd.Flags().StringP("output", "o", "claims.xlsx", "Output file path")
}

func runKV(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("kv")
	path := args[0]
	withRecord, _ := cmd.Flags().GetBool("record")

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Failed to read block file")
		return fmt.Errorf("failed to read block file: %w", err)
	}

	var page ocr.BlockPage
	if err := json.Unmarshal(data, &page); err != nil {
		return fmt.Errorf("invalid block file %s: %w", path, err)
	}

	kvs := extraction.Resolve(page.Blocks)
	out, err := artifacts.EncodeKeyValues(kvs)
	if err != nil {
		return fmt.Errorf("failed to encode key/values: %w", err)
	}
	fmt.Println(string(out))

	if withRecord {
		result := normalize.Normalize(normalize.FileNameFor(path), kvs)
		rec, err := json.MarshalIndent(result.Record, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		fmt.Println(string(rec))
		if !result.Persistable() {
			fmt.Println("Record has no attributes and would not be persisted")
		}
	}

	log.Debug().
		Str("file", path).
		Int("blocks", len(page.Blocks)).
		Int("keys", kvs.Len()).
		Msg("Block file resolved")
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("export")
	outputPath, _ := cmd.Flags().GetString("output")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(cmd, log)
	defer cancel()

	store, err := createRecordStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close()

	lister, ok := store.(records.Lister)
	if !ok {
		return fmt.Errorf("record store %s cannot list records", cfg.RecordStore)
	}

	data, count, err := records.Export(ctx, lister)
	if err != nil {
		return handlePipelineError(err, log)
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		log.Error().
			Err(err).
			Str("output_file", outputPath).
			Msg("Failed to write output file")
		return fmt.Errorf("failed to write output file: %w", err)
	}

	log.Info().
		Str("output_file", outputPath).
		Int("records", count).
		Msg("Records exported")
	fmt.Printf("Exported %d records to %s\n", count, outputPath)
	return nil
}
