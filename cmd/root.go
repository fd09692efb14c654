package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"intake/internal/config"
	"intake/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "Claims document intake - OCR, classify and route scanned claim documents",
	Long: `Intake processes folders of scanned documents from a staging bucket.

Each PDF is analyzed with OCR, its form fields are resolved into key/value
pairs and a language model decides whether it is a claim document. Claim
documents are normalized into claim records, persisted and archived; other
documents are moved to human review.

Configuration is read from an optional YAML file (--config or PIPELINE_CONFIG)
and environment variables, which take precedence. A .env file in the working
directory is loaded on startup.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Intake CLI executed")

		fmt.Println("Welcome to Intake!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", os.Getenv("PIPELINE_CONFIG"), "Path to a YAML configuration file")
	rootCmd.PersistentFlags().Int("timeout", 1800, "Processing timeout in seconds")
}

// loadConfig loads the configuration named by --config and reconfigures the
// logger from it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
