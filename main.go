package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"intake/cmd"
	"intake/internal/config"
	"intake/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Commands reload the configuration once flags are parsed
	cfg, err := config.Load(os.Getenv("PIPELINE_CONFIG"))
	if err != nil {
		if err := logger.Setup(logger.DefaultConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	} else {
		if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
	}

	log := logger.WithComponent("main")
	log.Debug().Msg("Starting Intake CLI application")

	cmd.Execute()

	log.Debug().Msg("Intake CLI application shutdown")
	os.Exit(0)
}
