package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/Nestour97/dsp-scraper/internal/cli"
	"github.com/Nestour97/dsp-scraper/logger"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := cli.Execute(); err != nil {
		logger.Default.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
