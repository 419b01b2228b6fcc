package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/localnerve/layersdb/internal/config"
	"github.com/localnerve/layersdb/internal/database"
	"github.com/localnerve/layersdb/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	zlog := cfg.Logger(os.Stderr)

	db, err := database.Connect(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Perform health check
	result := services.HealthCheck(ctx, cfg, db)

	// Output result as JSON
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to marshal health check result")
	}
	fmt.Println(string(output))

	// Exit with appropriate code
	if result.Status != "healthy" {
		os.Exit(1)
	}
}
