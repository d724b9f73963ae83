// Package main implements the vivial-ingest service binary.
// The service normalizes behavioral event payloads into typed atom records,
// writes them to per-tenant warehouse tables, and keeps the derived virtual
// event views synchronized.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/bricker/vivial-sub003/internal/app"
	"github.com/bricker/vivial-sub003/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		environment string
		httpAddr    string
		projectID   string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for local data files")
	flag.StringVar(&environment, "environment", "", "Deployment environment: production, development, test")
	flag.StringVar(&httpAddr, "http-addr", "", "HTTP listen address")
	flag.StringVar(&projectID, "project-id", "", "GCP project for tenant datasets")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "vivial-ingest - behavioral event ingestion and view synchronization\n\n")
		fmt.Fprintf(os.Stderr, "Usage: vivial-ingest [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  vivial-ingest --project-id my-project --data-dir /data/vivial\n")
		fmt.Fprintf(os.Stderr, "  vivial-ingest --config /etc/vivial/config.yaml\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  VIVIAL_ENVIRONMENT           Deployment environment\n")
		fmt.Fprintf(os.Stderr, "  VIVIAL_DATA_DIR              Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  VIVIAL_HTTP_ADDR             HTTP listen address\n")
		fmt.Fprintf(os.Stderr, "  VIVIAL_WAREHOUSE_PROJECT_ID  GCP project for tenant datasets\n")
		fmt.Fprintf(os.Stderr, "  VIVIAL_REDACTION_ENDPOINT    Redaction classifier base URL\n")
		fmt.Fprintf(os.Stderr, "  VIVIAL_ARCHIVE_TYPE          Archive storage type (local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("vivial-ingest version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// A .env file is optional; absence is not an error.
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := loadConfig(configFile, dataDir, environment, httpAddr, projectID)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printBanner(cfg)

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := application.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	log.Printf("Received signal: %v", sig)

	if err := application.Stop(context.Background()); err != nil {
		log.Printf("Shutdown error: %v", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dataDir, environment, httpAddr, projectID string) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	// Command line flags have the highest priority
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if environment != "" {
		cfg.Environment = config.Environment(environment)
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}
	if projectID != "" {
		cfg.Warehouse.ProjectID = projectID
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("vivial-ingest starting")
	log.Printf("Configuration:")
	log.Printf("  Environment: %s", cfg.Environment)
	log.Printf("  Data Dir:    %s", cfg.DataDir)
	log.Printf("  HTTP:        %s", cfg.HTTP.Addr)
	log.Printf("  Project:     %s", cfg.Warehouse.ProjectID)
	log.Printf("  Redaction:   enabled=%t", cfg.Redaction.Enabled)
	log.Printf("  Archive:     enabled=%t type=%s", cfg.Archive.Enabled, cfg.Archive.Type)
}
