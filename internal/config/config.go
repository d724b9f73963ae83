// Package config provides unified configuration for the Vivial ingest service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
)

// Config holds the unified configuration for the ingest service.
type Config struct {
	// Environment is the deployment environment: production, development, test
	Environment Environment `json:"environment" yaml:"environment"`

	// DataDir is the base directory for local data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Warehouse configuration
	Warehouse WarehouseConfig `json:"warehouse" yaml:"warehouse"`

	// Control-table configuration
	Control ControlConfig `json:"control" yaml:"control"`

	// Redaction configuration
	Redaction RedactionConfig `json:"redaction" yaml:"redaction"`

	// Archive configuration
	Archive ArchiveConfig `json:"archive" yaml:"archive"`

	// Ingest configuration
	Ingest IngestConfig `json:"ingest" yaml:"ingest"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address for the ingest API
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// WarehouseConfig holds warehouse connection configuration.
type WarehouseConfig struct {
	// ProjectID is the GCP project the tenant datasets live in
	ProjectID string `json:"project_id" yaml:"project_id"`
}

// ControlConfig holds control-table configuration.
type ControlConfig struct {
	// Path is the SQLite database path (empty resolves under DataDir)
	Path string `json:"path" yaml:"path"`
}

// RedactionConfig holds redaction classifier configuration.
type RedactionConfig struct {
	// Enabled controls whether rows are redacted before warehouse writes
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Endpoint is the classifier service base URL
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Timeout is the per-call classifier timeout
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ArchiveConfig holds raw-payload archive configuration.
type ArchiveConfig struct {
	// Enabled controls whether raw batches are archived
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Type is the archive storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local archive path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 archive configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// IngestConfig holds ingest behavior configuration.
type IngestConfig struct {
	// AccountKey is the symmetric key for decrypting account attributes
	AccountKey string `json:"account_key" yaml:"account_key"`

	// MaxBatchEvents caps the events accepted per HTTP request
	MaxBatchEvents int `json:"max_batch_events" yaml:"max_batch_events"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		DataDir:     "./data/vivial",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Warehouse: WarehouseConfig{},
		Control:   ControlConfig{},
		Redaction: RedactionConfig{
			Enabled: false,
			Timeout: 10 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "local",
		},
		Ingest: IngestConfig{
			MaxBatchEvents: 500,
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/vivial"
	}

	if c.Control.Path == "" {
		c.Control.Path = filepath.Join(c.DataDir, "virtual_events.db")
	}

	if c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(c.DataDir, "archive")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Environment {
	case EnvProduction, EnvDevelopment, EnvTest:
		// Valid environments
	default:
		return fmt.Errorf("invalid environment: %s (must be production, development, or test)", c.Environment)
	}

	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Warehouse.ProjectID == "" {
		return fmt.Errorf("warehouse.project_id is required")
	}

	if c.Archive.Type != "local" && c.Archive.Type != "s3" {
		return fmt.Errorf("invalid archive type: %s (must be local or s3)", c.Archive.Type)
	}

	if c.Archive.Enabled && c.Archive.Type == "s3" && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket is required when archive type is s3")
	}

	if c.Redaction.Enabled && c.Redaction.Endpoint == "" {
		return fmt.Errorf("redaction.endpoint is required when redaction is enabled")
	}

	if c.Ingest.MaxBatchEvents <= 0 {
		return fmt.Errorf("ingest.max_batch_events must be positive, got %d", c.Ingest.MaxBatchEvents)
	}

	return nil
}

// StrictSchema reports whether warehouse schema-update rejections should be
// raised as errors. In production they are logged and absorbed.
func (c *Config) StrictSchema() bool {
	return c.Environment != EnvProduction
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the VIVIAL_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("VIVIAL_ENVIRONMENT"); v != "" {
		cfg.Environment = Environment(v)
	}
	if v := os.Getenv("VIVIAL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	// HTTP configuration
	if v := os.Getenv("VIVIAL_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// Warehouse configuration
	if v := os.Getenv("VIVIAL_WAREHOUSE_PROJECT_ID"); v != "" {
		cfg.Warehouse.ProjectID = v
	}

	// Control configuration
	if v := os.Getenv("VIVIAL_CONTROL_PATH"); v != "" {
		cfg.Control.Path = v
	}

	// Redaction configuration
	if v := os.Getenv("VIVIAL_REDACTION_ENABLED"); v != "" {
		cfg.Redaction.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("VIVIAL_REDACTION_ENDPOINT"); v != "" {
		cfg.Redaction.Endpoint = v
	}
	if v := os.Getenv("VIVIAL_REDACTION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Redaction.Timeout = d
		}
	}

	// Archive configuration
	if v := os.Getenv("VIVIAL_ARCHIVE_ENABLED"); v != "" {
		cfg.Archive.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("VIVIAL_ARCHIVE_TYPE"); v != "" {
		cfg.Archive.Type = v
	}
	if v := os.Getenv("VIVIAL_ARCHIVE_PATH"); v != "" {
		cfg.Archive.Path = v
	}
	if v := os.Getenv("VIVIAL_ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3.Bucket = v
	}
	if v := os.Getenv("VIVIAL_ARCHIVE_S3_REGION"); v != "" {
		cfg.Archive.S3.Region = v
	}
	if v := os.Getenv("VIVIAL_ARCHIVE_S3_ENDPOINT"); v != "" {
		cfg.Archive.S3.Endpoint = v
	}

	// Ingest configuration
	if v := os.Getenv("VIVIAL_INGEST_ACCOUNT_KEY"); v != "" {
		cfg.Ingest.AccountKey = v
	}
	if v := os.Getenv("VIVIAL_INGEST_MAX_BATCH_EVENTS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Ingest.MaxBatchEvents)
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Archive.Enabled && c.Archive.Type == "local" {
		dirs = append(dirs, c.Archive.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
