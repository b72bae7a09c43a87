package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lumadocs/driveline/internal/domain"
)

// Config is the complete configuration for driveline
type Config struct {
	Drive     DriveConfig     `mapstructure:"drive"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	API       APIConfig       `mapstructure:"api"`
	Log       LogConfig       `mapstructure:"log"`
}

// DriveConfig configures the Google Drive source
type DriveConfig struct {
	// FolderID is the Drive folder the sync pass traverses from
	FolderID string `mapstructure:"folder_id"`

	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenPath    string `mapstructure:"token_path"`
}

// SyncConfig configures the sync orchestrator
type SyncConfig struct {
	// Interval between automatic passes
	Interval time.Duration `mapstructure:"interval"`

	// MaxFiles is the traversal hard stop on discovered files
	MaxFiles int `mapstructure:"max_files"`

	// MaxDepth is the traversal hard stop on folder depth
	MaxDepth int `mapstructure:"max_depth"`

	// StaleTimeout after which an in-progress pass is considered abandoned
	StaleTimeout time.Duration `mapstructure:"stale_timeout"`

	// Workers bounds concurrent per-file operations within one pass
	Workers int `mapstructure:"workers"`

	// PathPrefix is prepended to remote paths to form logical paths
	PathPrefix string `mapstructure:"path_prefix"`
}

// RetryConfig configures the resilience layer around remote calls
type RetryConfig struct {
	MaxRetries         int           `mapstructure:"max_retries"`
	BaseDelay          time.Duration `mapstructure:"base_delay"`
	MaxDelay           time.Duration `mapstructure:"max_delay"`
	MinRequestInterval time.Duration `mapstructure:"min_request_interval"`
	FailureThreshold   int           `mapstructure:"failure_threshold"`
	RecoveryTimeout    time.Duration `mapstructure:"recovery_timeout"`
}

// StorageConfig configures local persistence
type StorageConfig struct {
	// BlobRoot is the directory backing the blob store
	BlobRoot string `mapstructure:"blob_root"`

	// DataDir holds the sync state marker and pass-history database
	DataDir string `mapstructure:"data_dir"`
}

// VectorConfig configures the pgvector-backed index
type VectorConfig struct {
	// DSN is the Postgres connection string; empty disables indexing
	DSN string `mapstructure:"dsn"`

	// Dimension of stored embeddings
	Dimension int `mapstructure:"dimension"`
}

// EmbeddingConfig configures embedding generation
type EmbeddingConfig struct {
	// APIKey for the Gemini API; falls back to GEMINI_API_KEY
	APIKey string `mapstructure:"api_key"`

	Model string `mapstructure:"model"`
}

// APIConfig configures the HTTP surface
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string        `mapstructure:"level"`
	Format string        `mapstructure:"format"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig configures rotated file output
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// Validate checks that the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.Drive.FolderID == "" {
		return fmt.Errorf("%w: drive.folder_id cannot be empty", domain.ErrConfigInvalid)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("%w: sync.interval must be positive", domain.ErrConfigInvalid)
	}
	if c.Sync.MaxFiles <= 0 {
		return fmt.Errorf("%w: sync.max_files must be positive", domain.ErrConfigInvalid)
	}
	if c.Sync.MaxDepth <= 0 {
		return fmt.Errorf("%w: sync.max_depth must be positive", domain.ErrConfigInvalid)
	}
	if c.Sync.Workers <= 0 {
		return fmt.Errorf("%w: sync.workers must be positive", domain.ErrConfigInvalid)
	}
	if c.Sync.StaleTimeout <= 0 {
		return fmt.Errorf("%w: sync.stale_timeout must be positive", domain.ErrConfigInvalid)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.max_retries cannot be negative", domain.ErrConfigInvalid)
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("%w: retry delays must satisfy 0 < base_delay <= max_delay", domain.ErrConfigInvalid)
	}
	if c.Retry.FailureThreshold <= 0 {
		return fmt.Errorf("%w: retry.failure_threshold must be positive", domain.ErrConfigInvalid)
	}
	if c.Storage.BlobRoot == "" {
		return fmt.Errorf("%w: storage.blob_root cannot be empty", domain.ErrConfigInvalid)
	}
	if c.Vector.DSN != "" && c.Vector.Dimension <= 0 {
		return fmt.Errorf("%w: vector.dimension must be positive when vector.dsn is set", domain.ErrConfigInvalid)
	}
	return nil
}

// DataDir returns the resolved data directory, creating a default under
// the user config directory when unset.
func (c *Config) DataDir() string {
	if c.Storage.DataDir != "" {
		return ExpandPath(c.Storage.DataDir)
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return ".driveline"
	}
	return filepath.Join(configDir, "driveline")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
