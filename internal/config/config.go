// Package config provides configuration for the Arkilian metastore service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the service configuration.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	GRPC      GRPCConfig      `json:"grpc" yaml:"grpc"`
	Metastore MetastoreConfig `json:"metastore" yaml:"metastore"`
	Export    ExportConfig    `json:"export" yaml:"export"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address of the information schema API
	Addr string `json:"addr" yaml:"addr"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// GRPCConfig holds gRPC health server configuration.
type GRPCConfig struct {
	Addr    string `json:"addr" yaml:"addr"`
	Enabled bool   `json:"enabled" yaml:"enabled"`

	// HealthInterval is how often the metastore is pinged
	HealthInterval time.Duration `json:"health_interval" yaml:"health_interval"`
}

// MetastoreConfig holds SQLite metastore configuration.
type MetastoreConfig struct {
	// Path is the database file; defaults to <data_dir>/metastore.db
	Path string `json:"path" yaml:"path"`

	ReadPoolSize int           `json:"read_pool_size" yaml:"read_pool_size"`
	BusyTimeout  time.Duration `json:"busy_timeout" yaml:"busy_timeout"`
}

// ExportConfig holds table export configuration.
type ExportConfig struct {
	// Enabled turns on POST /v1/tables/{schema}/{table}/export
	Enabled bool `json:"enabled" yaml:"enabled"`

	// TempDir stages IPC files before upload
	TempDir string `json:"temp_dir" yaml:"temp_dir"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket       string `json:"bucket" yaml:"bucket"`
	Region       string `json:"region" yaml:"region"`
	Endpoint     string `json:"endpoint" yaml:"endpoint"`
	Prefix       string `json:"prefix" yaml:"prefix"`
	UsePathStyle bool   `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/arkilian",
		HTTP: HTTPConfig{
			Addr:         ":8083",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr:           ":9093",
			Enabled:        true,
			HealthInterval: 10 * time.Second,
		},
		Metastore: MetastoreConfig{
			ReadPoolSize: 4,
			BusyTimeout:  5 * time.Second,
		},
		Export: ExportConfig{
			Enabled: true,
		},
		Storage: StorageConfig{
			Type: "local",
		},
	}
}

// Resolve fills paths left empty from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/arkilian"
	}
	if c.Metastore.Path == "" {
		c.Metastore.Path = filepath.Join(c.DataDir, "metastore.db")
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.DataDir, "storage")
	}
	if c.Export.TempDir == "" {
		c.Export.TempDir = filepath.Join(c.DataDir, "export-tmp")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.GRPC.Enabled && c.GRPC.Addr == "" {
		return fmt.Errorf("grpc.addr is required when grpc is enabled")
	}
	if c.GRPC.Enabled && c.GRPC.HealthInterval <= 0 {
		return fmt.Errorf("grpc.health_interval must be positive, got %s", c.GRPC.HealthInterval)
	}
	if c.Metastore.ReadPoolSize < 1 || c.Metastore.ReadPoolSize > 64 {
		return fmt.Errorf("metastore.read_pool_size must be between 1 and 64, got %d", c.Metastore.ReadPoolSize)
	}
	if c.Metastore.BusyTimeout < 0 {
		return fmt.Errorf("metastore.busy_timeout must not be negative")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file over the defaults.
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

// LoadFromEnv overlays ARKILIAN_* environment variables onto cfg.
// Malformed numbers and durations are reported rather than ignored.
func LoadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"ARKILIAN_DATA_DIR":        &cfg.DataDir,
		"ARKILIAN_HTTP_ADDR":       &cfg.HTTP.Addr,
		"ARKILIAN_GRPC_ADDR":       &cfg.GRPC.Addr,
		"ARKILIAN_METASTORE_PATH":  &cfg.Metastore.Path,
		"ARKILIAN_EXPORT_TEMP_DIR": &cfg.Export.TempDir,
		"ARKILIAN_STORAGE_TYPE":    &cfg.Storage.Type,
		"ARKILIAN_STORAGE_PATH":    &cfg.Storage.Path,
		"ARKILIAN_S3_BUCKET":       &cfg.Storage.S3.Bucket,
		"ARKILIAN_S3_REGION":       &cfg.Storage.S3.Region,
		"ARKILIAN_S3_ENDPOINT":     &cfg.Storage.S3.Endpoint,
		"ARKILIAN_S3_PREFIX":       &cfg.Storage.S3.Prefix,
	}
	for name, dst := range strs {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"ARKILIAN_GRPC_ENABLED":      &cfg.GRPC.Enabled,
		"ARKILIAN_EXPORT_ENABLED":    &cfg.Export.Enabled,
		"ARKILIAN_S3_USE_PATH_STYLE": &cfg.Storage.S3.UsePathStyle,
	}
	for name, dst := range bools {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = b
		}
	}

	durations := map[string]*time.Duration{
		"ARKILIAN_HTTP_READ_TIMEOUT":      &cfg.HTTP.ReadTimeout,
		"ARKILIAN_HTTP_WRITE_TIMEOUT":     &cfg.HTTP.WriteTimeout,
		"ARKILIAN_GRPC_HEALTH_INTERVAL":   &cfg.GRPC.HealthInterval,
		"ARKILIAN_METASTORE_BUSY_TIMEOUT": &cfg.Metastore.BusyTimeout,
	}
	for name, dst := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("ARKILIAN_METASTORE_READ_POOL_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARKILIAN_METASTORE_READ_POOL_SIZE: %w", err)
		}
		cfg.Metastore.ReadPoolSize = n
	}
	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.DataDir,
		filepath.Dir(c.Metastore.Path),
		c.Export.TempDir,
	}
	if c.Storage.Type == "local" {
		dirs = append(dirs, c.Storage.Path)
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
