package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Metastore.Path != filepath.Join(cfg.DataDir, "metastore.db") {
		t.Errorf("unexpected metastore path %s", cfg.Metastore.Path)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"empty http addr", func(c *Config) { c.HTTP.Addr = "" }},
		{"grpc without addr", func(c *Config) { c.GRPC.Addr = "" }},
		{"zero health interval", func(c *Config) { c.GRPC.HealthInterval = 0 }},
		{"read pool too small", func(c *Config) { c.Metastore.ReadPoolSize = 0 }},
		{"unknown storage", func(c *Config) { c.Storage.Type = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Storage.Type = "s3" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arkilian.yaml")
	data := `
data_dir: /var/lib/arkilian
http:
  addr: ":9000"
grpc:
  enabled: false
metastore:
  read_pool_size: 8
  busy_timeout: 2s
storage:
  type: s3
  s3:
    bucket: exports
    prefix: meta/
    use_path_style: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	want := DefaultConfig()
	want.DataDir = "/var/lib/arkilian"
	want.HTTP.Addr = ":9000"
	want.GRPC.Enabled = false
	want.Metastore.ReadPoolSize = 8
	want.Metastore.BusyTimeout = 2 * time.Second
	want.Storage.Type = "s3"
	want.Storage.S3 = S3Config{Bucket: "exports", Prefix: "meta/", UsePathStyle: true}

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arkilian.json")
	if err := os.WriteFile(path, []byte(`{"data_dir": "/tmp/meta", "export": {"enabled": false}}`), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if cfg.DataDir != "/tmp/meta" || cfg.Export.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.HTTP.Addr != DefaultConfig().HTTP.Addr {
		t.Errorf("defaults should survive partial file, got http.addr %q", cfg.HTTP.Addr)
	}
}

func TestLoadFromFile_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arkilian.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected error for .toml")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ARKILIAN_HTTP_ADDR", ":7000")
	t.Setenv("ARKILIAN_GRPC_ENABLED", "false")
	t.Setenv("ARKILIAN_METASTORE_READ_POOL_SIZE", "2")
	t.Setenv("ARKILIAN_METASTORE_BUSY_TIMEOUT", "250ms")
	t.Setenv("ARKILIAN_S3_BUCKET", "b")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("LoadFromEnv failed: %v", err)
	}
	if cfg.HTTP.Addr != ":7000" || cfg.GRPC.Enabled || cfg.Metastore.ReadPoolSize != 2 {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Metastore.BusyTimeout != 250*time.Millisecond || cfg.Storage.S3.Bucket != "b" {
		t.Errorf("env not applied: %+v", cfg)
	}
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	t.Setenv("ARKILIAN_GRPC_HEALTH_INTERVAL", "soon")
	if err := LoadFromEnv(DefaultConfig()); err == nil {
		t.Error("expected error for malformed duration")
	}
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Resolve()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.DataDir, cfg.Storage.Path, cfg.Export.TempDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("expected directory %s", dir)
		}
	}
}
