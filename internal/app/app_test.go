package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/arkilian/infoschema/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.GRPC.HealthInterval = 50 * time.Millisecond
	return cfg
}

func TestApp_StartServeStop(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := a.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}
	if a.GRPCAddr() == "" {
		t.Error("expected grpc listener")
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/v1/tables", a.HTTPAddr()))
	if err != nil {
		t.Fatalf("GET /v1/tables failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Tables []json.RawMessage `json:"tables"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Tables) != 2 {
		t.Errorf("expected 2 tables, got %d", len(body.Tables))
	}

	exportResp, err := http.Post(fmt.Sprintf("http://%s/v1/tables/system/queue/export", a.HTTPAddr()), "application/json", nil)
	if err != nil {
		t.Fatalf("POST export failed: %v", err)
	}
	exportResp.Body.Close()
	if exportResp.StatusCode != http.StatusCreated {
		t.Errorf("expected 201 from export, got %d", exportResp.StatusCode)
	}

	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := a.Stop(ctx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Type = "ftp"
	if _, err := New(cfg); err == nil {
		t.Error("expected invalid configuration error")
	}
}

func TestOpenStorage_Local(t *testing.T) {
	s, err := OpenStorage(context.Background(), config.StorageConfig{Type: "local", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	if ok, err := s.Exists(context.Background(), "missing"); err != nil || ok {
		t.Errorf("expected missing object, got %v %v", ok, err)
	}
}
