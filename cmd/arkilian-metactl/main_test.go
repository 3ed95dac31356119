package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCmd(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(context.Background(), append([]string{"-data-dir", dataDir}, args...), &out)
	return out.String(), err
}

func TestEnqueueScanDequeue(t *testing.T) {
	dir := t.TempDir()

	for _, key := range []string{"job-a", "job-b"} {
		if _, err := runCmd(t, dir, "enqueue", "-key", key, "-value", "{}"); err != nil {
			t.Fatalf("enqueue %s failed: %v", key, err)
		}
	}

	out, err := runCmd(t, dir, "scan", "-table", "system.queue")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "job-a") || !strings.Contains(out, "job-b") || !strings.Contains(out, "(2 rows)") {
		t.Errorf("unexpected scan output:\n%s", out)
	}
	if strings.Index(out, "job-a") > strings.Index(out, "job-b") {
		t.Errorf("rows out of insertion order:\n%s", out)
	}

	if _, err := runCmd(t, dir, "dequeue", "-key", "job-a"); err != nil {
		t.Fatalf("dequeue failed: %v", err)
	}
	out, err = runCmd(t, dir, "scan", "-table", "system.queue")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if strings.Contains(out, "job-a") || !strings.Contains(out, "(1 rows)") {
		t.Errorf("unexpected scan output after dequeue:\n%s", out)
	}
}

func TestCreateSchemaAndTables(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, dir, "create-schema", "-name", "analytics"); err != nil {
		t.Fatalf("create-schema failed: %v", err)
	}
	out, err := runCmd(t, dir, "scan", "-table", "information_schema.schemata")
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if !strings.Contains(out, "analytics") {
		t.Errorf("expected schema in output:\n%s", out)
	}

	out, err = runCmd(t, dir, "tables")
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	if !strings.Contains(out, "system.queue") || !strings.Contains(out, "created timestamp[ns]") {
		t.Errorf("unexpected tables output:\n%s", out)
	}
}

func TestExportAndPull(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, dir, "enqueue", "-key", "k", "-value", "v"); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if _, err := runCmd(t, dir, "export", "-table", "system.queue"); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	outDir := filepath.Join(t.TempDir(), "pulled")
	out, err := runCmd(t, dir, "pull", "-table", "system.queue", "-out", outDir)
	if err != nil {
		t.Fatalf("pull failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "downloaded 1, skipped 0, failed 0") {
		t.Errorf("unexpected pull output:\n%s", out)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil || len(entries) != 1 {
		t.Errorf("expected one pulled file, got %v (%v)", entries, err)
	}
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := runCmd(t, dir, "scan", "-table", "system.nope"); err == nil {
		t.Error("expected unknown table error")
	}
	if _, err := runCmd(t, dir, "scan", "-table", "queue"); err == nil {
		t.Error("expected invalid table name error")
	}
	if _, err := runCmd(t, dir, "dequeue", "-key", "missing"); err == nil {
		t.Error("expected not found error")
	}
	if _, err := runCmd(t, dir, "bogus"); err == nil {
		t.Error("expected unknown command error")
	}
	if _, err := runCmd(t, dir); !errors.Is(err, errUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}
