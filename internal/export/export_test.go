package export

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/arkilian/infoschema/internal/infoschema"
	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/internal/storage"
	"github.com/arkilian/infoschema/pkg/types"
)

func setup(t *testing.T) (*metastore.SQLiteMetaStore, *storage.LocalStorage, *Exporter) {
	t.Helper()
	store, err := metastore.Open(filepath.Join(t.TempDir(), "metastore.db"), metastore.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open metastore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	objects, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	return store, objects, NewExporter(objects, t.TempDir())
}

func TestExport_QueueTable(t *testing.T) {
	store, objects, exporter := setup(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := store.AddToQueue(ctx, types.NewQueueItem(key, "payload-"+key)); err != nil {
			t.Fatalf("AddToQueue(%s) failed: %v", key, err)
		}
	}

	table, err := infoschema.DefaultRegistry().Lookup(infoschema.QueueTableName)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	exportedAt := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	exporter.now = func() time.Time { return exportedAt }

	result, err := exporter.Export(ctx, table, store)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", result.Rows)
	}
	wantPrefix := "exports/system/queue/"
	if !strings.HasPrefix(result.ObjectPath, wantPrefix) || !strings.HasSuffix(result.ObjectPath, "-"+result.Checksum+".arrow") {
		t.Errorf("unexpected object path %q", result.ObjectPath)
	}

	local := filepath.Join(t.TempDir(), "out.arrow")
	if err := objects.Download(ctx, result.ObjectPath, local); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	info, err := os.Stat(local)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != result.SizeBytes {
		t.Errorf("size: got %d, want %d", info.Size(), result.SizeBytes)
	}
	sum, err := Checksum(local)
	if err != nil {
		t.Fatalf("Checksum failed: %v", err)
	}
	if sum != result.Checksum {
		t.Errorf("checksum: got %s, want %s", sum, result.Checksum)
	}

	f, err := os.Open(local)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	reader, err := ipc.NewFileReader(f)
	if err != nil {
		t.Fatalf("NewFileReader failed: %v", err)
	}
	defer reader.Close()

	rec, err := reader.Record(0)
	if err != nil {
		t.Fatalf("Record(0) failed: %v", err)
	}
	if !rec.Schema().Equal(table.Schema()) {
		t.Errorf("schema mismatch: %s vs %s", rec.Schema(), table.Schema())
	}
	ids := rec.Column(0).(*array.String)
	for i, want := range []string{"a", "b", "c"} {
		if ids.Value(i) != want {
			t.Errorf("row %d: got %q, want %q", i, ids.Value(i), want)
		}
	}
}

func TestListExports_OldestFirst(t *testing.T) {
	store, _, exporter := setup(t)
	ctx := context.Background()

	table, err := infoschema.DefaultRegistry().Lookup(infoschema.SchemataTableName)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	base := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	var want []string
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		exporter.now = func() time.Time { return at }
		if _, err := store.CreateSchema(ctx, "s"+string(rune('0'+i))); err != nil {
			t.Fatalf("CreateSchema failed: %v", err)
		}
		result, err := exporter.Export(ctx, table, store)
		if err != nil {
			t.Fatalf("Export %d failed: %v", i, err)
		}
		want = append(want, result.ObjectPath)
	}

	got, err := exporter.ListExports(ctx, infoschema.SchemataTableName)
	if err != nil {
		t.Fatalf("ListExports failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d exports, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("export %d: got %s, want %s", i, got[i], want[i])
		}
	}

	other, err := exporter.ListExports(ctx, infoschema.QueueTableName)
	if err != nil {
		t.Fatalf("ListExports failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no queue exports, got %v", other)
	}
}

func TestObjectPath(t *testing.T) {
	name := infoschema.TableName{Schema: "system", Table: "queue"}
	got := ObjectPath(name, time.Unix(0, 42), "00000000deadbeef")
	want := "exports/system/queue/0000000000000000042-00000000deadbeef.arrow"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
