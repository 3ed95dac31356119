// Package export writes virtual table snapshots to object storage as
// Arrow IPC files.
package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spaolacci/murmur3"

	metaerrors "github.com/arkilian/infoschema/internal/errors"
	"github.com/arkilian/infoschema/internal/infoschema"
	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/internal/storage"
)

// ObjectPrefix is the root of every export object.
const ObjectPrefix = "exports"

// ExportResult describes one uploaded snapshot.
type ExportResult struct {
	ObjectPath string    `json:"object_path"`
	Rows       int64     `json:"rows"`
	SizeBytes  int64     `json:"size_bytes"`
	Checksum   string    `json:"checksum"`
	ExportedAt time.Time `json:"exported_at"`
}

// Exporter scans tables and uploads the result.
type Exporter struct {
	storage storage.ObjectStorage
	tempDir string
	mem     memory.Allocator
	now     func() time.Time
}

// NewExporter creates an exporter staging files under tempDir.
func NewExporter(objectStorage storage.ObjectStorage, tempDir string) *Exporter {
	return &Exporter{
		storage: objectStorage,
		tempDir: tempDir,
		mem:     memory.DefaultAllocator,
		now:     time.Now,
	}
}

// Export scans table once and uploads the snapshot.
func (e *Exporter) Export(ctx context.Context, table infoschema.Table, reader metastore.Reader) (*ExportResult, error) {
	rec, err := table.Scan(ctx, reader)
	if err != nil {
		return nil, err
	}
	defer rec.Release()

	if err := os.MkdirAll(e.tempDir, 0755); err != nil {
		return nil, metaerrors.NewExportError(metaerrors.CodeEncodeFailed, "failed to create temp directory", err)
	}
	tmp, err := os.CreateTemp(e.tempDir, "export-*.arrow")
	if err != nil {
		return nil, metaerrors.NewExportError(metaerrors.CodeEncodeFailed, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := murmur3.New64()
	counter := &countingWriter{}
	if err := infoschema.WriteIPCFile(io.MultiWriter(tmp, hasher, counter), rec, e.mem); err != nil {
		tmp.Close()
		return nil, metaerrors.NewExportError(metaerrors.CodeEncodeFailed, "failed to encode "+table.Name().String(), err)
	}
	if err := tmp.Close(); err != nil {
		return nil, metaerrors.NewExportError(metaerrors.CodeEncodeFailed, "failed to close temp file", err)
	}

	exportedAt := e.now()
	checksum := fmt.Sprintf("%016x", hasher.Sum64())
	objectPath := ObjectPath(table.Name(), exportedAt, checksum)

	if err := e.storage.Upload(ctx, tmpPath, objectPath); err != nil {
		return nil, metaerrors.NewStorageError(metaerrors.CodeUploadFailed, "failed to upload "+objectPath, err)
	}

	log.Printf("export: wrote %s (%d rows, %d bytes)", objectPath, rec.NumRows(), counter.n)
	return &ExportResult{
		ObjectPath: objectPath,
		Rows:       rec.NumRows(),
		SizeBytes:  counter.n,
		Checksum:   checksum,
		ExportedAt: exportedAt,
	}, nil
}

// ListExports returns the export objects of one table, oldest first.
func (e *Exporter) ListExports(ctx context.Context, name infoschema.TableName) ([]string, error) {
	objects, err := e.storage.ListObjects(ctx, TablePrefix(name))
	if err != nil {
		return nil, metaerrors.NewStorageError(metaerrors.CodeDownloadFailed, "failed to list exports of "+name.String(), err)
	}
	exports := make([]string, 0, len(objects))
	for _, o := range objects {
		if strings.HasSuffix(o, ".arrow") {
			exports = append(exports, o)
		}
	}
	// Names start with zero-padded nanos, so lexical order is time order.
	sort.Strings(exports)
	return exports, nil
}

// TablePrefix is the object prefix holding the exports of name.
func TablePrefix(name infoschema.TableName) string {
	return path.Join(ObjectPrefix, name.Schema, name.Table) + "/"
}

// ObjectPath names an export taken at t with the given checksum.
func ObjectPath(name infoschema.TableName, t time.Time, checksum string) string {
	return TablePrefix(name) + fmt.Sprintf("%019d-%s.arrow", t.UnixNano(), checksum)
}

// Checksum computes the export checksum of a local file.
func Checksum(localPath string) (string, error) {
	f, err := os.Open(filepath.Clean(localPath))
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := murmur3.New64()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
