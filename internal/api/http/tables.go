package http

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arkilian/infoschema/internal/export"
	"github.com/arkilian/infoschema/internal/infoschema"
	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/internal/observability"
)

// TableInfo describes a registered table.
type TableInfo struct {
	Name   infoschema.TableName   `json:"name"`
	Fields []infoschema.FieldInfo `json:"fields"`
	Staged []infoschema.FieldInfo `json:"staged,omitempty"`
}

// TablesResponse is the body of GET /v1/tables.
type TablesResponse struct {
	Tables    []TableInfo `json:"tables"`
	RequestID string      `json:"request_id"`
}

// ScanResponse is the JSON body of a scan.
type ScanResponse struct {
	Table     infoschema.TableName    `json:"table"`
	NumRows   int64                   `json:"num_rows"`
	Columns   []infoschema.ColumnData `json:"columns"`
	RequestID string                  `json:"request_id"`
}

// ExportResponse is the body of a successful export.
type ExportResponse struct {
	*export.ExportResult
	RequestID string `json:"request_id"`
}

// StatsResponse is the body of GET /v1/stats.
type StatsResponse struct {
	Tables    []observability.TableStats `json:"tables"`
	RequestID string                     `json:"request_id"`
}

// TablesHandler serves the virtual tables of a registry.
type TablesHandler struct {
	registry *infoschema.Registry
	reader   metastore.Reader
	exporter *export.Exporter
	stats    *observability.ScanStats
	mem      memory.Allocator
}

// NewTablesHandler creates a handler. exporter may be nil, in which case
// export requests fail with 503.
func NewTablesHandler(registry *infoschema.Registry, reader metastore.Reader, exporter *export.Exporter, stats *observability.ScanStats) *TablesHandler {
	if stats == nil {
		stats = observability.NewScanStats(0)
	}
	return &TablesHandler{
		registry: registry,
		reader:   reader,
		exporter: exporter,
		stats:    stats,
		mem:      memory.DefaultAllocator,
	}
}

// Register installs the routes on mux.
func (h *TablesHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/tables", h.handleList)
	mux.HandleFunc("GET /v1/tables/{schema}/{table}/schema", h.handleSchema)
	mux.HandleFunc("GET /v1/tables/{schema}/{table}/scan", h.handleScan)
	mux.HandleFunc("POST /v1/tables/{schema}/{table}/export", h.handleExport)
	mux.HandleFunc("GET /v1/stats", h.handleStats)
	mux.HandleFunc("GET /health", h.handleHealth)
}

func (h *TablesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	tables := h.registry.Tables()
	resp := TablesResponse{
		Tables:    make([]TableInfo, 0, len(tables)),
		RequestID: GetRequestID(r.Context()),
	}
	for _, t := range tables {
		resp.Tables = append(resp.Tables, describe(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *TablesHandler) handleSchema(w http.ResponseWriter, r *http.Request) {
	table, err := h.lookup(r)
	if err != nil {
		writeMetaError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(table))
}

func (h *TablesHandler) handleScan(w http.ResponseWriter, r *http.Request) {
	table, err := h.lookup(r)
	if err != nil {
		writeMetaError(w, r, err)
		return
	}

	start := time.Now()
	rec, err := table.Scan(r.Context(), h.reader)
	if err != nil {
		h.stats.RecordScan(table.Name().String(), 0, time.Since(start), err)
		writeMetaError(w, r, err)
		return
	}
	defer rec.Release()
	h.stats.RecordScan(table.Name().String(), rec.NumRows(), time.Since(start), nil)

	if wantsArrow(r) {
		var buf bytes.Buffer
		if err := infoschema.WriteIPCStream(&buf, rec, h.mem); err != nil {
			writeMetaError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", infoschema.ArrowStreamContentType)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
		return
	}

	writeJSON(w, http.StatusOK, ScanResponse{
		Table:     table.Name(),
		NumRows:   rec.NumRows(),
		Columns:   infoschema.RecordToColumns(rec),
		RequestID: GetRequestID(r.Context()),
	})
}

func (h *TablesHandler) handleExport(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export storage is not configured", requestID)
		return
	}
	table, err := h.lookup(r)
	if err != nil {
		writeMetaError(w, r, err)
		return
	}

	start := time.Now()
	result, err := h.exporter.Export(r.Context(), table, h.reader)
	if err != nil {
		h.stats.RecordScan(table.Name().String(), 0, time.Since(start), err)
		writeMetaError(w, r, err)
		return
	}
	h.stats.RecordScan(table.Name().String(), result.Rows, time.Since(start), nil)
	writeJSON(w, http.StatusCreated, ExportResponse{ExportResult: result, RequestID: requestID})
}

func (h *TablesHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatsResponse{
		Tables:    h.stats.Snapshot(),
		RequestID: GetRequestID(r.Context()),
	})
}

func (h *TablesHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.reader.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "metastore unreachable", GetRequestID(r.Context()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *TablesHandler) lookup(r *http.Request) (infoschema.Table, error) {
	return h.registry.Lookup(infoschema.TableName{
		Schema: r.PathValue("schema"),
		Table:  r.PathValue("table"),
	})
}

func describe(t infoschema.Table) TableInfo {
	info := TableInfo{
		Name:   t.Name(),
		Fields: infoschema.DescribeSchema(t.Schema()),
	}
	for _, f := range infoschema.StagedFields(t) {
		info.Staged = append(info.Staged, infoschema.FieldInfo{Name: f.Name, Type: f.Type.String(), Nullable: f.Nullable})
	}
	return info
}

// wantsArrow reports whether the Accept header asks for an Arrow IPC stream.
func wantsArrow(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == infoschema.ArrowStreamContentType {
			return true
		}
	}
	return false
}
