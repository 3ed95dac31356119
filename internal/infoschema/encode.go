package infoschema

import (
	"fmt"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// ArrowStreamContentType is the media type of an Arrow IPC stream.
const ArrowStreamContentType = "application/vnd.apache.arrow.stream"

// FieldInfo describes one field for JSON consumers.
type FieldInfo struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

// ColumnData is one column rendered for JSON consumers.
type ColumnData struct {
	FieldInfo
	Values []interface{} `json:"values"`
}

// DescribeSchema lists the fields of s in order.
func DescribeSchema(s *arrow.Schema) []FieldInfo {
	fields := make([]FieldInfo, 0, s.NumFields())
	for _, f := range s.Fields() {
		fields = append(fields, describeField(f))
	}
	return fields
}

func describeField(f arrow.Field) FieldInfo {
	return FieldInfo{Name: f.Name, Type: f.Type.String(), Nullable: f.Nullable}
}

// RecordToColumns renders rec column by column. Timestamps become RFC 3339
// strings in UTC and nulls become nil.
func RecordToColumns(rec arrow.Record) []ColumnData {
	schema := rec.Schema()
	columns := make([]ColumnData, 0, rec.NumCols())
	for i, col := range rec.Columns() {
		columns = append(columns, ColumnData{
			FieldInfo: describeField(schema.Field(i)),
			Values:    columnValues(col),
		})
	}
	return columns
}

func columnValues(col arrow.Array) []interface{} {
	values := make([]interface{}, col.Len())
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		switch a := col.(type) {
		case *array.String:
			values[i] = a.Value(i)
		case *array.Int64:
			values[i] = a.Value(i)
		case *array.Timestamp:
			unit := a.DataType().(*arrow.TimestampType).Unit
			values[i] = a.Value(i).ToTime(unit).UTC().Format(time.RFC3339Nano)
		default:
			values[i] = col.ValueStr(i)
		}
	}
	return values
}

// WriteIPCStream writes rec to w as a single-batch Arrow IPC stream.
func WriteIPCStream(w io.Writer, rec arrow.Record, mem memory.Allocator) error {
	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("infoschema: failed to write ipc stream: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("infoschema: failed to close ipc stream: %w", err)
	}
	return nil
}

// WriteIPCFile writes rec to w in the random-access Arrow IPC file format.
func WriteIPCFile(w io.Writer, rec arrow.Record, mem memory.Allocator) error {
	writer, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("infoschema: failed to create ipc file writer: %w", err)
	}
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("infoschema: failed to write ipc file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("infoschema: failed to close ipc file: %w", err)
	}
	return nil
}
