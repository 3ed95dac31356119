// Package infoschema exposes metastore entity collections as read-only
// virtual tables for the query engine.
//
// Each table is declared by a TableDef: a row source that fetches the full
// entity set from the metastore, plus an ordered list of column extractors
// that each turn that snapshot into one Arrow array. NewTable wraps a
// definition into the engine-facing Table, which derives the schema from
// the extractors and materializes a record per scan.
//
// A scan fetches rows exactly once; every extractor then reads the same
// snapshot. Extractors must not mutate the snapshot or depend on each
// other's output, so the resulting arrays line up by position with the
// order the metastore returned.
package infoschema

import (
	"context"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/arkilian/infoschema/internal/metastore"
)

// TableName identifies a virtual table, e.g. system.queue.
type TableName struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// String returns the dotted form "schema.table".
func (n TableName) String() string {
	return n.Schema + "." + n.Table
}

// ParseTableName parses "schema.table".
func ParseTableName(s string) (TableName, error) {
	schema, table, ok := strings.Cut(s, ".")
	if !ok || schema == "" || table == "" || strings.Contains(table, ".") {
		return TableName{}, fmt.Errorf("infoschema: invalid table name %q (want schema.table)", s)
	}
	return TableName{Schema: schema, Table: table}, nil
}

// Column pairs a field descriptor with the function that projects a row
// snapshot into that field's array.
type Column[T any] struct {
	// Field is the declared name, type and nullability
	Field arrow.Field

	// Extract builds the column from the full snapshot. It must return an
	// array of Field.Type with exactly len(rows) elements, element i derived
	// from rows[i]. The caller owns the returned array.
	Extract func(mem memory.Allocator, rows []T) arrow.Array

	// Staged columns are declared but withheld from the schema and scans.
	Staged bool
}

// AsStaged returns a copy of the column marked as staged.
func (c Column[T]) AsStaged() Column[T] {
	c.Staged = true
	return c
}

// TableDef declares one virtual table over one metastore entity kind.
type TableDef[T any] interface {
	// Name returns the table's qualified name.
	Name() TableName

	// Rows fetches the complete current entity set. Errors are returned
	// to the scanning caller unchanged.
	Rows(ctx context.Context, store metastore.Reader) ([]T, error)

	// Columns returns every declared column in display order, staged ones included.
	Columns() []Column[T]
}

// Table is the capability the query engine consumes.
type Table interface {
	// Name returns the table's qualified name.
	Name() TableName

	// Schema returns the fields of the active columns. It performs no I/O.
	Schema() *arrow.Schema

	// Scan fetches a fresh snapshot and materializes it as a record.
	// The caller must Release the record.
	Scan(ctx context.Context, store metastore.Reader) (arrow.Record, error)
}

// Option configures a table built by NewTable.
type Option func(*tableOptions)

type tableOptions struct {
	mem memory.Allocator
}

// WithAllocator sets the allocator used to build column arrays.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *tableOptions) {
		o.mem = mem
	}
}

// virtualTable is the generic driver shared by every TableDef.
type virtualTable[T any] struct {
	def    TableDef[T]
	active []Column[T]
	staged []Column[T]
	schema *arrow.Schema
	mem    memory.Allocator
}

// NewTable builds the engine-facing table for def. The column list is read
// once here; the schema never depends on store contents.
func NewTable[T any](def TableDef[T], opts ...Option) Table {
	o := tableOptions{mem: memory.DefaultAllocator}
	for _, opt := range opts {
		opt(&o)
	}

	t := &virtualTable[T]{def: def, mem: o.mem}
	fields := make([]arrow.Field, 0)
	for _, c := range def.Columns() {
		if c.Staged {
			t.staged = append(t.staged, c)
			continue
		}
		t.active = append(t.active, c)
		fields = append(fields, c.Field)
	}
	t.schema = arrow.NewSchema(fields, nil)
	return t
}

func (t *virtualTable[T]) Name() TableName {
	return t.def.Name()
}

func (t *virtualTable[T]) Schema() *arrow.Schema {
	return t.schema
}

func (t *virtualTable[T]) Scan(ctx context.Context, store metastore.Reader) (arrow.Record, error) {
	rows, err := t.def.Rows(ctx, store)
	if err != nil {
		return nil, err
	}

	cols := make([]arrow.Array, 0, len(t.active))
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	for _, c := range t.active {
		arr := c.Extract(t.mem, rows)
		cols = append(cols, arr)
		t.checkColumn(c.Field, arr, len(rows))
	}

	return array.NewRecord(t.schema, cols, int64(len(rows))), nil
}

// checkColumn panics when an extractor breaks its contract. A misaligned or
// mistyped array would silently corrupt every row of the batch.
func (t *virtualTable[T]) checkColumn(field arrow.Field, arr arrow.Array, n int) {
	if arr.Len() != n {
		panic(fmt.Sprintf("infoschema: %s.%s produced %d values for %d rows", t.def.Name(), field.Name, arr.Len(), n))
	}
	if !arrow.TypeEqual(arr.DataType(), field.Type) {
		panic(fmt.Sprintf("infoschema: %s.%s produced %s, declared %s", t.def.Name(), field.Name, arr.DataType(), field.Type))
	}
	if !field.Nullable && arr.NullN() > 0 {
		panic(fmt.Sprintf("infoschema: %s.%s is non-nullable but produced %d nulls", t.def.Name(), field.Name, arr.NullN()))
	}
}

// StagedFields returns the fields of columns declared but not yet exposed.
func StagedFields(t Table) []arrow.Field {
	s, ok := t.(interface{ stagedFields() []arrow.Field })
	if !ok {
		return nil
	}
	return s.stagedFields()
}

func (t *virtualTable[T]) stagedFields() []arrow.Field {
	fields := make([]arrow.Field, 0, len(t.staged))
	for _, c := range t.staged {
		fields = append(fields, c.Field)
	}
	return fields
}
