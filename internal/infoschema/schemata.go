package infoschema

import (
	"context"
	"time"

	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/pkg/types"
)

// SchemataTableName is the qualified name of the schemata table.
var SchemataTableName = TableName{Schema: "information_schema", Table: "schemata"}

type schemaRow = types.IdRow[types.SchemaEntity]

// SchemataDef exposes registered schemas as information_schema.schemata.
type SchemataDef struct{}

// Name implements TableDef.
func (SchemataDef) Name() TableName {
	return SchemataTableName
}

// Rows implements TableDef.
func (SchemataDef) Rows(ctx context.Context, store metastore.Reader) ([]schemaRow, error) {
	return store.AllSchemas(ctx)
}

// Columns implements TableDef.
func (SchemataDef) Columns() []Column[schemaRow] {
	return []Column[schemaRow]{
		StringColumn("schema_name", func(r schemaRow) string {
			return r.GetRow().GetName()
		}),
		TimestampNanosColumn("created", func(r schemaRow) time.Time {
			return r.GetRow().GetCreated()
		}),
	}
}
