package infoschema

import (
	"context"
	"time"

	"github.com/arkilian/infoschema/internal/metastore"
	"github.com/arkilian/infoschema/pkg/types"
)

// QueueTableName is the qualified name of the queue table.
var QueueTableName = TableName{Schema: "system", Table: "queue"}

type queueRow = types.IdRow[types.QueueItem]

// QueueDef exposes metastore queue items as system.queue.
type QueueDef struct{}

// Name implements TableDef.
func (QueueDef) Name() TableName {
	return QueueTableName
}

// Rows implements TableDef.
func (QueueDef) Rows(ctx context.Context, store metastore.Reader) ([]queueRow, error) {
	return store.AllQueue(ctx)
}

// Columns implements TableDef. The payload column is staged until
// consumers are ready for it.
func (QueueDef) Columns() []Column[queueRow] {
	return []Column[queueRow]{
		StringColumn("id", func(r queueRow) string {
			return r.GetRow().GetKey()
		}),
		TimestampNanosColumn("created", func(r queueRow) time.Time {
			return r.GetRow().GetCreated()
		}),
		StringColumn("value", func(r queueRow) string {
			return r.GetRow().GetValue()
		}).AsStaged(),
	}
}
