// Package metastore provides the authoritative store for non-bulk-data
// entities such as queued work items and user schemas.
package metastore

import (
	"context"

	"github.com/arkilian/infoschema/pkg/types"
)

// Reader is the read-only view of the metastore consumed by the
// information schema. Implementations must not mutate state on any call.
type Reader interface {
	// AllQueue returns every queue item in store order (ascending ID).
	AllQueue(ctx context.Context) ([]types.IdRow[types.QueueItem], error)

	// AllSchemas returns every registered schema in store order (ascending ID).
	AllSchemas(ctx context.Context) ([]types.IdRow[types.SchemaEntity], error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// MetaStore is the full read/write metastore API.
type MetaStore interface {
	Reader

	// AddToQueue enqueues an item. A zero Created is stamped with the current time.
	AddToQueue(ctx context.Context, item types.QueueItem) (types.IdRow[types.QueueItem], error)

	// GetQueueItem looks up a queue item by key.
	GetQueueItem(ctx context.Context, key string) (types.IdRow[types.QueueItem], error)

	// DeleteQueueItem removes a queue item by key.
	DeleteQueueItem(ctx context.Context, key string) error

	// CreateSchema registers a new schema name.
	CreateSchema(ctx context.Context, name string) (types.IdRow[types.SchemaEntity], error)

	// Close closes the underlying database connections.
	Close() error
}
