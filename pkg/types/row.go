// Package types provides core data types for the Arkilian metastore.
package types

// IdRow pairs a metastore entity with the numeric identifier the store
// assigned to it. Information schema tables extract columns from IdRows,
// never from bare entities.
type IdRow[T any] struct {
	// ID is the store-assigned row identifier
	ID uint64 `json:"id"`
	// Row is the entity itself
	Row T `json:"row"`
}

// NewIdRow wraps row with its store identifier.
func NewIdRow[T any](id uint64, row T) IdRow[T] {
	return IdRow[T]{ID: id, Row: row}
}

// GetID returns the store-assigned identifier.
func (r IdRow[T]) GetID() uint64 {
	return r.ID
}

// GetRow returns the wrapped entity.
func (r IdRow[T]) GetRow() T {
	return r.Row
}
