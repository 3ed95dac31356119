package types

import "time"

// QueueItem is a unit of queued work tracked by the metastore.
type QueueItem struct {
	// Key is the stable identity of the item (e.g. "job-1")
	Key string `json:"key"`
	// Value is the opaque payload handed to the worker
	Value string `json:"value"`
	// Created is the instant the item was enqueued
	Created time.Time `json:"created"`
}

// NewQueueItem creates a queue item stamped with the current time.
func NewQueueItem(key, value string) QueueItem {
	return QueueItem{
		Key:     key,
		Value:   value,
		Created: time.Now().UTC(),
	}
}

// GetKey returns the item's identity key.
func (q QueueItem) GetKey() string {
	return q.Key
}

// GetValue returns the item's payload.
func (q QueueItem) GetValue() string {
	return q.Value
}

// GetCreated returns the enqueue instant.
func (q QueueItem) GetCreated() time.Time {
	return q.Created
}
