package types

import "time"

// SchemaEntity is a user schema (namespace) registered in the metastore.
type SchemaEntity struct {
	// Name is the unique schema name
	Name string `json:"name"`
	// Created is the instant the schema was registered
	Created time.Time `json:"created"`
}

// GetName returns the schema name.
func (s SchemaEntity) GetName() string {
	return s.Name
}

// GetCreated returns the registration instant.
func (s SchemaEntity) GetCreated() time.Time {
	return s.Created
}
