package infoschema

import (
	"sort"
	"sync"

	metaerrors "github.com/arkilian/infoschema/internal/errors"
)

// Registry holds the virtual tables known to the query engine.
type Registry struct {
	mu     sync.RWMutex
	tables map[TableName]Table
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tables: make(map[TableName]Table)}
}

// DefaultRegistry returns a registry with every built-in table.
func DefaultRegistry(opts ...Option) *Registry {
	r := NewRegistry()
	r.MustRegister(NewTable[queueRow](QueueDef{}, opts...))
	r.MustRegister(NewTable[schemaRow](SchemataDef{}, opts...))
	return r
}

// Register adds a table. Registering the same name twice is an error.
func (r *Registry) Register(t Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := t.Name()
	if _, exists := r.tables[name]; exists {
		return metaerrors.NewInfoSchemaError(metaerrors.CodeDuplicateTable, "table "+name.String()+" is already registered")
	}
	r.tables[name] = t
	return nil
}

// MustRegister is Register that panics on error, for static wiring.
func (r *Registry) MustRegister(t Table) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the table with the given name.
func (r *Registry) Lookup(name TableName) (Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tables[name]
	if !ok {
		return nil, metaerrors.NewInfoSchemaError(metaerrors.CodeUnknownTable, "unknown table "+name.String())
	}
	return t, nil
}

// Tables returns all registered tables sorted by qualified name.
func (r *Registry) Tables() []Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool {
		return tables[i].Name().String() < tables[j].Name().String()
	})
	return tables
}
