package metastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	metaerrors "github.com/arkilian/infoschema/internal/errors"
	"github.com/arkilian/infoschema/pkg/types"
)

// queueDepthThresholds are the queue sizes at which AddToQueue warns operators.
var queueDepthThresholds = []int64{1_000_000, 100_000, 10_000}

// Options tunes the SQLite connections.
type Options struct {
	// ReadPoolSize is the number of concurrent reader connections (default 4)
	ReadPoolSize int
	// BusyTimeout is how long a connection waits on a locked database (default 5s)
	BusyTimeout time.Duration
}

// DefaultOptions returns the default connection options.
func DefaultOptions() Options {
	return Options{
		ReadPoolSize: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteMetaStore implements MetaStore on SQLite.
type SQLiteMetaStore struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
	mu     sync.Mutex // Serializes writers; readers never take it

	reportedDepth int64 // Highest queue-depth threshold already logged; guarded by mu
}

// Open creates or opens the metastore database at dbPath.
func Open(dbPath string, opts Options) (*SQLiteMetaStore, error) {
	if opts.ReadPoolSize <= 0 {
		opts.ReadPoolSize = DefaultOptions().ReadPoolSize
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultOptions().BusyTimeout
	}
	busyMs := opts.BusyTimeout.Milliseconds()

	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d", dbPath, busyMs))
	if err != nil {
		return nil, fmt.Errorf("metastore: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteMetaStore{db: db, dbPath: dbPath}

	// Schema must exist before any read-only connection touches the file.
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("metastore: failed to initialize schema: %w", err)
	}

	readDB, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=%d&_query_only=true", dbPath, busyMs))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("metastore: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(opts.ReadPoolSize)
	readDB.SetMaxIdleConns(opts.ReadPoolSize)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	store.readDB = readDB

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteMetaStore) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteMetaStore) Path() string {
	return s.dbPath
}

// AllQueue returns every queue item ordered by store ID.
func (s *SQLiteMetaStore) AllQueue(ctx context.Context) ([]types.IdRow[types.QueueItem], error) {
	rows, err := s.readDB.QueryContext(ctx, `SELECT id, key, value, created FROM queue ORDER BY id`)
	if err != nil {
		return nil, unavailable("list queue", err)
	}
	defer rows.Close()

	items := make([]types.IdRow[types.QueueItem], 0)
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list queue", err)
	}
	return items, nil
}

// AllSchemas returns every schema ordered by store ID.
func (s *SQLiteMetaStore) AllSchemas(ctx context.Context) ([]types.IdRow[types.SchemaEntity], error) {
	rows, err := s.readDB.QueryContext(ctx, `SELECT id, name, created FROM schemas ORDER BY id`)
	if err != nil {
		return nil, unavailable("list schemas", err)
	}
	defer rows.Close()

	schemas := make([]types.IdRow[types.SchemaEntity], 0)
	for rows.Next() {
		var (
			id      uint64
			name    string
			created int64
		)
		if err := rows.Scan(&id, &name, &created); err != nil {
			return nil, unavailable("scan schema row", err)
		}
		schemas = append(schemas, types.NewIdRow(id, types.SchemaEntity{
			Name:    name,
			Created: time.Unix(0, created).UTC(),
		}))
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list schemas", err)
	}
	return schemas, nil
}

// Ping verifies the read pool can reach the database.
func (s *SQLiteMetaStore) Ping(ctx context.Context) error {
	if err := s.readDB.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// AddToQueue enqueues an item.
func (s *SQLiteMetaStore) AddToQueue(ctx context.Context, item types.QueueItem) (types.IdRow[types.QueueItem], error) {
	if strings.TrimSpace(item.Key) == "" {
		return types.IdRow[types.QueueItem]{}, metaerrors.NewValidationError(metaerrors.CodeInvalidKey, "queue item key is required")
	}
	if item.Created.IsZero() {
		item.Created = time.Now().UTC()
	}
	created, ok := types.UnixNanos(item.Created)
	if !ok {
		return types.IdRow[types.QueueItem]{}, metaerrors.NewValidationError(
			metaerrors.CodeInvalidTimestamp,
			fmt.Sprintf("created time %s for %s is outside the nanosecond range", item.Created, item.Key),
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO queue (key, value, created) VALUES (?, ?, ?)`,
		item.Key, encodePayload(item.Value), created,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.IdRow[types.QueueItem]{}, metaerrors.NewValidationError(
				metaerrors.CodeDuplicateKey, "queue item "+item.Key+" already exists",
			)
		}
		return types.IdRow[types.QueueItem]{}, unavailable("insert queue item", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.IdRow[types.QueueItem]{}, unavailable("read queue item id", err)
	}

	s.logQueueDepthThreshold(ctx)

	return types.NewIdRow(uint64(id), item), nil
}

// GetQueueItem looks up a single queue item by key.
func (s *SQLiteMetaStore) GetQueueItem(ctx context.Context, key string) (types.IdRow[types.QueueItem], error) {
	row := s.readDB.QueryRowContext(ctx, `SELECT id, key, value, created FROM queue WHERE key = ?`, key)
	item, err := scanQueueItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.IdRow[types.QueueItem]{}, metaerrors.NewMetastoreError(
			metaerrors.CodeNotFound, "queue item "+key+" not found", nil,
		)
	}
	return item, err
}

// DeleteQueueItem removes a queue item by key.
func (s *SQLiteMetaStore) DeleteQueueItem(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM queue WHERE key = ?`, key)
	if err != nil {
		return unavailable("delete queue item", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete queue item", err)
	}
	if n == 0 {
		return metaerrors.NewMetastoreError(metaerrors.CodeNotFound, "queue item "+key+" not found", nil)
	}
	return nil
}

// CreateSchema registers a schema name stamped with the current time.
func (s *SQLiteMetaStore) CreateSchema(ctx context.Context, name string) (types.IdRow[types.SchemaEntity], error) {
	if strings.TrimSpace(name) == "" {
		return types.IdRow[types.SchemaEntity]{}, metaerrors.NewValidationError(metaerrors.CodeInvalidKey, "schema name is required")
	}
	entity := types.SchemaEntity{Name: name, Created: time.Now().UTC()}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO schemas (name, created) VALUES (?, ?)`,
		entity.Name, entity.Created.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return types.IdRow[types.SchemaEntity]{}, metaerrors.NewValidationError(
				metaerrors.CodeDuplicateKey, "schema "+name+" already exists",
			)
		}
		return types.IdRow[types.SchemaEntity]{}, unavailable("insert schema", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.IdRow[types.SchemaEntity]{}, unavailable("read schema id", err)
	}
	return types.NewIdRow(uint64(id), entity), nil
}

// Close closes the read pool, then the write connection.
func (s *SQLiteMetaStore) Close() error {
	if err := s.readDB.Close(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// logQueueDepthThreshold warns when the queue grows past a threshold.
// Must be called with the write lock held.
func (s *SQLiteMetaStore) logQueueDepthThreshold(ctx context.Context) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue").Scan(&count); err != nil {
		return // best-effort; don't fail the write path
	}
	if threshold, ok := nextDepthThreshold(count, s.reportedDepth); ok {
		s.reportedDepth = threshold
		log.Printf("[WARN] metastore: queue depth %d has passed %d items", count, threshold)
	}
}

// nextDepthThreshold returns the highest threshold count has reached when
// it is above the one already reported. Each threshold is reported once.
func nextDepthThreshold(count, reported int64) (int64, bool) {
	var highest int64
	for _, threshold := range queueDepthThresholds {
		if count >= threshold && threshold > highest {
			highest = threshold
		}
	}
	if highest > reported {
		return highest, true
	}
	return 0, false
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(r rowScanner) (types.IdRow[types.QueueItem], error) {
	var (
		id      uint64
		key     string
		blob    []byte
		created int64
	)
	if err := r.Scan(&id, &key, &blob, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.IdRow[types.QueueItem]{}, err
		}
		return types.IdRow[types.QueueItem]{}, unavailable("scan queue row", err)
	}
	value, err := decodePayload(key, blob)
	if err != nil {
		return types.IdRow[types.QueueItem]{}, err
	}
	return types.NewIdRow(id, types.QueueItem{
		Key:     key,
		Value:   value,
		Created: time.Unix(0, created).UTC(),
	}), nil
}

func unavailable(op string, err error) error {
	return metaerrors.NewMetastoreError(metaerrors.CodeUnavailable, op, err)
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
