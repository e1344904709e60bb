package storage

import (
	"context"
	"time"

	"github.com/frozenquant/frozen-data/internal/model"
)

// Capabilities describes backend-specific write semantics the engine
// must account for instead of assuming.
type Capabilities struct {
	// ConcurrentWrites reports whether the backend accepts concurrent
	// writers. When false the engine serializes inserts per table.
	ConcurrentWrites bool

	// DedupeOnInsert reports whether Insert drops rows colliding with
	// the unique composite key. When false the caller must pre-filter.
	DedupeOnInsert bool
}

// InsertResult accounts for one Insert call.
type InsertResult struct {
	Inserted  int
	Conflicts int
}

// Backend is the uniform storage contract, implemented once per
// concrete store and selected at construction via Open.
type Backend interface {
	// TableExists reports whether the table (or collection) exists.
	TableExists(ctx context.Context, table string) (bool, error)

	// EnsureSchema creates the table for the logical schema if absent;
	// no-op when the table already matches. An existing table with
	// incompatible columns fails with ErrSchemaConflict.
	EnsureSchema(ctx context.Context, table string, schema model.Schema) error

	// IsEmpty reports whether the table holds no rows.
	IsEmpty(ctx context.Context, table string) (bool, error)

	// DistinctEntities returns all entity keys present in the table.
	DistinctEntities(ctx context.Context, table string) ([]string, error)

	// MaxDateByEntity returns the latest persisted date per entity.
	MaxDateByEntity(ctx context.Context, table, dateColumn string) (map[string]time.Time, error)

	// MaxDate returns the latest persisted date over the whole table,
	// for date-keyed categories. The zero time means no rows.
	MaxDate(ctx context.Context, table, dateColumn string) (time.Time, error)

	// Exists is the point lookup used to skip already-fetched units.
	// value is a string entity or a time.Time date, matched against
	// the named column.
	Exists(ctx context.Context, table, column string, value any) (bool, error)

	// Insert appends records (values in schema column order).
	Insert(ctx context.Context, table string, schema model.Schema, records []model.Record) (InsertResult, error)

	// Drop removes the table.
	Drop(ctx context.Context, table string) error

	// Ping verifies the connection is healthy.
	Ping(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error

	Capabilities() Capabilities
}
