// Package watermark reads synchronization high-water marks from the
// storage backend. A watermark is the latest stored date, either per
// instrument or across a whole table; the next incremental window
// starts the day after it.
package watermark

import (
	"context"
	"log/slog"
	"time"

	"github.com/frozenquant/frozen-data/internal/storage"
)

// Marks maps instrument tickers to their latest stored date.
type Marks map[string]time.Time

// NextStart returns the first day not yet stored for the entity. The
// second return is false when the entity has no watermark at all.
func (m Marks) NextStart(entity string) (time.Time, bool) {
	t, ok := m[entity]
	if !ok {
		return time.Time{}, false
	}
	return t.AddDate(0, 0, 1), true
}

// Tracker derives watermarks from stored data. It keeps no state of
// its own, so watermarks always reflect what the backend holds.
type Tracker struct {
	backend storage.Backend
	logger  *slog.Logger
}

// New creates a Tracker over the given backend.
func New(backend storage.Backend, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{backend: backend, logger: logger}
}

// PerEntity returns one watermark per instrument present in the table.
// A missing table surfaces the backend's not-found error.
func (t *Tracker) PerEntity(ctx context.Context, table, dateColumn string) (Marks, error) {
	byEntity, err := t.backend.MaxDateByEntity(ctx, table, dateColumn)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("loaded watermarks", "table", table, "entities", len(byEntity))
	return Marks(byEntity), nil
}

// Global returns the single table-wide watermark. The zero time means
// the table exists but holds no rows.
func (t *Tracker) Global(ctx context.Context, table, dateColumn string) (time.Time, error) {
	max, err := t.backend.MaxDate(ctx, table, dateColumn)
	if err != nil {
		return time.Time{}, err
	}
	return max, nil
}
