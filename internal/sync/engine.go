package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/frozenquant/frozen-data/internal/calendar"
	"github.com/frozenquant/frozen-data/internal/model"
	"github.com/frozenquant/frozen-data/internal/source"
	"github.com/frozenquant/frozen-data/internal/storage"
	"github.com/frozenquant/frozen-data/internal/watermark"
)

// ErrMissingWatermarkBaseline is returned by incremental operations
// when the target table is missing or empty. A full backfill must run
// first so watermarks have something to stand on.
var ErrMissingWatermarkBaseline = errors.New("missing watermark baseline")

// Mode selects between a full backfill and a watermark-driven extend.
type Mode string

const (
	ModeFull        Mode = "full"
	ModeIncremental Mode = "incremental"
)

// ParseMode resolves a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeIncremental:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown sync mode: %q", s)
}

// Options bounds a synchronization run.
type Options struct {
	// Floor is the historical start for backfills.
	Floor time.Time
	// End is the last day to fetch, usually today.
	End time.Time
	// Universe lists the instruments to synchronize.
	Universe []string
}

// Summary accounts for one operation run.
type Summary struct {
	Table     string
	Units     int
	Inserted  int
	Conflicts int
	Skipped   int
	Failed    int
}

// Engine synchronizes one table per operation call. It owns no
// connections; backend and source are injected.
type Engine struct {
	backend storage.Backend
	source  source.AdapterFactory
	cal     *calendar.Calendar
	marks   *watermark.Tracker
	opts    Options
	logger  *slog.Logger

	// insertMu serializes inserts for backends that reject
	// concurrent writers.
	insertMu gosync.Mutex
}

// New creates an Engine.
func New(backend storage.Backend, factory source.AdapterFactory, cal *calendar.Calendar, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend: backend,
		source:  factory,
		cal:     cal,
		marks:   watermark.New(backend, logger),
		opts:    opts,
		logger:  logger,
	}
}

// insert writes records through the backend, pre-deduping on the
// composite key and serializing when the backend requires it.
func (e *Engine) insert(ctx context.Context, table string, schema model.Schema, records []model.Record) (storage.InsertResult, error) {
	caps := e.backend.Capabilities()
	if !caps.DedupeOnInsert {
		records = schema.Dedupe(records)
	}
	if !caps.ConcurrentWrites {
		e.insertMu.Lock()
		defer e.insertMu.Unlock()
	}
	return e.backend.Insert(ctx, table, schema, records)
}

// baseline verifies the table can anchor an incremental run.
func (e *Engine) baseline(ctx context.Context, table string) error {
	empty, err := e.backend.IsEmpty(ctx, table)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("%w: table %q does not exist", ErrMissingWatermarkBaseline, table)
	}
	if err != nil {
		return err
	}
	if empty {
		return fmt.Errorf("%w: table %q is empty", ErrMissingWatermarkBaseline, table)
	}
	return nil
}

func (e *Engine) logSummary(mode Mode, s *Summary) {
	e.logger.Info("sync complete",
		"table", s.Table,
		"mode", mode,
		"units", s.Units,
		"inserted", s.Inserted,
		"conflicts", s.Conflicts,
		"skipped", s.Skipped,
		"failed", s.Failed,
	)
}
