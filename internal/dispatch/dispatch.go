// Package dispatch routes synchronization requests to engine
// operations through an explicit per-category lookup table and runs
// them concurrently.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/frozenquant/frozen-data/internal/model"
	"github.com/frozenquant/frozen-data/internal/sync"
)

// Request names one category run.
type Request struct {
	Category model.Category
	Table    string
	Mode     sync.Mode
	// ListStatus applies to the reference-data category only.
	ListStatus string
}

type handler func(ctx context.Context, req Request) (*sync.Summary, error)

// Dispatcher fans requests out to engine operations. Routing is a
// fixed category table built at construction; there is no name
// matching at run time.
type Dispatcher struct {
	handlers    map[model.Category]handler
	maxParallel int
	logger      *slog.Logger
}

// New builds a Dispatcher over the engine. maxParallel bounds how
// many requests run at once; zero means unbounded.
func New(engine *sync.Engine, maxParallel int, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		handlers: map[model.Category]handler{
			model.CategoryBar: func(ctx context.Context, req Request) (*sync.Summary, error) {
				return engine.SyncBars(ctx, req.Mode, req.Table)
			},
			model.CategoryLimit: func(ctx context.Context, req Request) (*sync.Summary, error) {
				return engine.SyncLimits(ctx, req.Mode, req.Table)
			},
			model.CategoryFundamental: func(ctx context.Context, req Request) (*sync.Summary, error) {
				return engine.SyncFundamentals(ctx, req.Mode, req.Table)
			},
			model.CategoryDividend: func(ctx context.Context, req Request) (*sync.Summary, error) {
				return engine.SyncDividends(ctx, req.Mode, req.Table)
			},
			model.CategorySuspension: func(ctx context.Context, req Request) (*sync.Summary, error) {
				return engine.SyncSuspensions(ctx, req.Mode, req.Table)
			},
			model.CategoryBasic: func(ctx context.Context, req Request) (*sync.Summary, error) {
				return engine.SyncBasics(ctx, req.ListStatus, req.Table)
			},
		},
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Run executes all requests, one worker per request. A failing
// request does not cancel its siblings; failures are aggregated into
// the returned error after every worker finishes. An unknown category
// fails the whole call before anything is spawned.
func (d *Dispatcher) Run(ctx context.Context, requests []Request) error {
	for _, req := range requests {
		if _, ok := d.handlers[req.Category]; !ok {
			return fmt.Errorf("no handler for category %q", req.Category)
		}
	}

	var (
		mu   gosync.Mutex
		errs []error
	)
	var g errgroup.Group
	if d.maxParallel > 0 {
		g.SetLimit(d.maxParallel)
	}

	for _, req := range requests {
		req := req
		taskID := uuid.NewString()
		g.Go(func() error {
			log := d.logger.With("task_id", taskID, "category", req.Category, "table", req.Table)
			log.Info("task started", "mode", req.Mode)

			sum, err := d.handlers[req.Category](ctx, req)
			if err != nil {
				log.Error("task failed", "error", err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", req.Category, err))
				mu.Unlock()
				return nil
			}

			log.Info("task finished",
				"units", sum.Units,
				"inserted", sum.Inserted,
				"conflicts", sum.Conflicts,
				"skipped", sum.Skipped,
				"failed", sum.Failed,
			)
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}
