package sync

import (
	"context"
	"time"

	"github.com/frozenquant/frozen-data/internal/model"
	"github.com/frozenquant/frozen-data/internal/source"
	"github.com/frozenquant/frozen-data/internal/watermark"
)

// defaultListStatus selects listed instruments for reference refreshes.
const defaultListStatus = "L"

// fetchRows pulls one unit's records. cutoff is zero except for
// incremental dividend fetches.
type fetchRows func(ctx context.Context, ad source.Adapter, cutoff time.Time) ([]model.Record, error)

// entitySync runs the shared per-instrument loop: route each universe
// entity to a backfill or an extend window, fetch, insert. A failing
// unit is logged and skipped; the loop only stops on context
// cancellation.
func (e *Engine) entitySync(ctx context.Context, mode Mode, table string, cat model.Category, fetch fetchRows) (*Summary, error) {
	schema := cat.Schema()
	if err := e.backend.EnsureSchema(ctx, table, schema); err != nil {
		return nil, err
	}

	var marks watermark.Marks
	if mode == ModeIncremental {
		if err := e.baseline(ctx, table); err != nil {
			return nil, err
		}
		var err error
		marks, err = e.marks.PerEntity(ctx, table, schema.DateColumn)
		if err != nil {
			return nil, err
		}
	}

	sum := &Summary{Table: table}
	for _, entity := range e.opts.Universe {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Units++

		start := e.opts.Floor
		end := e.opts.End
		var cutoff time.Time

		switch mode {
		case ModeFull:
			ok, err := e.backend.Exists(ctx, table, model.EntityColumn, entity)
			if err != nil {
				e.logger.Error("existence check failed", "table", table, "entity", entity, "error", err)
				sum.Failed++
				continue
			}
			if ok {
				sum.Skipped++
				continue
			}
		case ModeIncremental:
			if next, ok := marks.NextStart(entity); ok {
				if next.After(end) {
					sum.Skipped++
					continue
				}
				start = next
				cutoff = marks[entity]
			}
			// Entities without a watermark backfill from the floor.
		}

		ad := e.source.Adapter(entity, start, end)
		records, err := fetch(ctx, ad, cutoff)
		if err != nil {
			e.logger.Error("fetch failed", "table", table, "entity", entity, "error", err)
			sum.Failed++
			continue
		}
		if len(records) == 0 {
			e.logger.Warn("no rows fetched", "table", table, "entity", entity, "start", start, "end", end)
			sum.Skipped++
			continue
		}

		res, err := e.insert(ctx, table, schema, records)
		if err != nil {
			e.logger.Error("insert failed", "table", table, "entity", entity, "error", err)
			sum.Failed++
			continue
		}
		sum.Inserted += res.Inserted
		sum.Conflicts += res.Conflicts
	}

	e.logSummary(mode, sum)
	return sum, nil
}

// SyncBars synchronizes daily volume-price bars.
func (e *Engine) SyncBars(ctx context.Context, mode Mode, table string) (*Summary, error) {
	return e.entitySync(ctx, mode, table, model.CategoryBar,
		func(ctx context.Context, ad source.Adapter, _ time.Time) ([]model.Record, error) {
			rows, err := ad.Bars(ctx)
			if err != nil {
				return nil, err
			}
			return model.Records(rows), nil
		})
}

// SyncLimits synchronizes daily gain/loss limits.
func (e *Engine) SyncLimits(ctx context.Context, mode Mode, table string) (*Summary, error) {
	return e.entitySync(ctx, mode, table, model.CategoryLimit,
		func(ctx context.Context, ad source.Adapter, _ time.Time) ([]model.Record, error) {
			rows, err := ad.Limits(ctx)
			if err != nil {
				return nil, err
			}
			return model.Records(rows), nil
		})
}

// SyncFundamentals synchronizes daily valuation ratios.
func (e *Engine) SyncFundamentals(ctx context.Context, mode Mode, table string) (*Summary, error) {
	return e.entitySync(ctx, mode, table, model.CategoryFundamental,
		func(ctx context.Context, ad source.Adapter, _ time.Time) ([]model.Record, error) {
			rows, err := ad.Fundamentals(ctx)
			if err != nil {
				return nil, err
			}
			return model.Records(rows), nil
		})
}

// SyncDividends synchronizes dividend events. Incremental runs pass
// the entity watermark as the fetch cutoff since the upstream cannot
// window this endpoint server-side.
func (e *Engine) SyncDividends(ctx context.Context, mode Mode, table string) (*Summary, error) {
	return e.entitySync(ctx, mode, table, model.CategoryDividend,
		func(ctx context.Context, ad source.Adapter, cutoff time.Time) ([]model.Record, error) {
			rows, err := ad.Dividends(ctx, cutoff)
			if err != nil {
				return nil, err
			}
			return model.Records(rows), nil
		})
}

// SyncSuspensions synchronizes per-day suspension records. Units are
// trade days, not instruments: full mode enumerates the whole window
// and skips days already stored, incremental mode resumes from the
// first trade day after the table-wide watermark.
func (e *Engine) SyncSuspensions(ctx context.Context, mode Mode, table string) (*Summary, error) {
	schema := model.CategorySuspension.Schema()
	if err := e.backend.EnsureSchema(ctx, table, schema); err != nil {
		return nil, err
	}

	var days []time.Time
	switch mode {
	case ModeFull:
		days = e.cal.TradeDays(e.opts.Floor, e.opts.End)
	case ModeIncremental:
		if err := e.baseline(ctx, table); err != nil {
			return nil, err
		}
		mark, err := e.marks.Global(ctx, table, schema.DateColumn)
		if err != nil {
			return nil, err
		}
		if start := e.cal.NextTradeDay(mark); !start.After(e.opts.End) {
			days = e.cal.TradeDays(start, e.opts.End)
		}
	}

	ad := e.source.Adapter("", e.opts.Floor, e.opts.End)
	sum := &Summary{Table: table}
	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Units++

		if mode == ModeFull {
			ok, err := e.backend.Exists(ctx, table, schema.DateColumn, day)
			if err != nil {
				e.logger.Error("existence check failed", "table", table, "day", day, "error", err)
				sum.Failed++
				continue
			}
			if ok {
				sum.Skipped++
				continue
			}
		}

		rows, err := ad.Suspensions(ctx, day)
		if err != nil {
			e.logger.Error("fetch failed", "table", table, "day", day, "error", err)
			sum.Failed++
			continue
		}
		if len(rows) == 0 {
			e.logger.Warn("no rows fetched", "table", table, "day", day)
			sum.Skipped++
			continue
		}

		res, err := e.insert(ctx, table, schema, model.Records(rows))
		if err != nil {
			e.logger.Error("insert failed", "table", table, "day", day, "error", err)
			sum.Failed++
			continue
		}
		sum.Inserted += res.Inserted
		sum.Conflicts += res.Conflicts
	}

	e.logSummary(mode, sum)
	return sum, nil
}

// SyncBasics refreshes instrument reference data. Reference data is
// always fetched in full and conflict-ignored on insert, whatever the
// requested mode.
func (e *Engine) SyncBasics(ctx context.Context, listStatus, table string) (*Summary, error) {
	if listStatus == "" {
		listStatus = defaultListStatus
	}
	schema := model.CategoryBasic.Schema()
	if err := e.backend.EnsureSchema(ctx, table, schema); err != nil {
		return nil, err
	}

	ad := e.source.Adapter("", e.opts.Floor, e.opts.End)
	rows, err := ad.Basics(ctx, listStatus)
	if err != nil {
		return nil, err
	}

	sum := &Summary{Table: table, Units: 1}
	if len(rows) == 0 {
		e.logger.Warn("no rows fetched", "table", table, "list_status", listStatus)
		sum.Skipped = 1
		e.logSummary(ModeFull, sum)
		return sum, nil
	}

	res, err := e.insert(ctx, table, schema, model.Records(rows))
	if err != nil {
		return nil, err
	}
	sum.Inserted = res.Inserted
	sum.Conflicts = res.Conflicts
	e.logSummary(ModeFull, sum)
	return sum, nil
}
