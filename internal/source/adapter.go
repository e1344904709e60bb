package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frozenquant/frozen-data/internal/config"
	"github.com/frozenquant/frozen-data/internal/model"
	"github.com/frozenquant/frozen-data/internal/ratelimit"
)

// ErrUnsupportedSource is returned by NewFactory for unknown source names.
var ErrUnsupportedSource = errors.New("unsupported data source")

// Adapter is a per-instrument handle to the upstream source, bounded
// to a start/end date window. Empty fetch results return (nil, nil).
type Adapter interface {
	// Bars fetches daily volume-price bars for the window.
	Bars(ctx context.Context) ([]model.Bar, error)

	// Limits fetches daily gain/loss limits for the window.
	Limits(ctx context.Context) ([]model.Limit, error)

	// Fundamentals fetches daily valuation ratios for the window.
	Fundamentals(ctx context.Context) ([]model.Fundamental, error)

	// Dividends fetches dividend events. The upstream cannot filter
	// server-side, so a non-zero cutoff drops events with an ex-date
	// at or before it.
	Dividends(ctx context.Context, cutoff time.Time) ([]model.Dividend, error)

	// Suspensions fetches suspension records for one trade day.
	Suspensions(ctx context.Context, day time.Time) ([]model.Suspension, error)

	// Basics fetches reference data for all instruments with the given
	// listing status.
	Basics(ctx context.Context, listStatus string) ([]model.Basic, error)
}

// AdapterFactory builds per-instrument adapters.
type AdapterFactory interface {
	Adapter(ticker string, start, end time.Time) Adapter
}

// NewFactory resolves a source by name. Unknown names fail with
// ErrUnsupportedSource.
func NewFactory(cfg config.SourceConfig, limiter *ratelimit.Limiter, logger *slog.Logger) (AdapterFactory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []ClientOption{WithLogger(logger)}
	if cfg.Timeout > 0 {
		opts = append(opts, WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, WithRetries(cfg.MaxRetries, time.Second))
	}

	switch cfg.Name {
	case "tushare":
		client := NewClient(cfg.BaseURL, cfg.Token, limiter, opts...)
		return &tushareFactory{client: client, logger: logger}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSource, cfg.Name)
	}
}
