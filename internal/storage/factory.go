package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frozenquant/frozen-data/internal/config"
)

// Open selects and connects the backend named by cfg.Backend.
// Unknown names fail with ErrUnsupportedBackend.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case "postgres":
		return openPostgres(ctx, cfg.Postgres, logger)
	case "sqlite":
		return openSQLite(ctx, cfg.SQLite, logger)
	case "mongo":
		return openMongo(ctx, cfg.Mongo, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, cfg.Backend)
	}
}
