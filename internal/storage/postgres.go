package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/frozenquant/frozen-data/internal/config"
	"github.com/frozenquant/frozen-data/internal/model"
)

// pgUndefinedTable is the SQLSTATE for queries against a missing table.
const pgUndefinedTable = "42P01"

type postgresBackend struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func openPostgres(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (Backend, error) {
	connStr := BuildConnString(cfg)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrBackendUnavailable, err)
	}

	return &postgresBackend{pool: pool, logger: logger}, nil
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

func (b *postgresBackend) Capabilities() Capabilities {
	return Capabilities{ConcurrentWrites: true, DedupeOnInsert: true}
}

func (b *postgresBackend) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := b.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		table,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return exists, nil
}

func (b *postgresBackend) EnsureSchema(ctx context.Context, table string, schema model.Schema) error {
	exists, err := b.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return b.checkColumns(ctx, table, schema)
	}

	cols := make([]string, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(c.Name), pgType(c.Type)))
	}
	if len(schema.Key) > 0 {
		keys := make([]string, len(schema.Key))
		for i, k := range schema.Key {
			keys[i] = quoteIdent(k)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := b.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	b.logger.Info("created table", "table", table, "backend", "postgres")
	return nil
}

// checkColumns compares an existing table's column set to the schema.
func (b *postgresBackend) checkColumns(ctx context.Context, table string, schema model.Schema) error {
	rows, err := b.pool.Query(ctx,
		`SELECT column_name FROM information_schema.columns WHERE table_schema = 'public' AND table_name = $1`,
		table,
	)
	if err != nil {
		return fmt.Errorf("describe table %s: %w", table, err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range schema.Columns {
		if !existing[c.Name] {
			return fmt.Errorf("%w: table %s is missing column %s", ErrSchemaConflict, table, c.Name)
		}
	}
	return nil
}

func (b *postgresBackend) IsEmpty(ctx context.Context, table string) (bool, error) {
	var hasRows bool
	err := b.pool.QueryRow(ctx,
		fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s)", quoteIdent(table)),
	).Scan(&hasRows)
	if err != nil {
		return false, b.wrapQueryErr(table, err)
	}
	return !hasRows, nil
}

func (b *postgresBackend) DistinctEntities(ctx context.Context, table string) ([]string, error) {
	rows, err := b.pool.Query(ctx,
		fmt.Sprintf("SELECT DISTINCT %s FROM %s", quoteIdent(model.EntityColumn), quoteIdent(table)),
	)
	if err != nil {
		return nil, b.wrapQueryErr(table, err)
	}
	defer rows.Close()

	var entities []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (b *postgresBackend) MaxDateByEntity(ctx context.Context, table, dateColumn string) (map[string]time.Time, error) {
	rows, err := b.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s, MAX(%s) FROM %s GROUP BY %s",
		quoteIdent(model.EntityColumn), quoteIdent(dateColumn), quoteIdent(table), quoteIdent(model.EntityColumn),
	))
	if err != nil {
		return nil, b.wrapQueryErr(table, err)
	}
	defer rows.Close()

	marks := make(map[string]time.Time)
	for rows.Next() {
		var entity string
		var max time.Time
		if err := rows.Scan(&entity, &max); err != nil {
			return nil, err
		}
		marks[entity] = max.UTC()
	}
	return marks, rows.Err()
}

func (b *postgresBackend) MaxDate(ctx context.Context, table, dateColumn string) (time.Time, error) {
	var max *time.Time
	err := b.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT MAX(%s) FROM %s", quoteIdent(dateColumn), quoteIdent(table),
	)).Scan(&max)
	if err != nil {
		return time.Time{}, b.wrapQueryErr(table, err)
	}
	if max == nil {
		return time.Time{}, nil
	}
	return max.UTC(), nil
}

func (b *postgresBackend) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	var exists bool
	err := b.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)", quoteIdent(table), quoteIdent(column),
	), value).Scan(&exists)
	if err != nil {
		return false, b.wrapQueryErr(table, err)
	}
	return exists, nil
}

// Insert queues all rows in one pgx batch. Rows colliding with the
// composite key are dropped by ON CONFLICT DO NOTHING and counted.
func (b *postgresBackend) Insert(ctx context.Context, table string, schema model.Schema, records []model.Record) (InsertResult, error) {
	if len(records) == 0 {
		return InsertResult{}, nil
	}

	cols := make([]string, len(schema.Columns))
	args := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = quoteIdent(c.Name)
		args[i] = fmt.Sprintf("$%d", i+1)
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(args, ", "))
	if len(schema.Key) > 0 {
		stmt += " ON CONFLICT DO NOTHING"
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		batch.Queue(stmt, []any(r)...)
	}

	results := b.pool.SendBatch(ctx, batch)
	defer results.Close()

	var res InsertResult
	for range records {
		ct, err := results.Exec()
		if err != nil {
			return InsertResult{}, fmt.Errorf("insert into %s: %w", table, err)
		}
		if ct.RowsAffected() == 0 {
			res.Conflicts++
		} else {
			res.Inserted++
		}
	}
	return res, nil
}

func (b *postgresBackend) Drop(ctx context.Context, table string) error {
	if _, err := b.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

func (b *postgresBackend) Ping(ctx context.Context) error {
	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *postgresBackend) Close(ctx context.Context) error {
	b.pool.Close()
	return nil
}

func (b *postgresBackend) wrapQueryErr(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return fmt.Errorf("query %s: %w", table, err)
}

func pgType(t model.ColumnType) string {
	switch t {
	case model.TypeFloat:
		return "DOUBLE PRECISION"
	case model.TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

// quoteIdent double-quotes an identifier coming from configuration.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
