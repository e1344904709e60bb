package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/frozenquant/frozen-data/internal/config"
	"github.com/frozenquant/frozen-data/internal/model"
)

// sqliteDateLayout is how date values are stored; lexicographic order
// matches chronological order, so MAX() works on the raw text.
const sqliteDateLayout = "20060102"

type sqliteBackend struct {
	db     *sql.DB
	logger *slog.Logger
}

func openSQLite(ctx context.Context, cfg config.SQLiteConfig, logger *slog.Logger) (Backend, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single writer: the file store does not take concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrBackendUnavailable, err)
	}

	return &sqliteBackend{db: db, logger: logger}, nil
}

func (b *sqliteBackend) Capabilities() Capabilities {
	return Capabilities{ConcurrentWrites: false, DedupeOnInsert: true}
}

func (b *sqliteBackend) TableExists(ctx context.Context, table string) (bool, error) {
	var count int
	err := b.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return count > 0, nil
}

func (b *sqliteBackend) EnsureSchema(ctx context.Context, table string, schema model.Schema) error {
	exists, err := b.TableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return b.checkColumns(ctx, table, schema)
	}

	cols := make([]string, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		cols = append(cols, fmt.Sprintf("%s %s", quoteIdent(c.Name), sqliteType(c.Type)))
	}
	if len(schema.Key) > 0 {
		keys := make([]string, len(schema.Key))
		for i, k := range schema.Key {
			keys[i] = quoteIdent(k)
		}
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := b.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	b.logger.Info("created table", "table", table, "backend", "sqlite")
	return nil
}

func (b *sqliteBackend) checkColumns(ctx context.Context, table string, schema model.Schema) error {
	rows, err := b.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?)`, table)
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

func (b *sqliteBackend) IsEmpty(ctx context.Context, table string) (bool, error) {
	var count int
	err := b.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(1) FROM %s", quoteIdent(table)),
	).Scan(&count)
	if err != nil {
		return false, b.wrapQueryErr(table, err)
	}
	return count == 0, nil
}

func (b *sqliteBackend) DistinctEntities(ctx context.Context, table string) ([]string, error) {
	rows, err := b.db.QueryContext(ctx,
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

func (b *sqliteBackend) MaxDateByEntity(ctx context.Context, table, dateColumn string) (map[string]time.Time, error) {
	rows, err := b.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT %s, MAX(%s) FROM %s GROUP BY %s",
		quoteIdent(model.EntityColumn), quoteIdent(dateColumn), quoteIdent(table), quoteIdent(model.EntityColumn),
	))
	if err != nil {
		return nil, b.wrapQueryErr(table, err)
	}
	defer rows.Close()

	marks := make(map[string]time.Time)
	for rows.Next() {
		var entity, max string
		if err := rows.Scan(&entity, &max); err != nil {
			return nil, err
		}
		d, err := time.Parse(sqliteDateLayout, max)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", max, err)
		}
		marks[entity] = d
	}
	return marks, rows.Err()
}

func (b *sqliteBackend) MaxDate(ctx context.Context, table, dateColumn string) (time.Time, error) {
	var max sql.NullString
	err := b.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT MAX(%s) FROM %s", quoteIdent(dateColumn), quoteIdent(table),
	)).Scan(&max)
	if err != nil {
		return time.Time{}, b.wrapQueryErr(table, err)
	}
	if !max.Valid {
		return time.Time{}, nil
	}
	d, err := time.Parse(sqliteDateLayout, max.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", max.String, err)
	}
	return d, nil
}

func (b *sqliteBackend) Exists(ctx context.Context, table, column string, value any) (bool, error) {
	var count int
	err := b.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(1) FROM %s WHERE %s = ?", quoteIdent(table), quoteIdent(column),
	), sqliteValue(value)).Scan(&count)
	if err != nil {
		return false, b.wrapQueryErr(table, err)
	}
	return count > 0, nil
}

// Insert writes all rows in one transaction. INSERT OR IGNORE drops
// rows colliding with the composite key; sql.Result accounting splits
// inserted from conflicting rows.
func (b *sqliteBackend) Insert(ctx context.Context, table string, schema model.Schema, records []model.Record) (InsertResult, error) {
	if len(records) == 0 {
		return InsertResult{}, nil
	}

	cols := make([]string, len(schema.Columns))
	marks := make([]string, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	verb := "INSERT"
	if len(schema.Key) > 0 {
		verb = "INSERT OR IGNORE"
	}
	stmtText := fmt.Sprintf("%s INTO %s (%s) VALUES (%s)",
		verb, quoteIdent(table), strings.Join(cols, ", "), strings.Join(marks, ", "))

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return InsertResult{}, fmt.Errorf("begin insert tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtText)
	if err != nil {
		_ = tx.Rollback()
		return InsertResult{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var res InsertResult
	for _, r := range records {
		args := make([]any, len(r))
		for i, v := range r {
			args[i] = sqliteValue(v)
		}
		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			_ = tx.Rollback()
			return InsertResult{}, fmt.Errorf("insert into %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			_ = tx.Rollback()
			return InsertResult{}, err
		}
		if n == 0 {
			res.Conflicts++
		} else {
			res.Inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("commit insert: %w", err)
	}
	return res, nil
}

func (b *sqliteBackend) Drop(ctx context.Context, table string) error {
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table))); err != nil {
		return fmt.Errorf("drop table %s: %w", table, err)
	}
	return nil
}

func (b *sqliteBackend) Ping(ctx context.Context) error {
	if err := b.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *sqliteBackend) Close(ctx context.Context) error {
	return b.db.Close()
}

func (b *sqliteBackend) wrapQueryErr(table string, err error) error {
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %s", ErrNotFound, table)
	}
	return fmt.Errorf("query %s: %w", table, err)
}

// sqliteValue maps record values to driver-friendly types. Dates are
// stored as YYYYMMDD text.
func sqliteValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(sqliteDateLayout)
	}
	return v
}

func sqliteType(t model.ColumnType) string {
	switch t {
	case model.TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}
