package watermark

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/frozenquant/frozen-data/internal/config"
	"github.com/frozenquant/frozen-data/internal/model"
	"github.com/frozenquant/frozen-data/internal/storage"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestTracker(t *testing.T) (*Tracker, storage.Backend) {
	t.Helper()
	cfg := config.StorageConfig{
		Backend: "sqlite",
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "wm.db")},
	}
	b, err := storage.Open(context.Background(), cfg, slog.Default())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return New(b, slog.Default()), b
}

func seedBars(t *testing.T, b storage.Backend) {
	t.Helper()
	ctx := context.Background()
	schema := model.CategoryBar.Schema()
	if err := b.EnsureSchema(ctx, "bars", schema); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	bars := []model.Bar{
		{TSCode: "000001.SZ", TradeDate: day(2023, 1, 3), Close: 10},
		{TSCode: "000001.SZ", TradeDate: day(2023, 1, 5), Close: 11},
		{TSCode: "600000.SH", TradeDate: day(2023, 1, 4), Close: 8},
	}
	if _, err := b.Insert(ctx, "bars", schema, model.Records(bars)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
}

func TestPerEntity(t *testing.T) {
	tr, b := newTestTracker(t)
	seedBars(t, b)

	marks, err := tr.PerEntity(context.Background(), "bars", "trade_date")
	if err != nil {
		t.Fatalf("PerEntity: %v", err)
	}
	if len(marks) != 2 {
		t.Fatalf("len(marks) = %d, want 2", len(marks))
	}
	if !marks["000001.SZ"].Equal(day(2023, 1, 5)) {
		t.Errorf("marks[000001.SZ] = %v, want 2023-01-05", marks["000001.SZ"])
	}
	if !marks["600000.SH"].Equal(day(2023, 1, 4)) {
		t.Errorf("marks[600000.SH] = %v, want 2023-01-04", marks["600000.SH"])
	}
}

func TestPerEntityMissingTable(t *testing.T) {
	tr, _ := newTestTracker(t)

	_, err := tr.PerEntity(context.Background(), "absent", "trade_date")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("PerEntity on missing table: err = %v, want ErrNotFound", err)
	}
}

func TestGlobal(t *testing.T) {
	tr, b := newTestTracker(t)
	seedBars(t, b)

	max, err := tr.Global(context.Background(), "bars", "trade_date")
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if !max.Equal(day(2023, 1, 5)) {
		t.Errorf("Global = %v, want 2023-01-05", max)
	}
}

func TestGlobalEmptyTable(t *testing.T) {
	tr, b := newTestTracker(t)
	ctx := context.Background()
	if err := b.EnsureSchema(ctx, "bars", model.CategoryBar.Schema()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	max, err := tr.Global(ctx, "bars", "trade_date")
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if !max.IsZero() {
		t.Errorf("Global on empty table = %v, want zero", max)
	}
}

func TestMarksNextStart(t *testing.T) {
	marks := Marks{"000001.SZ": day(2023, 1, 5)}

	next, ok := marks.NextStart("000001.SZ")
	if !ok {
		t.Fatal("NextStart(000001.SZ) ok = false, want true")
	}
	if !next.Equal(day(2023, 1, 6)) {
		t.Errorf("NextStart = %v, want 2023-01-06", next)
	}

	if _, ok := marks.NextStart("999999.SZ"); ok {
		t.Error("NextStart for unknown entity ok = true, want false")
	}
}
