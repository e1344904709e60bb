package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-syncer
source:
  name: tushare
  token: abc123
storage:
  backend: sqlite
  sqlite:
    path: /tmp/frozen.db
sync:
  start_date: "20050101"
  universe:
    - 000001.SZ
    - 600000.SH
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-syncer" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-syncer")
	}
	if cfg.Source.Token != "abc123" {
		t.Errorf("Source.Token = %q, want %q", cfg.Source.Token, "abc123")
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want %q", cfg.Storage.Backend, "sqlite")
	}
	if len(cfg.Sync.Universe) != 2 {
		t.Errorf("len(Sync.Universe) = %d, want 2", len(cfg.Sync.Universe))
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_SOURCE_TOKEN", "secret123")

	yaml := `
instance:
  id: test-syncer
source:
  token: ${TEST_SOURCE_TOKEN}
storage:
  backend: sqlite
  sqlite:
    path: /tmp/frozen.db
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Source.Token != "secret123" {
		t.Errorf("Source.Token = %q, want %q", cfg.Source.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-syncer
source:
  token: abc123
storage:
  backend: postgres
  postgres:
    host: localhost
    name: frozen
    user: frozen
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Source.BaseURL != DefaultSourceBaseURL {
		t.Errorf("Source.BaseURL = %q, want %q", cfg.Source.BaseURL, DefaultSourceBaseURL)
	}
	if cfg.Source.RateLimit.MaxCalls != DefaultRateMaxCalls {
		t.Errorf("RateLimit.MaxCalls = %d, want %d", cfg.Source.RateLimit.MaxCalls, DefaultRateMaxCalls)
	}
	if cfg.Source.RateLimit.Window != DefaultRateWindow {
		t.Errorf("RateLimit.Window = %v, want %v", cfg.Source.RateLimit.Window, DefaultRateWindow)
	}
	if cfg.Storage.Postgres.Port != DefaultDBPort {
		t.Errorf("Postgres.Port = %d, want %d", cfg.Storage.Postgres.Port, DefaultDBPort)
	}
	if cfg.Sync.StartDate != DefaultStartDate {
		t.Errorf("Sync.StartDate = %q, want %q", cfg.Sync.StartDate, DefaultStartDate)
	}
	if cfg.Sync.Tables.Dividends != DefaultDividendsTable {
		t.Errorf("Tables.Dividends = %q, want %q", cfg.Sync.Tables.Dividends, DefaultDividendsTable)
	}
}

func TestLoadAndValidate_MissingToken(t *testing.T) {
	yaml := `
instance:
  id: test-syncer
storage:
  backend: sqlite
  sqlite:
    path: /tmp/frozen.db
`
	path := writeTempFile(t, yaml)

	if _, err := LoadAndValidate(path); err == nil {
		t.Error("expected validation error for missing token")
	}
}

func TestValidate_UnsupportedBackend(t *testing.T) {
	cfg := &SyncerConfig{
		Instance: InstanceConfig{ID: "x"},
		Source:   SourceConfig{Token: "t"},
		Storage:  StorageConfig{Backend: "duckdb"},
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for unsupported backend")
	}
}

func TestValidate_BadDates(t *testing.T) {
	cfg := &SyncerConfig{
		Instance: InstanceConfig{ID: "x"},
		Source:   SourceConfig{Token: "t"},
		Storage:  StorageConfig{Backend: "sqlite", SQLite: SQLiteConfig{Path: "/tmp/x.db"}},
		Sync:     SyncConfig{StartDate: "2005-01-01"},
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for malformed start_date")
	}
}

func TestSyncConfig_EndTimeDefaultsToToday(t *testing.T) {
	s := SyncConfig{}
	now := time.Date(2023, 6, 15, 14, 30, 0, 0, time.UTC)

	got := s.EndTime(now)
	want := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndTime = %v, want %v", got, want)
	}

	s.EndDate = "20231231"
	got = s.EndTime(now)
	want = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("EndTime = %v, want %v", got, want)
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}
