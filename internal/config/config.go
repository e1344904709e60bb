package config

import "time"

// SyncerConfig is the root configuration for a syncer run.
type SyncerConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Sync       SyncConfig       `yaml:"sync"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
}

// DispatcherConfig bounds category-level parallelism.
type DispatcherConfig struct {
	MaxParallel int `yaml:"max_parallel"`
}

// InstanceConfig identifies this syncer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SourceConfig holds upstream data-source settings.
type SourceConfig struct {
	Name       string          `yaml:"name"` // e.g. "tushare"
	Token      string          `yaml:"token"`
	BaseURL    string          `yaml:"base_url"`
	Timeout    time.Duration   `yaml:"timeout"`
	MaxRetries int             `yaml:"max_retries"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig bounds upstream calls per rolling window.
type RateLimitConfig struct {
	MaxCalls int           `yaml:"max_calls"`
	Window   time.Duration `yaml:"window"`
}

// StorageConfig selects and parameterizes the storage backend.
type StorageConfig struct {
	Backend  string       `yaml:"backend"` // "postgres", "sqlite" or "mongo"
	Postgres DBConfig     `yaml:"postgres"`
	SQLite   SQLiteConfig `yaml:"sqlite"`
	Mongo    MongoConfig  `yaml:"mongo"`
}

// DBConfig holds a PostgreSQL connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// SQLiteConfig holds the embedded store location.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// MongoConfig holds a MongoDB connection.
type MongoConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// SyncConfig holds synchronization parameters.
type SyncConfig struct {
	// StartDate is the historical floor for backfills (YYYYMMDD).
	StartDate string `yaml:"start_date"`
	// EndDate bounds full backfills (YYYYMMDD). Empty means today.
	EndDate string `yaml:"end_date"`
	// Universe lists the instruments to synchronize.
	Universe []string `yaml:"universe"`
	// Holidays lists non-trading weekdays (YYYYMMDD).
	Holidays []string `yaml:"holidays"`
	// Tables maps categories to table/collection names.
	Tables TablesConfig `yaml:"tables"`
}

// TablesConfig names the table or collection per category.
type TablesConfig struct {
	Bars         string `yaml:"bars"`
	Limits       string `yaml:"limits"`
	Fundamentals string `yaml:"fundamentals"`
	Dividends    string `yaml:"dividends"`
	Suspensions  string `yaml:"suspensions"`
	Basics       string `yaml:"basics"`
}
