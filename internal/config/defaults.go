package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultSourceName        = "tushare"
	DefaultSourceBaseURL     = "http://api.tushare.pro"
	DefaultSourceTimeout     = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultRateMaxCalls      = 500
	DefaultRateWindow        = time.Minute
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultMongoPort         = 27017
	DefaultMongoDatabase     = "frozen"
	DefaultStartDate         = "20050101"
	DefaultMaxParallel       = 4
	DefaultBarsTable         = "stock_daily_price"
	DefaultLimitsTable       = "stock_daily_limit"
	DefaultFundamentalsTable = "stock_daily_fundamental"
	DefaultDividendsTable    = "stock_dividend"
	DefaultSuspensionsTable  = "stock_suspend_status"
	DefaultBasicsTable       = "stock_basic_info"
)

func (c *SyncerConfig) applyDefaults() {
	// Source defaults
	if c.Source.Name == "" {
		c.Source.Name = DefaultSourceName
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = DefaultSourceBaseURL
	}
	if c.Source.Timeout == 0 {
		c.Source.Timeout = DefaultSourceTimeout
	}
	if c.Source.MaxRetries == 0 {
		c.Source.MaxRetries = DefaultMaxRetries
	}
	if c.Source.RateLimit.MaxCalls == 0 {
		c.Source.RateLimit.MaxCalls = DefaultRateMaxCalls
	}
	if c.Source.RateLimit.Window == 0 {
		c.Source.RateLimit.Window = DefaultRateWindow
	}

	// Storage defaults
	if c.Storage.Postgres.Port == 0 {
		c.Storage.Postgres.Port = DefaultDBPort
	}
	if c.Storage.Postgres.SSLMode == "" {
		c.Storage.Postgres.SSLMode = DefaultDBSSLMode
	}
	if c.Storage.Postgres.MaxConns == 0 {
		c.Storage.Postgres.MaxConns = DefaultMaxConns
	}
	if c.Storage.Postgres.MinConns == 0 {
		c.Storage.Postgres.MinConns = DefaultMinConns
	}
	if c.Storage.Mongo.Port == 0 {
		c.Storage.Mongo.Port = DefaultMongoPort
	}
	if c.Storage.Mongo.Database == "" {
		c.Storage.Mongo.Database = DefaultMongoDatabase
	}

	// Sync defaults
	if c.Sync.StartDate == "" {
		c.Sync.StartDate = DefaultStartDate
	}
	if c.Sync.Tables.Bars == "" {
		c.Sync.Tables.Bars = DefaultBarsTable
	}
	if c.Sync.Tables.Limits == "" {
		c.Sync.Tables.Limits = DefaultLimitsTable
	}
	if c.Sync.Tables.Fundamentals == "" {
		c.Sync.Tables.Fundamentals = DefaultFundamentalsTable
	}
	if c.Sync.Tables.Dividends == "" {
		c.Sync.Tables.Dividends = DefaultDividendsTable
	}
	if c.Sync.Tables.Suspensions == "" {
		c.Sync.Tables.Suspensions = DefaultSuspensionsTable
	}
	if c.Sync.Tables.Basics == "" {
		c.Sync.Tables.Basics = DefaultBasicsTable
	}

	// Dispatcher defaults
	if c.Dispatcher.MaxParallel == 0 {
		c.Dispatcher.MaxParallel = DefaultMaxParallel
	}
}
