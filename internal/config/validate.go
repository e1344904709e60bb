package config

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "20060102"

// Validate checks that all required fields are set and values are valid.
func (c *SyncerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Source.Token == "" {
		return errors.New("source.token is required")
	}
	if c.Source.RateLimit.MaxCalls < 1 {
		return errors.New("source.rate_limit.max_calls must be >= 1")
	}
	if c.Source.RateLimit.Window <= 0 {
		return errors.New("source.rate_limit.window must be > 0")
	}

	switch c.Storage.Backend {
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	case "sqlite":
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required")
		}
	case "mongo":
		if c.Storage.Mongo.Host == "" {
			return errors.New("storage.mongo.host is required")
		}
	case "":
		return errors.New("storage.backend is required")
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}

	if _, err := time.Parse(dateLayout, c.Sync.StartDate); err != nil {
		return fmt.Errorf("sync.start_date %q is not YYYYMMDD", c.Sync.StartDate)
	}
	if c.Sync.EndDate != "" {
		if _, err := time.Parse(dateLayout, c.Sync.EndDate); err != nil {
			return fmt.Errorf("sync.end_date %q is not YYYYMMDD", c.Sync.EndDate)
		}
	}
	for _, h := range c.Sync.Holidays {
		if _, err := time.Parse(dateLayout, h); err != nil {
			return fmt.Errorf("sync.holidays entry %q is not YYYYMMDD", h)
		}
	}

	if c.Dispatcher.MaxParallel < 1 {
		return errors.New("dispatcher.max_parallel must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Port < 1 || db.Port > 65535 {
		return fmt.Errorf("%s.port must be in 1..65535", prefix)
	}
	return nil
}
