package config

import (
	"testing"
	"time"
)

func TestSyncDates(t *testing.T) {
	s := SyncConfig{
		StartDate: "20050101",
		EndDate:   "20230106",
		Holidays:  []string{"20230102"},
	}

	if got := s.StartTime(); !got.Equal(time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartTime() = %v, want 2005-01-01", got)
	}
	if got := s.EndTime(time.Now()); !got.Equal(time.Date(2023, 1, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EndTime() = %v, want 2023-01-06", got)
	}

	holidays := s.HolidayTimes()
	if len(holidays) != 1 || !holidays[0].Equal(time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("HolidayTimes() = %v, want [2023-01-02]", holidays)
	}
}

// Malformed dates never reach the helpers on a validated config;
// Validate rejects them first.
func TestSyncDatesRejectedByValidate(t *testing.T) {
	cfg := &SyncerConfig{
		Instance: InstanceConfig{ID: "test"},
		Source:   SourceConfig{Token: "tok"},
		Storage:  StorageConfig{Backend: "sqlite", SQLite: SQLiteConfig{Path: "/tmp/x.db"}},
		Sync:     SyncConfig{StartDate: "01/01/2005"},
	}
	cfg.applyDefaults()
	// applyDefaults only fills empty fields, the bad date stays.
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() should reject a non-YYYYMMDD start date")
	}

	if got := cfg.Sync.StartTime(); !got.IsZero() {
		t.Errorf("StartTime() on unvalidated config = %v, want zero", got)
	}
}
