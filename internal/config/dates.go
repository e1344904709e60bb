package config

import "time"

// Date helpers assume the config passed Validate, which enforces the
// YYYYMMDD format. On an unvalidated config a malformed date yields
// the zero time.

// StartTime parses the configured historical floor.
func (s SyncConfig) StartTime() time.Time {
	t, _ := time.Parse(dateLayout, s.StartDate)
	return t
}

// EndTime parses the configured end date, or returns today (UTC
// midnight) when no end date is set.
func (s SyncConfig) EndTime(now time.Time) time.Time {
	if s.EndDate == "" {
		y, m, d := now.UTC().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	t, _ := time.Parse(dateLayout, s.EndDate)
	return t
}

// HolidayTimes parses the configured holiday list.
func (s SyncConfig) HolidayTimes() []time.Time {
	out := make([]time.Time, 0, len(s.Holidays))
	for _, h := range s.Holidays {
		if t, err := time.Parse(dateLayout, h); err == nil {
			out = append(out, t)
		}
	}
	return out
}
