// Package calendar supplies ordered trade-day sequences for the
// synchronization engine.
//
// A day trades when it is a weekday and not in the configured holiday
// set. The suspension sync uses TradeDays to enumerate per-day units
// and NextTradeDay to resume from a watermark.
package calendar

import "time"

const dayKeyLayout = "20060102"

// Calendar answers trade-day queries against a fixed holiday set.
type Calendar struct {
	holidays map[string]struct{}
}

// New builds a calendar from explicit non-trading holidays.
func New(holidays []time.Time) *Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.UTC().Format(dayKeyLayout)] = struct{}{}
	}
	return &Calendar{holidays: set}
}

// IsTradeDay reports whether the given date is a trading day.
func (c *Calendar) IsTradeDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[d.UTC().Format(dayKeyLayout)]
	return !holiday
}

// TradeDays returns the ordered trading days in [start, end], inclusive.
func (c *Calendar) TradeDays(start, end time.Time) []time.Time {
	start = midnight(start)
	end = midnight(end)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsTradeDay(d) {
			days = append(days, d)
		}
	}
	return days
}

// NextTradeDay returns the first trading day strictly after the given date.
func (c *Calendar) NextTradeDay(d time.Time) time.Time {
	next := midnight(d).AddDate(0, 0, 1)
	for !c.IsTradeDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func midnight(d time.Time) time.Time {
	y, m, day := d.UTC().Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
