// Package model defines the record types and logical schemas for the six
// synchronized data categories.
//
// Categories:
//   - bar: daily volume-price bars, keyed (ts_code, trade_date)
//   - limit: daily gain/loss limits, keyed (ts_code, trade_date)
//   - fundamental: daily valuation ratios, keyed (ts_code, trade_date)
//   - dividend: dividend events, keyed (ts_code, ex_date)
//   - suspension: per-day suspension status, keyed by trade_date
//   - basic: listed-instrument reference data, keyed ts_code
//
// Schemas are backend-neutral: column names plus a small type vocabulary
// that each storage backend maps to its native DDL or index definition.
package model
