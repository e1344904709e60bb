// Package sync implements the incremental synchronization engine.
//
// The engine pulls one data category at a time. Entity-keyed
// categories (bars, limits, fundamentals, dividends) synchronize per
// instrument: in full mode every universe instrument missing from the
// table is backfilled over the whole configured window, while in
// incremental mode each stored instrument extends from the day after
// its watermark and instruments without any stored rows backfill from
// the historical floor. The suspension category is date-keyed and
// advances one trade day at a time from a table-wide watermark.
// Reference data is always refreshed in full.
//
// A unit (one instrument, or one trade day) fails independently:
// fetch or insert errors are logged and the run continues. Empty
// fetches are skipped, not failed. Each operation returns a Summary
// accounting for every unit.
package sync
