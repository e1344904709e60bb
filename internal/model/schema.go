package model

import (
	"fmt"
	"strings"
	"time"
)

// Category identifies one of the six synchronized data categories.
type Category string

const (
	CategoryBar         Category = "bar"
	CategoryLimit       Category = "limit"
	CategoryFundamental Category = "fundamental"
	CategoryDividend    Category = "dividend"
	CategorySuspension  Category = "suspension"
	CategoryBasic       Category = "basic"
)

// EntityColumn is the instrument identifier column shared by all categories.
const EntityColumn = "ts_code"

// ColumnType is the backend-neutral type vocabulary.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeFloat
	TypeDate
)

// KeyKind tells whether a category's synchronization unit is an
// instrument or a calendar date.
type KeyKind int

const (
	// KeyEntity units are instrument tickers.
	KeyEntity KeyKind = iota
	// KeyDate units are trade dates (suspension category).
	KeyDate
)

// Column is one logical column of a category table.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the logical layout of a category table.
type Schema struct {
	Columns []Column
	// Key lists the composite unique key columns. Empty means the table
	// carries no uniqueness constraint (suspension).
	Key []string
	// DateColumn is the watermark column ("" for reference data).
	DateColumn string
	KeyKind    KeyKind
}

// Record is one row in schema column order. Date-typed values are
// time.Time, float columns float64, string columns string.
type Record []any

// Schema returns the logical schema for the category.
func (c Category) Schema() Schema {
	switch c {
	case CategoryBar:
		return Schema{
			Columns: []Column{
				{EntityColumn, TypeString},
				{"trade_date", TypeDate},
				{"open", TypeFloat},
				{"high", TypeFloat},
				{"low", TypeFloat},
				{"close", TypeFloat},
				{"pre_close", TypeFloat},
				{"change", TypeFloat},
				{"pct_chg", TypeFloat},
				{"vol", TypeFloat},
				{"amount", TypeFloat},
			},
			Key:        []string{EntityColumn, "trade_date"},
			DateColumn: "trade_date",
			KeyKind:    KeyEntity,
		}
	case CategoryLimit:
		return Schema{
			Columns: []Column{
				{"trade_date", TypeDate},
				{EntityColumn, TypeString},
				{"up_limit", TypeFloat},
				{"down_limit", TypeFloat},
			},
			Key:        []string{EntityColumn, "trade_date"},
			DateColumn: "trade_date",
			KeyKind:    KeyEntity,
		}
	case CategoryFundamental:
		return Schema{
			Columns: []Column{
				{EntityColumn, TypeString},
				{"trade_date", TypeDate},
				{"turnover_rate", TypeFloat},
				{"volume_ratio", TypeFloat},
				{"pe", TypeFloat},
				{"pe_ttm", TypeFloat},
				{"pb", TypeFloat},
				{"ps", TypeFloat},
				{"ps_ttm", TypeFloat},
				{"dv_ratio", TypeFloat},
				{"dv_ttm", TypeFloat},
				{"total_share", TypeFloat},
				{"float_share", TypeFloat},
				{"total_mv", TypeFloat},
				{"circ_mv", TypeFloat},
			},
			Key:        []string{EntityColumn, "trade_date"},
			DateColumn: "trade_date",
			KeyKind:    KeyEntity,
		}
	case CategoryDividend:
		return Schema{
			Columns: []Column{
				{EntityColumn, TypeString},
				{"stk_div", TypeFloat},
				{"stk_bo_rate", TypeFloat},
				{"stk_co_rate", TypeFloat},
				{"cash_div", TypeFloat},
				{"ex_date", TypeDate},
			},
			Key:        []string{EntityColumn, "ex_date"},
			DateColumn: "ex_date",
			KeyKind:    KeyEntity,
		}
	case CategorySuspension:
		return Schema{
			Columns: []Column{
				{EntityColumn, TypeString},
				{"trade_date", TypeDate},
				{"suspend_timing", TypeString},
				{"suspend_type", TypeString},
			},
			DateColumn: "trade_date",
			KeyKind:    KeyDate,
		}
	case CategoryBasic:
		return Schema{
			Columns: []Column{
				{EntityColumn, TypeString},
				{"name", TypeString},
				{"area", TypeString},
				{"industry", TypeString},
				{"fullname", TypeString},
				{"enname", TypeString},
				{"market", TypeString},
				{"exchange", TypeString},
				{"list_date", TypeDate},
			},
			Key:     []string{EntityColumn},
			KeyKind: KeyEntity,
		}
	}
	return Schema{}
}

// Categories lists all known categories.
func Categories() []Category {
	return []Category{
		CategoryBar,
		CategoryLimit,
		CategoryFundamental,
		CategoryDividend,
		CategorySuspension,
		CategoryBasic,
	}
}

// ParseCategory resolves a category name.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == strings.ToLower(strings.TrimSpace(name)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category: %q", name)
}

// ColumnNames returns the column names in order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// keyIndexes returns the positions of the key columns.
func (s Schema) keyIndexes() []int {
	idx := make([]int, 0, len(s.Key))
	for _, k := range s.Key {
		for i, c := range s.Columns {
			if c.Name == k {
				idx = append(idx, i)
			}
		}
	}
	return idx
}

// RecordKey renders the composite key of a record for deduplication.
// Records of key-less schemas all map to distinct keys.
func (s Schema) RecordKey(r Record) string {
	idx := s.keyIndexes()
	if len(idx) == 0 {
		return ""
	}
	parts := make([]string, len(idx))
	for i, j := range idx {
		switch v := r[j].(type) {
		case time.Time:
			parts[i] = v.UTC().Format("20060102")
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return strings.Join(parts, "|")
}

// Dedupe drops records whose composite key repeats an earlier record.
// Schemas without a unique key pass through unchanged.
func (s Schema) Dedupe(records []Record) []Record {
	if len(s.Key) == 0 || len(records) < 2 {
		return records
	}
	seen := make(map[string]struct{}, len(records))
	out := records[:0:0]
	for _, r := range records {
		k := s.RecordKey(r)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}
