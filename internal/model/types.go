package model

import "time"

// Bar is one daily volume-price bar.
type Bar struct {
	TSCode    string
	TradeDate time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	PreClose  float64
	Change    float64
	PctChg    float64
	Vol       float64
	Amount    float64
}

// Limit is one daily gain/loss limit row.
type Limit struct {
	TradeDate time.Time
	TSCode    string
	UpLimit   float64
	DownLimit float64
}

// Fundamental is one daily valuation-ratio row.
type Fundamental struct {
	TSCode       string
	TradeDate    time.Time
	TurnoverRate float64
	VolumeRatio  float64
	PE           float64
	PETTM        float64
	PB           float64
	PS           float64
	PSTTM        float64
	DVRatio      float64
	DVTTM        float64
	TotalShare   float64
	FloatShare   float64
	TotalMV      float64
	CircMV       float64
}

// Dividend is one dividend event.
type Dividend struct {
	TSCode    string
	StkDiv    float64
	StkBoRate float64
	StkCoRate float64
	CashDiv   float64
	ExDate    time.Time
}

// Suspension is one per-day suspension status row.
type Suspension struct {
	TSCode        string
	TradeDate     time.Time
	SuspendTiming string
	SuspendType   string
}

// Basic is reference data for one listed instrument.
type Basic struct {
	TSCode   string
	Name     string
	Area     string
	Industry string
	Fullname string
	Enname   string
	Market   string
	Exchange string
	ListDate time.Time
}

// Record renders the bar in bar-schema column order.
func (b Bar) Record() Record {
	return Record{b.TSCode, b.TradeDate, b.Open, b.High, b.Low, b.Close, b.PreClose, b.Change, b.PctChg, b.Vol, b.Amount}
}

// Record renders the limit row in limit-schema column order.
func (l Limit) Record() Record {
	return Record{l.TradeDate, l.TSCode, l.UpLimit, l.DownLimit}
}

// Record renders the row in fundamental-schema column order.
func (f Fundamental) Record() Record {
	return Record{f.TSCode, f.TradeDate, f.TurnoverRate, f.VolumeRatio, f.PE, f.PETTM, f.PB, f.PS, f.PSTTM, f.DVRatio, f.DVTTM, f.TotalShare, f.FloatShare, f.TotalMV, f.CircMV}
}

// Record renders the event in dividend-schema column order.
func (d Dividend) Record() Record {
	return Record{d.TSCode, d.StkDiv, d.StkBoRate, d.StkCoRate, d.CashDiv, d.ExDate}
}

// Record renders the row in suspension-schema column order.
func (s Suspension) Record() Record {
	return Record{s.TSCode, s.TradeDate, s.SuspendTiming, s.SuspendType}
}

// Record renders the row in basic-schema column order.
func (b Basic) Record() Record {
	return Record{b.TSCode, b.Name, b.Area, b.Industry, b.Fullname, b.Enname, b.Market, b.Exchange, b.ListDate}
}

// Records converts a typed slice to generic records.
func Records[T interface{ Record() Record }](rows []T) []Record {
	if len(rows) == 0 {
		return nil
	}
	out := make([]Record, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return out
}
