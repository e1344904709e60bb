package source

import (
	"context"
	"log/slog"
	"time"

	"github.com/frozenquant/frozen-data/internal/model"
)

// wireDateLayout is the upstream date encoding.
const wireDateLayout = "20060102"

// Upstream endpoint names.
const (
	apiDaily      = "daily"
	apiStkLimit   = "stk_limit"
	apiDailyBasic = "daily_basic"
	apiDividend   = "dividend"
	apiSuspendD   = "suspend_d"
	apiStockBasic = "stock_basic"
)

type tushareFactory struct {
	client *Client
	logger *slog.Logger
}

func (f *tushareFactory) Adapter(ticker string, start, end time.Time) Adapter {
	return &tushareAdapter{
		client: f.client,
		logger: f.logger,
		ticker: ticker,
		start:  start,
		end:    end,
	}
}

type tushareAdapter struct {
	client *Client
	logger *slog.Logger
	ticker string
	start  time.Time
	end    time.Time
}

// windowParams scopes a call to the adapter's instrument and window.
func (a *tushareAdapter) windowParams() map[string]string {
	return map[string]string{
		"ts_code":    a.ticker,
		"start_date": a.start.Format(wireDateLayout),
		"end_date":   a.end.Format(wireDateLayout),
	}
}

func (a *tushareAdapter) Bars(ctx context.Context) ([]model.Bar, error) {
	rs, err := a.client.call(ctx, apiDaily, a.windowParams(), "")
	if err != nil {
		return nil, err
	}
	if rs.empty() {
		return nil, nil
	}

	bars := make([]model.Bar, 0, len(rs.Items))
	for _, r := range rs.rows() {
		bars = append(bars, model.Bar{
			TSCode:    r.str("ts_code"),
			TradeDate: r.date("trade_date"),
			Open:      r.float("open"),
			High:      r.float("high"),
			Low:       r.float("low"),
			Close:     r.float("close"),
			PreClose:  r.float("pre_close"),
			Change:    r.float("change"),
			PctChg:    r.float("pct_chg"),
			Vol:       r.float("vol"),
			Amount:    r.float("amount"),
		})
	}
	return bars, nil
}

func (a *tushareAdapter) Limits(ctx context.Context) ([]model.Limit, error) {
	rs, err := a.client.call(ctx, apiStkLimit, a.windowParams(),
		"trade_date,ts_code,up_limit,down_limit")
	if err != nil {
		return nil, err
	}
	if rs.empty() {
		return nil, nil
	}

	limits := make([]model.Limit, 0, len(rs.Items))
	for _, r := range rs.rows() {
		limits = append(limits, model.Limit{
			TradeDate: r.date("trade_date"),
			TSCode:    r.str("ts_code"),
			UpLimit:   r.float("up_limit"),
			DownLimit: r.float("down_limit"),
		})
	}
	return limits, nil
}

func (a *tushareAdapter) Fundamentals(ctx context.Context) ([]model.Fundamental, error) {
	rs, err := a.client.call(ctx, apiDailyBasic, a.windowParams(),
		"ts_code,trade_date,turnover_rate,volume_ratio,pe,pe_ttm,pb,ps,ps_ttm,dv_ratio,dv_ttm,total_share,float_share,total_mv,circ_mv")
	if err != nil {
		return nil, err
	}
	if rs.empty() {
		return nil, nil
	}

	rows := make([]model.Fundamental, 0, len(rs.Items))
	for _, r := range rs.rows() {
		rows = append(rows, model.Fundamental{
			TSCode:       r.str("ts_code"),
			TradeDate:    r.date("trade_date"),
			TurnoverRate: r.float("turnover_rate"),
			VolumeRatio:  r.float("volume_ratio"),
			PE:           r.float("pe"),
			PETTM:        r.float("pe_ttm"),
			PB:           r.float("pb"),
			PS:           r.float("ps"),
			PSTTM:        r.float("ps_ttm"),
			DVRatio:      r.float("dv_ratio"),
			DVTTM:        r.float("dv_ttm"),
			TotalShare:   r.float("total_share"),
			FloatShare:   r.float("float_share"),
			TotalMV:      r.float("total_mv"),
			CircMV:       r.float("circ_mv"),
		})
	}
	return rows, nil
}

func (a *tushareAdapter) Dividends(ctx context.Context, cutoff time.Time) ([]model.Dividend, error) {
	// The dividend endpoint has no date-window parameters; it returns
	// the full event history and the cutoff is applied here.
	rs, err := a.client.call(ctx, apiDividend, map[string]string{"ts_code": a.ticker},
		"ts_code,stk_div,stk_bo_rate,stk_co_rate,cash_div,ex_date")
	if err != nil {
		return nil, err
	}
	if rs.empty() {
		return nil, nil
	}

	seen := make(map[model.Dividend]struct{}, len(rs.Items))
	events := make([]model.Dividend, 0, len(rs.Items))
	for _, r := range rs.rows() {
		d := model.Dividend{
			TSCode:    r.str("ts_code"),
			StkDiv:    r.float("stk_div"),
			StkBoRate: r.float("stk_bo_rate"),
			StkCoRate: r.float("stk_co_rate"),
			CashDiv:   r.float("cash_div"),
			ExDate:    r.date("ex_date"),
		}
		// Pre-announcement events carry no ex-date yet.
		if d.ExDate.IsZero() {
			continue
		}
		if !cutoff.IsZero() && !d.ExDate.After(cutoff) {
			continue
		}
		// The endpoint repeats an event once per announcement stage.
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		events = append(events, d)
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events, nil
}

func (a *tushareAdapter) Suspensions(ctx context.Context, day time.Time) ([]model.Suspension, error) {
	rs, err := a.client.call(ctx, apiSuspendD, map[string]string{
		"suspend_type": "S",
		"trade_date":   day.Format(wireDateLayout),
	}, "ts_code,trade_date,suspend_timing,suspend_type")
	if err != nil {
		return nil, err
	}
	if rs.empty() {
		return nil, nil
	}

	rows := make([]model.Suspension, 0, len(rs.Items))
	for _, r := range rs.rows() {
		rows = append(rows, model.Suspension{
			TSCode:        r.str("ts_code"),
			TradeDate:     r.date("trade_date"),
			SuspendTiming: r.str("suspend_timing"),
			SuspendType:   r.str("suspend_type"),
		})
	}
	return rows, nil
}

func (a *tushareAdapter) Basics(ctx context.Context, listStatus string) ([]model.Basic, error) {
	rs, err := a.client.call(ctx, apiStockBasic, map[string]string{
		"exchange":    "",
		"list_status": listStatus,
	}, "ts_code,name,area,industry,fullname,enname,market,exchange,list_date")
	if err != nil {
		return nil, err
	}
	if rs.empty() {
		return nil, nil
	}

	rows := make([]model.Basic, 0, len(rs.Items))
	for _, r := range rs.rows() {
		rows = append(rows, model.Basic{
			TSCode:   r.str("ts_code"),
			Name:     r.str("name"),
			Area:     r.str("area"),
			Industry: r.str("industry"),
			Fullname: r.str("fullname"),
			Enname:   r.str("enname"),
			Market:   r.str("market"),
			Exchange: r.str("exchange"),
			ListDate: r.date("list_date"),
		})
	}
	return rows, nil
}
