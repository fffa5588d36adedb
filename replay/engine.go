// Package replay implements the replay driver: it owns the clock, the
// strategy handle, and the matching engine, loading historical data in
// progress-reporting batches and driving the event loop against it.
package replay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantrook/backreplay/bterrors"
	"github.com/quantrook/backreplay/historicaldata"
	"github.com/quantrook/backreplay/matching"
	"github.com/quantrook/backreplay/models"
	"github.com/quantrook/backreplay/strategy"
	"github.com/quantrook/backreplay/tracing"
)

// intervalDelta is the gap subtracted/added between load windows so
// consecutive windows never overlap and never leave a record unfetched.
var intervalDelta = map[models.Interval]time.Duration{
	models.IntervalTick:   time.Millisecond,
	models.IntervalMinute: time.Minute,
	models.IntervalHour:   time.Hour,
	models.IntervalDaily:  24 * time.Hour,
	models.IntervalWeekly: 7 * 24 * time.Hour,
}

// ProgressFunc is invoked with a phase name ("load"/"replay") and a
// fraction in [0,1] at each reporting tick. A replay engine attached to a
// websocket broadcaster wires this to push progress over the wire; tests
// and headless runs can leave it nil.
type ProgressFunc func(phase string, fraction float64)

// OrderFunc, TradeFunc, and StopOrderFunc mirror the strategy capability's
// own on_order/on_trade/on_stop_order callbacks (spec.md §6), fired
// alongside them so an observer — typically a websocket broadcaster — can
// stream the run's order/fill events without the matching engine itself
// knowing anything about transport.
type (
	OrderFunc     func(models.Order)
	TradeFunc     func(models.Trade)
	StopOrderFunc func(models.StopOrder)
)

// Engine is the replay driver for a single instrument. It is not safe for
// concurrent RunBacktesting/LoadData calls — the scheduling model is
// single-threaded cooperative, per spec.
type Engine struct {
	VtSymbol string
	Symbol   string
	Exchange string

	Start time.Time
	End   time.Time

	Interval  models.Interval
	Mode      models.Mode
	Size      float64
	Rate      float64
	Slippage  float64
	Pricetick float64
	Capital   float64

	dataSource historicaldata.Source
	cache      *historicaldata.GlobalCache
	useCache   bool

	strategy strategy.Handle
	matching *matching.Engine

	history []models.Record

	dailyResults []models.DailyResult
	dailyIndex   map[string]int

	currentBar  *models.Bar
	currentTick *models.Tick
	clock       time.Time

	progress    ProgressFunc
	onOrder     OrderFunc
	onTrade     TradeFunc
	onStopOrder StopOrderFunc
	ctx         context.Context
}

// New returns an Engine reading historical data from source. cache may be
// nil if global caching is never enabled for this instance.
func New(source historicaldata.Source, cache *historicaldata.GlobalCache) *Engine {
	return &Engine{dataSource: source, cache: cache, ctx: context.Background()}
}

// OnProgress registers a ProgressFunc invoked during LoadData and
// RunBacktesting. Pass nil to stop reporting.
func (e *Engine) OnProgress(f ProgressFunc) { e.progress = f }

// OnEvents registers observers fired alongside the strategy's own
// on_order/on_trade/on_stop_order callbacks. Any of the three may be nil.
// It may be called before or after AddStrategy: the forwarding wrapper
// reads the registered observers each time a callback fires.
func (e *Engine) OnEvents(onOrder OrderFunc, onTrade TradeFunc, onStopOrder StopOrderFunc) {
	e.onOrder = onOrder
	e.onTrade = onTrade
	e.onStopOrder = onStopOrder
}

// eventForwardingHandle wraps a strategy.Handle so the matching engine's
// callbacks reach both the strategy and this replay engine's registered
// observers, without the matching engine ever knowing observers exist.
type eventForwardingHandle struct {
	strategy.Handle
	engine *Engine
}

func (h *eventForwardingHandle) OnOrder(o models.Order) {
	h.Handle.OnOrder(o)
	if h.engine.onOrder != nil {
		h.engine.onOrder(o)
	}
}

func (h *eventForwardingHandle) OnTrade(t models.Trade) {
	h.Handle.OnTrade(t)
	if h.engine.onTrade != nil {
		h.engine.onTrade(t)
	}
}

func (h *eventForwardingHandle) OnStopOrder(s models.StopOrder) {
	h.Handle.OnStopOrder(s)
	if h.engine.onStopOrder != nil {
		h.engine.onStopOrder(s)
	}
}

// SetParameters validates and stores the run's instrument and economics.
// vtSymbol is split into symbol/exchange at its last '.'. If end is the
// zero time it defaults to now, normalized to 23:59:59 local time either
// way.
func (e *Engine) SetParameters(vtSymbol string, interval models.Interval, mode models.Mode, size, rate, slippage, pricetick, capital float64, start, end time.Time) error {
	if interval != models.IntervalMinute && interval != models.IntervalHour &&
		interval != models.IntervalDaily && interval != models.IntervalWeekly && interval != models.IntervalTick {
		return bterrors.Newf(bterrors.Config, "unrecognized interval: %q", interval)
	}
	if mode != models.ModeBar && mode != models.ModeTick {
		return bterrors.Newf(bterrors.Config, "unrecognized mode: %q", mode)
	}

	idx := strings.LastIndex(vtSymbol, ".")
	if idx < 0 {
		return bterrors.Newf(bterrors.Config, "vt_symbol %q missing .exchange suffix", vtSymbol)
	}
	e.VtSymbol = vtSymbol
	e.Symbol = vtSymbol[:idx]
	e.Exchange = vtSymbol[idx+1:]

	e.Interval = interval
	e.Mode = mode
	e.Size = size
	e.Rate = rate
	e.Slippage = slippage
	e.Pricetick = pricetick
	e.Capital = capital

	if end.IsZero() {
		end = time.Now()
	}
	end = end.Local()
	e.End = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, time.Local)
	e.Start = start

	return nil
}

// AddStrategy instantiates the strategy via registry and wires it to this engine's
// EngineFacing surface and matching engine.
func (e *Engine) AddStrategy(name string, registry *strategy.Registry, settings map[string]interface{}) error {
	handle, err := registry.Build(name, e, settings)
	if err != nil {
		return err
	}
	e.strategy = handle
	forwarding := &eventForwardingHandle{Handle: handle, engine: e}
	e.matching = matching.New(e.Symbol, e.Exchange, e.Size, e.Pricetick, forwarding)
	return nil
}

// ClearData resets every table ahead of a reused run, per spec.md §3's
// ownership contract.
func (e *Engine) ClearData() {
	if e.matching != nil {
		e.matching.ClearData()
	}
	e.history = nil
	e.dailyResults = nil
	e.dailyIndex = make(map[string]int)
	e.currentBar = nil
	e.currentTick = nil
}

func (e *Engine) log(msg string) {
	tracing.Logger(e.ctx).Info().Str("vt_symbol", e.VtSymbol).Msg(msg)
}

func windowDays(start, end time.Time) int {
	totalDays := int(end.Sub(start).Hours() / 24)
	if totalDays < 10 {
		return 1
	}
	return totalDays / 10
}

// LoadData loads the configured [Start, End] range in windowed batches,
// appending into the in-engine buffer (or the global cache, when enabled).
// A start >= end precondition violation is an ErrorKind::Contract: logged
// and returned as a nil error, per spec.md §7's propagation policy.
func (e *Engine) LoadData(ctx context.Context) error {
	e.ctx = ctx
	if !e.Start.Before(e.End) {
		e.log(fmt.Sprintf("load_data: start %s is not before end %s, nothing to load", e.Start, e.End))
		return nil
	}

	if e.useCache && e.cache != nil {
		if records, ok := e.cache.Get(e.Symbol, e.Exchange, e.Interval); ok {
			e.history = records
			e.log(fmt.Sprintf("load_data: served %d records from global cache", len(records)))
			return nil
		}
	}

	delta := intervalDelta[e.Interval]
	days := windowDays(e.Start, e.End)
	windowSize := time.Duration(days) * 24 * time.Hour

	totalDays := int(e.End.Sub(e.Start).Hours()/24) + 1
	reportEvery := totalDays / 10
	if reportEvery < 1 {
		reportEvery = 1
	}

	var records []models.Record
	cursor := e.Start
	daysLoaded := 0

	for cursor.Before(e.End) {
		select {
		case <-ctx.Done():
			return bterrors.New(bterrors.Cancelled, "load_data cancelled")
		default:
		}

		windowEnd := cursor.Add(windowSize)
		if windowEnd.After(e.End) {
			windowEnd = e.End
		}

		if e.Mode == models.ModeBar {
			bars, err := e.dataSource.LoadBars(e.Symbol, e.Exchange, e.Interval, cursor, windowEnd)
			if err != nil {
				return bterrors.Wrap(bterrors.DataSource, "load_data: load bars", err)
			}
			for i := range bars {
				records = append(records, models.Record{Bar: &bars[i]})
			}
		} else {
			ticks, err := e.dataSource.LoadTicks(e.Symbol, e.Exchange, cursor, windowEnd)
			if err != nil {
				return bterrors.Wrap(bterrors.DataSource, "load_data: load ticks", err)
			}
			for i := range ticks {
				records = append(records, models.Record{Tick: &ticks[i]})
			}
		}

		daysLoaded += days
		if e.progress != nil && daysLoaded%reportEvery < days {
			e.progress("load", float64(daysLoaded)/float64(totalDays))
		}

		cursor = windowEnd.Add(delta)
	}

	e.history = records
	if e.useCache && e.cache != nil {
		e.cache.Put(e.Symbol, e.Exchange, e.Interval, records)
	}
	e.log(fmt.Sprintf("load_data: loaded %d records", len(records)))
	return nil
}

// UseGlobalCache enables the process-wide loaded-data cache for this
// engine's subsequent LoadData calls.
func (e *Engine) UseGlobalCache(use bool) { e.useCache = use }

// RunBacktesting drives strategy init/start, replays the loaded buffer in
// order, and calls on_stop at the end.
func (e *Engine) RunBacktesting(ctx context.Context) error {
	e.ctx = ctx
	if e.dailyIndex == nil {
		e.dailyIndex = make(map[string]int)
	}

	e.strategy.OnInit()
	e.strategy.SetInited(true)
	e.strategy.OnStart()
	e.strategy.SetTrading(true)

	total := len(e.history)
	reportEvery := total / 10
	if reportEvery < 1 {
		reportEvery = 1
	}

	for i, record := range e.history {
		select {
		case <-ctx.Done():
			return bterrors.New(bterrors.Cancelled, "run_backtesting cancelled")
		default:
		}

		if record.Bar != nil {
			e.currentBar = record.Bar
		} else {
			e.currentTick = record.Tick
		}
		e.clock = record.Datetime()

		e.matching.Cross(record)

		if record.Bar != nil {
			e.strategy.OnBar(*record.Bar)
		} else {
			e.strategy.OnTick(*record.Tick)
		}

		e.updateDailyClose(record)

		if e.progress != nil && (i+1)%reportEvery == 0 {
			e.progress("replay", float64(i+1)/float64(total))
		}
	}

	e.strategy.OnStop()
	return nil
}

func (e *Engine) updateDailyClose(record models.Record) {
	var closePrice float64
	if record.Bar != nil {
		closePrice = record.Bar.Close
	} else {
		closePrice = record.Tick.LastPrice
	}
	date := record.Datetime().Format("2006-01-02")

	if idx, ok := e.dailyIndex[date]; ok {
		e.dailyResults[idx].ClosePrice = closePrice
		return
	}

	e.dailyIndex[date] = len(e.dailyResults)
	e.dailyResults = append(e.dailyResults, models.DailyResult{Date: date, ClosePrice: closePrice})
}

// DailyResults returns the raw per-date rows the replay loop built up (only
// Date/ClosePrice populated) — feed this plus Trades() into
// accounting.CalculateResult to get the full accounting table.
func (e *Engine) DailyResults() []models.DailyResult {
	out := make([]models.DailyResult, len(e.dailyResults))
	copy(out, e.dailyResults)
	return out
}

// Trades returns every trade this run has produced so far.
func (e *Engine) Trades() []models.Trade {
	if e.matching == nil {
		return nil
	}
	return e.matching.Trades()
}

// Bars returns the bar legs of the loaded history, in replay order, for
// feeding reports.WriteHistory's chart-viewer dump. Empty in TICK mode.
func (e *Engine) Bars() []models.Bar {
	bars := make([]models.Bar, 0, len(e.history))
	for _, record := range e.history {
		if record.Bar != nil {
			bars = append(bars, *record.Bar)
		}
	}
	return bars
}
