// Package matching implements the two parallel order books (active limit
// orders, active stop orders) that are crossed against each incoming bar or
// tick under a deterministic, reproducible fill model.
package matching

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/quantrook/backreplay/models"
	"github.com/quantrook/backreplay/numeric"
)

// Callbacks is the narrow slice of the strategy capability the matching
// engine invokes. A strategy handle satisfies it structurally; this package
// never imports the strategy package.
type Callbacks interface {
	OnOrder(models.Order)
	OnTrade(models.Trade)
	OnStopOrder(models.StopOrder)
	AddPos(delta float64)
}

// Engine owns the active/historical order maps for one backtest run. It is
// not safe for concurrent crossing calls — the replay driver is the sole
// caller, on a single goroutine; the mutex exists only because results
// consumers (the HTTP/websocket layer) may read snapshots concurrently.
type Engine struct {
	mu sync.Mutex

	symbol   string
	exchange string
	size     float64
	pricetick float64

	orderCount     int
	tradeCount     int
	stopOrderCount int

	limitOrders       map[string]*models.Order
	activeLimitOrders map[string]*models.Order

	stopOrders       map[string]*models.StopOrder
	activeStopOrders map[string]*models.StopOrder

	trades []models.Trade

	strategy Callbacks
}

// New builds a matching Engine for one (symbol, exchange) instrument.
func New(symbol, exchange string, size, pricetick float64, strategy Callbacks) *Engine {
	return &Engine{
		symbol:            symbol,
		exchange:          exchange,
		size:              size,
		pricetick:         pricetick,
		limitOrders:       make(map[string]*models.Order),
		activeLimitOrders: make(map[string]*models.Order),
		stopOrders:        make(map[string]*models.StopOrder),
		activeStopOrders:  make(map[string]*models.StopOrder),
		strategy:          strategy,
	}
}

// ClearData resets every table, ready for a fresh run. Counters restart at
// zero so a subsequent run reproduces the exact same id sequence.
func (e *Engine) ClearData() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.orderCount = 0
	e.tradeCount = 0
	e.stopOrderCount = 0
	e.limitOrders = make(map[string]*models.Order)
	e.activeLimitOrders = make(map[string]*models.Order)
	e.stopOrders = make(map[string]*models.StopOrder)
	e.activeStopOrders = make(map[string]*models.StopOrder)
	e.trades = nil
}

// Trades returns a snapshot copy of every trade produced so far.
func (e *Engine) Trades() []models.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

func padID(n int) string {
	return fmt.Sprintf("%10d", n)
}

// SubmitLimit quantizes price to the instrument's pricetick and registers a
// new SUBMITTING limit order, returning its vt_orderid.
func (e *Engine) SubmitLimit(direction models.Direction, offset models.Offset, price, volume float64) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	quantized, err := numeric.RoundTo(price, e.pricetick)
	if err != nil {
		return "", err
	}

	e.orderCount++
	orderID := padID(e.orderCount)
	order := &models.Order{
		OrderID:   orderID,
		Symbol:    e.symbol,
		Exchange:  e.exchange,
		Type:      models.OrderTypeLimit,
		Direction: direction,
		Offset:    offset,
		Price:     quantized,
		Volume:    volume,
		Status:    models.StatusSubmitting,
	}
	e.limitOrders[orderID] = order
	e.activeLimitOrders[orderID] = order
	return order.VtOrderID(), nil
}

// SubmitStop registers a new WAITING stop order, returning its vt_orderid
// (prefixed with the stop namespace).
func (e *Engine) SubmitStop(direction models.Direction, offset models.Offset, price, volume float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopOrderCount++
	stopID := models.StopOrderPrefix + "." + padID(e.stopOrderCount)
	stop := &models.StopOrder{
		StopOrderID: stopID,
		Symbol:      e.symbol,
		Exchange:    e.exchange,
		Direction:   direction,
		Offset:      offset,
		Price:       price,
		Volume:      volume,
		Status:      models.StopOrderWaiting,
	}
	e.stopOrders[stopID] = stop
	e.activeStopOrders[stopID] = stop
	return stopID
}

// Cancel dispatches to CancelStop or CancelLimit based on the id's prefix.
// Unknown ids are silently ignored, matching the engine's idempotent cancel
// contract.
func (e *Engine) Cancel(vtOrderID string) {
	id := strings.TrimPrefix(vtOrderID, models.BacktestingPrefix+".")
	if strings.HasPrefix(vtOrderID, models.StopOrderPrefix+".") {
		e.CancelStop(vtOrderID)
		return
	}
	e.CancelLimit(id)
}

// CancelLimit removes an active limit order and transitions it to CANCELLED.
func (e *Engine) CancelLimit(orderID string) {
	e.mu.Lock()
	order, ok := e.activeLimitOrders[orderID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.activeLimitOrders, orderID)
	order.Status = models.StatusCancelled
	e.mu.Unlock()

	e.strategy.OnOrder(*order)
}

// CancelStop removes an active stop order and transitions it to CANCELLED.
func (e *Engine) CancelStop(stopID string) {
	e.mu.Lock()
	stop, ok := e.activeStopOrders[stopID]
	if !ok {
		e.mu.Unlock()
		return
	}
	delete(e.activeStopOrders, stopID)
	stop.Status = models.StopOrderCancelled
	e.mu.Unlock()

	e.strategy.OnStopOrder(*stop)
}

// CancelAll cancels every active limit and stop order. Ids are snapshotted
// before iteration so cancellation callbacks never observe a mutating map.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	limitIDs := make([]string, 0, len(e.activeLimitOrders))
	for id := range e.activeLimitOrders {
		limitIDs = append(limitIDs, id)
	}
	stopIDs := make([]string, 0, len(e.activeStopOrders))
	for id := range e.activeStopOrders {
		stopIDs = append(stopIDs, id)
	}
	e.mu.Unlock()

	for _, id := range limitIDs {
		e.CancelLimit(id)
	}
	for _, id := range stopIDs {
		e.CancelStop(id)
	}
}

// crossRefs is the small capability object spec'd to avoid branching on
// Mode inside every crossing routine: extract once per record, per book.
type crossRefs struct {
	longCross  float64
	shortCross float64
	longBest   float64
	shortBest  float64
}

func limitRefsFromBar(b *models.Bar) crossRefs {
	return crossRefs{longCross: b.Low, shortCross: b.High, longBest: b.Open, shortBest: b.Open}
}

func limitRefsFromTick(t *models.Tick) crossRefs {
	ask1 := t.AskPrice[0]
	bid1 := t.BidPrice[0]
	return crossRefs{longCross: ask1, shortCross: bid1, longBest: ask1, shortBest: bid1}
}

func stopRefsFromBar(b *models.Bar) crossRefs {
	return crossRefs{longCross: b.High, shortCross: b.Low, longBest: b.Open, shortBest: b.Open}
}

func stopRefsFromTick(t *models.Tick) crossRefs {
	return crossRefs{longCross: t.LastPrice, shortCross: t.LastPrice, longBest: t.LastPrice, shortBest: t.LastPrice}
}

// Cross advances both order books against one record: limit orders first,
// then stop orders (which may spawn and immediately fill their own limit
// order within this same call).
func (e *Engine) Cross(record models.Record) {
	var limitRefs, stopRefs crossRefs
	if record.Bar != nil {
		limitRefs = limitRefsFromBar(record.Bar)
		stopRefs = stopRefsFromBar(record.Bar)
	} else {
		limitRefs = limitRefsFromTick(record.Tick)
		stopRefs = stopRefsFromTick(record.Tick)
	}

	e.crossLimitOrders(limitRefs, record)
	e.crossStopOrders(stopRefs, limitRefs, record)
}

func (e *Engine) sortedActiveLimitIDs() []string {
	ids := make([]string, 0, len(e.activeLimitOrders))
	for id := range e.activeLimitOrders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) sortedActiveStopIDs() []string {
	ids := make([]string, 0, len(e.activeStopOrders))
	for id := range e.activeStopOrders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) crossLimitOrders(refs crossRefs, record models.Record) {
	e.mu.Lock()
	ids := e.sortedActiveLimitIDs()
	snapshot := make([]*models.Order, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, e.activeLimitOrders[id])
	}
	e.mu.Unlock()

	for _, order := range snapshot {
		e.mu.Lock()
		if order.Status == models.StatusSubmitting {
			order.Status = models.StatusNotTraded
			e.mu.Unlock()
			e.strategy.OnOrder(*order)
		} else {
			e.mu.Unlock()
		}

		var crosses bool
		var fillPrice float64
		switch order.Direction {
		case models.DirectionLong:
			crosses = order.Price >= refs.longCross && refs.longCross > 0
			if crosses {
				fillPrice = minF(order.Price, refs.longBest)
			}
		case models.DirectionShort:
			crosses = order.Price <= refs.shortCross && refs.shortCross > 0
			if crosses {
				fillPrice = maxF(order.Price, refs.shortBest)
			}
		}
		if !crosses {
			continue
		}

		e.mu.Lock()
		order.Traded = order.Volume
		order.Status = models.StatusAllTraded
		order.Datetime = record.Datetime()
		delete(e.activeLimitOrders, order.OrderID)
		e.tradeCount++
		tradeID := padID(e.tradeCount)
		e.mu.Unlock()

		e.strategy.OnOrder(*order)

		trade := models.Trade{
			TradeID:   tradeID,
			OrderID:   order.OrderID,
			Symbol:    e.symbol,
			Exchange:  e.exchange,
			Direction: order.Direction,
			Offset:    order.Offset,
			Price:     fillPrice,
			Volume:    order.Volume,
			Datetime:  record.Datetime(),
		}
		e.mu.Lock()
		e.trades = append(e.trades, trade)
		e.mu.Unlock()

		switch order.Direction {
		case models.DirectionLong:
			e.strategy.AddPos(order.Volume)
		case models.DirectionShort:
			e.strategy.AddPos(-order.Volume)
		}
		e.strategy.OnTrade(trade)
	}
}

func (e *Engine) crossStopOrders(stopRefs, limitRefs crossRefs, record models.Record) {
	e.mu.Lock()
	ids := e.sortedActiveStopIDs()
	snapshot := make([]*models.StopOrder, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, e.activeStopOrders[id])
	}
	e.mu.Unlock()

	for _, stop := range snapshot {
		var triggers bool
		var fillPrice float64
		switch stop.Direction {
		case models.DirectionLong:
			triggers = stop.Price <= stopRefs.longCross
			if triggers {
				fillPrice = maxF(stop.Price, limitRefs.longBest)
			}
		case models.DirectionShort:
			triggers = stop.Price >= stopRefs.shortCross
			if triggers {
				fillPrice = minF(stop.Price, limitRefs.shortBest)
			}
		}
		if !triggers {
			continue
		}

		e.mu.Lock()
		e.orderCount++
		orderID := padID(e.orderCount)
		order := &models.Order{
			OrderID:   orderID,
			Symbol:    e.symbol,
			Exchange:  e.exchange,
			Type:      models.OrderTypeLimit,
			Direction: stop.Direction,
			Offset:    stop.Offset,
			Price:     stop.Price,
			Volume:    stop.Volume,
			Traded:    stop.Volume,
			Status:    models.StatusAllTraded,
			Datetime:  record.Datetime(),
		}
		e.limitOrders[orderID] = order

		e.tradeCount++
		tradeID := padID(e.tradeCount)

		delete(e.activeStopOrders, stop.StopOrderID)
		stop.Status = models.StopOrderTriggered
		stop.VtOrderIDs = append(stop.VtOrderIDs, order.VtOrderID())
		e.mu.Unlock()

		trade := models.Trade{
			TradeID:   tradeID,
			OrderID:   orderID,
			Symbol:    e.symbol,
			Exchange:  e.exchange,
			Direction: stop.Direction,
			Offset:    stop.Offset,
			Price:     fillPrice,
			Volume:    stop.Volume,
			Datetime:  record.Datetime(),
		}
		e.mu.Lock()
		e.trades = append(e.trades, trade)
		e.mu.Unlock()

		e.strategy.OnStopOrder(*stop)
		e.strategy.OnOrder(*order)
		switch stop.Direction {
		case models.DirectionLong:
			e.strategy.AddPos(stop.Volume)
		case models.DirectionShort:
			e.strategy.AddPos(-stop.Volume)
		}
		e.strategy.OnTrade(trade)
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
