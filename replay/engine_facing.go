package replay

import (
	"github.com/quantrook/backreplay/models"
)

// SendOrder implements strategy.EngineFacing, dispatching to the matching
// engine's limit or stop submission depending on stop.
func (e *Engine) SendOrder(direction models.Direction, offset models.Offset, price, volume float64, stop bool) ([]string, error) {
	if stop {
		id := e.matching.SubmitStop(direction, offset, price, volume)
		return []string{id}, nil
	}
	id, err := e.matching.SubmitLimit(direction, offset, price, volume)
	if err != nil {
		return nil, err
	}
	return []string{id}, nil
}

// CancelOrder implements strategy.EngineFacing.
func (e *Engine) CancelOrder(vtOrderID string) { e.matching.Cancel(vtOrderID) }

// CancelAll implements strategy.EngineFacing.
func (e *Engine) CancelAll() { e.matching.CancelAll() }

// LoadBar fetches the pre-start warm-up window [start-days, start-one_interval]
// and invokes callback once per bar in order.
func (e *Engine) LoadBar(days int, interval models.Interval, callback func(models.Bar)) error {
	delta := intervalDelta[interval]
	start := e.Start.AddDate(0, 0, -days)
	end := e.Start.Add(-delta)

	bars, err := e.dataSource.LoadBars(e.Symbol, e.Exchange, interval, start, end)
	if err != nil {
		return err
	}
	for _, b := range bars {
		callback(b)
	}
	return nil
}

// LoadTick fetches the pre-start warm-up window [start-days, start-1s] and
// invokes callback once per tick in order.
func (e *Engine) LoadTick(days int, callback func(models.Tick)) error {
	start := e.Start.AddDate(0, 0, -days)
	end := e.Start.Add(-intervalDelta[models.IntervalTick] * 1000)

	ticks, err := e.dataSource.LoadTicks(e.Symbol, e.Exchange, start, end)
	if err != nil {
		return err
	}
	for _, t := range ticks {
		callback(t)
	}
	return nil
}

// WriteLog implements strategy.EngineFacing, timestamping every line the
// way the original engine's output() sink does.
func (e *Engine) WriteLog(msg string) { e.log(msg) }

// GetEngineType implements strategy.EngineFacing. This engine only ever
// backtests; the method exists because it is part of the strategy
// capability's external contract (a live gateway would answer EngineLive).
func (e *Engine) GetEngineType() models.EngineType { return models.EngineBacktesting }

// GetPricetick implements strategy.EngineFacing.
func (e *Engine) GetPricetick() float64 { return e.Pricetick }

// GetSize implements strategy.EngineFacing.
func (e *Engine) GetSize() float64 { return e.Size }
