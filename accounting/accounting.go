// Package accounting implements the daily PnL accountant: it consumes the
// trade stream produced by one backtest run plus the daily close series the
// replay driver built up, and returns a dated sequence of PnL rows.
package accounting

import (
	"sort"

	"github.com/quantrook/backreplay/models"
)

// Params are the instrument economics the daily rows are computed against.
type Params struct {
	Size     float64
	Rate     float64
	Slippage float64
}

// CalculateResult buckets trades by local trading date into the
// pre-existing daily rows (one per date the replay loop observed a close
// on) and walks them in ascending date order computing every field in
// spec.md §3/§4.4. rows must already carry Date and ClosePrice; it returns
// a new slice, leaving rows untouched.
func CalculateResult(rows []models.DailyResult, trades []models.Trade, p Params) []models.DailyResult {
	byDate := make(map[string][]models.Trade)
	for _, t := range trades {
		date := t.Datetime.Format("2006-01-02")
		byDate[date] = append(byDate[date], t)
	}

	out := make([]models.DailyResult, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })

	var preClose float64
	var startPos float64

	for i := range out {
		row := &out[i]
		row.Trades = byDate[row.Date]
		row.TradeCount = len(row.Trades)

		effectivePreClose := preClose
		if effectivePreClose == 0 {
			effectivePreClose = 1.0
		}
		row.PreClose = effectivePreClose
		row.StartPos = startPos

		endPos := startPos
		var turnover, tradingPnl, slippage, commission float64

		for _, t := range row.Trades {
			var posChange float64
			switch t.Direction {
			case models.DirectionLong:
				posChange = t.Volume
			case models.DirectionShort:
				posChange = -t.Volume
			}
			endPos += posChange

			tradeTurnover := t.Volume * p.Size * t.Price
			turnover += tradeTurnover
			tradingPnl += posChange * (row.ClosePrice - t.Price) * p.Size
			slippage += t.Volume * p.Size * p.Slippage
			commission += tradeTurnover * p.Rate
		}

		row.EndPos = endPos
		row.Turnover = turnover
		row.Commission = commission
		row.Slippage = slippage
		row.TradingPnl = tradingPnl
		row.HoldingPnl = row.StartPos * (row.ClosePrice - effectivePreClose) * p.Size
		row.TotalPnl = row.HoldingPnl + row.TradingPnl
		row.NetPnl = row.TotalPnl - row.Commission - row.Slippage

		preClose = row.ClosePrice
		startPos = row.EndPos
	}

	return out
}
