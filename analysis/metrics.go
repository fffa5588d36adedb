// Package analysis is an optional post-processing pass over the daily
// accountant's output, turning a net_pnl series into the summary
// statistics a performance report shows.
package analysis

import (
	"math"

	"github.com/quantrook/backreplay/models"
)

// PerformanceMetrics holds aggregate performance statistics computed from a
// sequence of daily accounting rows.
type PerformanceMetrics struct {
	TradingDays  int     `json:"trading_days"`
	TotalNetPnl  float64 `json:"total_net_pnl"`
	WinDays      int     `json:"win_days"`
	LoseDays     int     `json:"lose_days"`
	WinRate      float64 `json:"win_rate"`
	TotalReturn  float64 `json:"total_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	ProfitFactor float64 `json:"profit_factor"`
}

// CalculateMetrics computes PerformanceMetrics from a daily result table
// already produced by accounting.CalculateResult, expressing return as a
// fraction of capital and drawdown as a fraction of the running equity peak.
func CalculateMetrics(rows []models.DailyResult, capital float64) PerformanceMetrics {
	metrics := PerformanceMetrics{TradingDays: len(rows)}
	if len(rows) == 0 || capital == 0 {
		return metrics
	}

	var equity []float64
	equityValue := capital
	equity = append(equity, equityValue)

	grossProfit, grossLoss := 0.0, 0.0

	for _, row := range rows {
		metrics.TotalNetPnl += row.NetPnl
		if row.NetPnl > 0 {
			metrics.WinDays++
			grossProfit += row.NetPnl
		} else if row.NetPnl < 0 {
			metrics.LoseDays++
			grossLoss += -row.NetPnl
		}
		equityValue += row.NetPnl
		equity = append(equity, equityValue)
	}

	metrics.WinRate = float64(metrics.WinDays) / float64(len(rows))
	metrics.TotalReturn = metrics.TotalNetPnl / capital
	metrics.MaxDrawdown = maxDrawdown(equity)

	if grossLoss > 0 {
		metrics.ProfitFactor = grossProfit / grossLoss
	}

	metrics.SharpeRatio = sharpeRatio(rows, capital)

	return metrics
}

func maxDrawdown(equity []float64) float64 {
	peak := -math.MaxFloat64
	drawdown := 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if d := (peak - v) / peak; d > drawdown {
			drawdown = d
		}
	}
	return drawdown
}

func sharpeRatio(rows []models.DailyResult, capital float64) float64 {
	if len(rows) < 2 {
		return 0
	}

	returns := make([]float64, len(rows))
	for i, row := range rows {
		returns[i] = row.NetPnl / capital
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0
	}

	const annualDays = 252
	return mean / stdDev * math.Sqrt(annualDays)
}
