// Package reports renders a finished run's daily-result table as a
// human-readable text summary, and dumps the replayed bars and trades to
// the fixed little-endian binary format an external chart viewer consumes.
package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/quantrook/backreplay/analysis"
	"github.com/quantrook/backreplay/models"
)

// Report wraps one run's outputs for rendering.
type Report struct {
	VtSymbol string
	Rows     []models.DailyResult
	Metrics  analysis.PerformanceMetrics
}

// NewReport builds a Report, computing PerformanceMetrics from rows.
func NewReport(vtSymbol string, rows []models.DailyResult, capital float64) *Report {
	return &Report{
		VtSymbol: vtSymbol,
		Rows:     rows,
		Metrics:  analysis.CalculateMetrics(rows, capital),
	}
}

// Summary renders the run as a fixed-width text report.
func (r *Report) Summary() string {
	if len(r.Rows) == 0 {
		return "No backtest results available."
	}

	m := r.Metrics
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("                    BACKTEST REPORT: %s\n", r.VtSymbol))
	sb.WriteString("═══════════════════════════════════════════════════════════════\n\n")

	sb.WriteString("PERFORMANCE\n")
	sb.WriteString("───────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Trading Days:    %d\n", m.TradingDays))
	sb.WriteString(fmt.Sprintf("  Total Return:    %+.2f%%\n", m.TotalReturn*100))
	sb.WriteString(fmt.Sprintf("  Total Net PnL:   %+.2f\n", m.TotalNetPnl))
	sb.WriteString(fmt.Sprintf("  Sharpe Ratio:    %.2f\n", m.SharpeRatio))
	sb.WriteString(fmt.Sprintf("  Max Drawdown:    %.2f%%\n", m.MaxDrawdown*100))
	sb.WriteString(fmt.Sprintf("  Win Rate:        %.1f%% (%d/%d days)\n", m.WinRate*100, m.WinDays, m.TradingDays))
	sb.WriteString(fmt.Sprintf("  Profit Factor:   %.2f\n", m.ProfitFactor))
	sb.WriteString("\n")

	totalTrades := 0
	totalCommission, totalSlippage := 0.0, 0.0
	for _, row := range r.Rows {
		totalTrades += row.TradeCount
		totalCommission += row.Commission
		totalSlippage += row.Slippage
	}

	sb.WriteString("TRADES & COSTS\n")
	sb.WriteString("───────────────────────────────────────────────────────────────\n")
	sb.WriteString(fmt.Sprintf("  Total Trades:    %d\n", totalTrades))
	sb.WriteString(fmt.Sprintf("  Total Commission: %.2f\n", totalCommission))
	sb.WriteString(fmt.Sprintf("  Total Slippage:   %.2f\n", totalSlippage))
	sb.WriteString("\n")

	sb.WriteString("═══════════════════════════════════════════════════════════════\n")
	sb.WriteString(fmt.Sprintf("  Generated: %s\n", time.Now().Format("2006-01-02 15:04:05")))
	sb.WriteString("═══════════════════════════════════════════════════════════════\n")

	return sb.String()
}
