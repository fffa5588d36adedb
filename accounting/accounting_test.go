package accounting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrook/backreplay/models"
)

const epsilon = 1e-9

func trade(date string, direction models.Direction, price, volume float64) models.Trade {
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", date, time.Local)
	if err != nil {
		panic(err)
	}
	return models.Trade{Direction: direction, Price: price, Volume: volume, Datetime: ts}
}

// TestDailyBucketing covers spec.md §8 end-to-end scenario 5: a single
// trade on one date produces start_pos=0, end_pos=1, trading_pnl=2,
// holding_pnl=0, net_pnl=2.
func TestDailyBucketing(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 102},
	}
	trades := []models.Trade{
		trade("2024-01-15 09:30:00", models.DirectionLong, 100, 1),
	}

	out := CalculateResult(rows, trades, Params{Size: 1})
	require.Len(t, out, 1)

	row := out[0]
	assert.InDelta(t, 0.0, row.StartPos, epsilon)
	assert.InDelta(t, 1.0, row.EndPos, epsilon)
	assert.InDelta(t, 2.0, row.TradingPnl, epsilon)
	assert.InDelta(t, 0.0, row.HoldingPnl, epsilon)
	assert.InDelta(t, 2.0, row.NetPnl, epsilon)
	assert.Equal(t, 1, row.TradeCount)
}

// TestHoldingPnlAcrossDays covers spec.md §8 end-to-end scenario 6: a
// position opened on day 1 carries into day 2's holding_pnl with no
// further trades.
func TestHoldingPnlAcrossDays(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 100},
		{Date: "2024-01-16", ClosePrice: 105},
	}
	trades := []models.Trade{
		trade("2024-01-15 09:30:00", models.DirectionLong, 100, 1),
	}

	out := CalculateResult(rows, trades, Params{Size: 1})
	require.Len(t, out, 2)

	day2 := out[1]
	assert.InDelta(t, 1.0, day2.StartPos, epsilon)
	assert.InDelta(t, 1.0, day2.EndPos, epsilon)
	assert.InDelta(t, 5.0, day2.HoldingPnl, epsilon)
	assert.InDelta(t, 0.0, day2.TradingPnl, epsilon)
	assert.InDelta(t, 5.0, day2.NetPnl, epsilon)
}

// TestPreCloseCarriesForwardFromPriorClose verifies invariant 4: for every
// row after the first, pre_close equals the previous row's close_price,
// except the very first row (no predecessor) which substitutes 1.0 to
// avoid a division by zero downstream.
func TestPreCloseCarriesForwardFromPriorClose(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 100},
		{Date: "2024-01-16", ClosePrice: 105},
		{Date: "2024-01-17", ClosePrice: 110},
	}

	out := CalculateResult(rows, nil, Params{Size: 1})
	require.Len(t, out, 3)

	assert.InDelta(t, 1.0, out[0].PreClose, epsilon)
	assert.InDelta(t, 100.0, out[1].PreClose, epsilon)
	assert.InDelta(t, 105.0, out[2].PreClose, epsilon)
}

// TestPreCloseSubstitutesOneWhenPriorCloseIsZero covers the documented
// idiosyncrasy: a zero close_price substitutes 1.0 as the next row's
// pre_close, not 0.0.
func TestPreCloseSubstitutesOneWhenPriorCloseIsZero(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 0},
		{Date: "2024-01-16", ClosePrice: 50},
	}

	out := CalculateResult(rows, nil, Params{Size: 1})
	require.Len(t, out, 2)

	assert.InDelta(t, 1.0, out[0].PreClose, epsilon)
	assert.InDelta(t, 1.0, out[1].PreClose, epsilon)
}

// TestEndPosEqualsSignedVolumeSum covers invariant 3: the last row's
// end_pos equals the running sum of signed trade volumes (LONG=+v,
// SHORT=-v) across the whole run.
func TestEndPosEqualsSignedVolumeSum(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 100},
		{Date: "2024-01-16", ClosePrice: 102},
	}
	trades := []models.Trade{
		trade("2024-01-15 09:30:00", models.DirectionLong, 100, 3),
		trade("2024-01-15 14:00:00", models.DirectionShort, 101, 1),
		trade("2024-01-16 10:00:00", models.DirectionLong, 102, 2),
	}

	out := CalculateResult(rows, trades, Params{Size: 1})
	require.Len(t, out, 2)

	wantSignedSum := 3.0 - 1.0 + 2.0
	assert.InDelta(t, wantSignedSum, out[len(out)-1].EndPos, epsilon)
}

// TestCommissionAndSlippage verifies turnover/commission/slippage are
// computed per spec.md §3's formulas.
func TestCommissionAndSlippage(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 100},
	}
	trades := []models.Trade{
		trade("2024-01-15 09:30:00", models.DirectionLong, 100, 2),
	}

	out := CalculateResult(rows, trades, Params{Size: 1, Rate: 0.001, Slippage: 0.5})
	require.Len(t, out, 1)

	row := out[0]
	assert.InDelta(t, 200.0, row.Turnover, epsilon)
	assert.InDelta(t, 0.2, row.Commission, epsilon)
	assert.InDelta(t, 1.0, row.Slippage, epsilon)
}

// TestNoTradesDayStillComputesHoldingPnl verifies a date with no trades
// (only a close observation) still gets a computed row: zero trades and,
// with no position held, zero total PnL.
func TestNoTradesDayStillComputesHoldingPnl(t *testing.T) {
	rows := []models.DailyResult{
		{Date: "2024-01-15", ClosePrice: 100},
	}

	out := CalculateResult(rows, nil, Params{Size: 1})
	require.Len(t, out, 1)
	assert.Equal(t, 0, out[0].TradeCount)
	assert.InDelta(t, 0.0, out[0].TotalPnl, epsilon)
}

// TestCalculateResultDoesNotMutateInput ensures the accountant returns a
// new slice, leaving the caller's rows untouched.
func TestCalculateResultDoesNotMutateInput(t *testing.T) {
	rows := []models.DailyResult{{Date: "2024-01-15", ClosePrice: 100}}
	trades := []models.Trade{trade("2024-01-15 09:30:00", models.DirectionLong, 100, 1)}

	_ = CalculateResult(rows, trades, Params{Size: 1})

	assert.Equal(t, 0, rows[0].TradeCount)
	assert.InDelta(t, 0.0, rows[0].PreClose, epsilon)
}
