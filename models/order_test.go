package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVtOrderIDPrefix(t *testing.T) {
	o := Order{OrderID: "         1"}
	assert.Equal(t, "BACKTESTING.         1", o.VtOrderID())
}

func TestVtTradeIDPrefix(t *testing.T) {
	tr := Trade{TradeID: "         1"}
	assert.Equal(t, "BACKTESTING.         1", tr.VtTradeID())
}

func TestOrderIsActiveDelegatesToStatus(t *testing.T) {
	o := Order{Status: StatusNotTraded}
	assert.True(t, o.IsActive())

	o.Status = StatusAllTraded
	assert.False(t, o.IsActive())
}

func TestDailyResultAddTrade(t *testing.T) {
	var d DailyResult
	d.AddTrade(Trade{TradeID: "1"})
	d.AddTrade(Trade{TradeID: "2"})

	assert.Equal(t, 2, d.TradeCount)
	assert.Len(t, d.Trades, 2)
}
