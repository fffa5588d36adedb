package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTickBidAskAccessors(t *testing.T) {
	tick := Tick{
		BidPrice: [5]float64{99, 98, 97, 96, 95},
		BidSize:  [5]float64{1, 2, 3, 4, 5},
		AskPrice: [5]float64{100, 101, 102, 103, 104},
		AskSize:  [5]float64{10, 20, 30, 40, 50},
	}

	assert.Equal(t, PriceLevel{Price: 99, Volume: 1}, tick.Bid(1))
	assert.Equal(t, PriceLevel{Price: 97, Volume: 3}, tick.Bid(3))
	assert.Equal(t, PriceLevel{Price: 100, Volume: 10}, tick.Ask(1))
	assert.Equal(t, PriceLevel{Price: 104, Volume: 50}, tick.Ask(5))
}

func TestRecordDatetimeDispatch(t *testing.T) {
	now := time.Now()

	barRecord := Record{Bar: &Bar{Datetime: now}}
	assert.Equal(t, now, barRecord.Datetime())

	later := now.Add(time.Minute)
	tickRecord := Record{Tick: &Tick{Datetime: later}}
	assert.Equal(t, later, tickRecord.Datetime())
}
