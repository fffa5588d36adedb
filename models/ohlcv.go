package models

import "time"

// Bar is an aggregated OHLCV observation over a fixed Interval.
// Invariant: Low <= {Open, Close} <= High, all fields >= 0.
type Bar struct {
	Symbol       string    `json:"symbol" db:"symbol"`
	Exchange     string    `json:"exchange" db:"exchange"`
	Interval     Interval  `json:"interval" db:"interval"`
	Datetime     time.Time `json:"datetime" db:"datetime"`
	Open         float64   `json:"open" db:"open"`
	High         float64   `json:"high" db:"high"`
	Low          float64   `json:"low" db:"low"`
	Close        float64   `json:"close" db:"close"`
	Volume       float64   `json:"volume" db:"volume"`
	Turnover     float64   `json:"turnover" db:"turnover"`
	OpenInterest float64   `json:"open_interest" db:"open_interest"`
}

// PriceLevel is one rung of a five-deep bid/ask ladder.
type PriceLevel struct {
	Price  float64
	Volume float64
}

// Tick is an instantaneous quote/trade snapshot with L5 depth.
// Invariant: BidPrice[0] <= AskPrice[0] when both are > 0.
type Tick struct {
	Symbol       string    `json:"symbol" db:"symbol"`
	Exchange     string    `json:"exchange" db:"exchange"`
	Datetime     time.Time `json:"datetime" db:"datetime"`
	LastPrice    float64   `json:"last_price" db:"last_price"`
	LastVolume   float64   `json:"last_volume" db:"last_volume"`
	Volume       float64   `json:"volume" db:"volume"`
	Turnover     float64   `json:"turnover" db:"turnover"`
	OpenInterest float64   `json:"open_interest" db:"open_interest"`

	BidPrice [5]float64 `json:"bid_price" db:"-"`
	BidSize  [5]float64 `json:"bid_size" db:"-"`
	AskPrice [5]float64 `json:"ask_price" db:"-"`
	AskSize  [5]float64 `json:"ask_size" db:"-"`
}

// Bid returns the price/volume pair for the given depth level (1-indexed).
func (t *Tick) Bid(level int) PriceLevel {
	return PriceLevel{Price: t.BidPrice[level-1], Volume: t.BidSize[level-1]}
}

// Ask returns the price/volume pair for the given depth level (1-indexed).
func (t *Tick) Ask(level int) PriceLevel {
	return PriceLevel{Price: t.AskPrice[level-1], Volume: t.AskSize[level-1]}
}

// Record is either a Bar or a Tick, as returned by a HistoricalDataSource.
// Exactly one of Bar/Tick is non-nil, matching the mode the series was
// loaded under.
type Record struct {
	Bar  *Bar
	Tick *Tick
}

// Datetime returns the timestamp of whichever leg of the record is set.
func (r Record) Datetime() time.Time {
	if r.Bar != nil {
		return r.Bar.Datetime
	}
	return r.Tick.Datetime
}
