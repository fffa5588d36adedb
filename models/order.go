package models

import "time"

// Order is a locally-assigned limit order. PARTTRADED is reserved in Status
// but this engine never produces partial fills; every fill is whole-size.
type Order struct {
	OrderID      string    `json:"orderid" db:"orderid"`
	Symbol       string    `json:"symbol" db:"symbol"`
	Exchange     string    `json:"exchange" db:"exchange"`
	Type         OrderType `json:"type" db:"type"`
	Direction    Direction `json:"direction" db:"direction"`
	Offset       Offset    `json:"offset" db:"offset"`
	Price        float64   `json:"price" db:"price"`
	Volume       float64   `json:"volume" db:"volume"`
	Traded       float64   `json:"traded" db:"traded"`
	Status       Status    `json:"status" db:"status"`
	Datetime     time.Time `json:"datetime" db:"datetime"`
	Reference    string    `json:"reference" db:"reference"`
}

// VtOrderID is the fully qualified, gateway-prefixed order identifier used
// by strategies to route cancels back to this order.
func (o Order) VtOrderID() string {
	return BacktestingPrefix + "." + o.OrderID
}

// IsActive reports whether the order still rests in the matching engine's
// active map.
func (o Order) IsActive() bool {
	return o.Status.IsActive()
}

// StopOrder is a local conditional order. On trigger it spawns an
// immediately-filled synthetic Order in the same crossing pass.
type StopOrder struct {
	StopOrderID   string          `json:"stop_orderid" db:"stop_orderid"`
	Symbol        string          `json:"symbol" db:"symbol"`
	Exchange      string          `json:"exchange" db:"exchange"`
	Direction     Direction       `json:"direction" db:"direction"`
	Offset        Offset          `json:"offset" db:"offset"`
	Price         float64         `json:"price" db:"price"`
	Volume        float64         `json:"volume" db:"volume"`
	StrategyName  string          `json:"strategy_name" db:"strategy_name"`
	Datetime      time.Time       `json:"datetime" db:"datetime"`
	VtOrderIDs    []string        `json:"vt_orderids" db:"-"`
	Status        StopOrderStatus `json:"status" db:"status"`
}

// Trade is a single fill produced by the matching engine.
type Trade struct {
	TradeID   string    `json:"tradeid" db:"tradeid"`
	OrderID   string    `json:"orderid" db:"orderid"`
	Symbol    string    `json:"symbol" db:"symbol"`
	Exchange  string    `json:"exchange" db:"exchange"`
	Direction Direction `json:"direction" db:"direction"`
	Offset    Offset    `json:"offset" db:"offset"`
	Price     float64   `json:"price" db:"price"`
	Volume    float64   `json:"volume" db:"volume"`
	Datetime  time.Time `json:"datetime" db:"datetime"`
}

// VtTradeID is the fully qualified, gateway-prefixed trade identifier.
func (t Trade) VtTradeID() string {
	return BacktestingPrefix + "." + t.TradeID
}

// DailyResult is the per-calendar-date position/PnL accounting row produced
// by the daily accountant.
type DailyResult struct {
	Date       string  `json:"date" db:"date"`
	ClosePrice float64 `json:"close_price" db:"close_price"`
	PreClose   float64 `json:"pre_close" db:"pre_close"`

	Trades     []Trade `json:"trades" db:"-"`
	TradeCount int     `json:"trade_count" db:"trade_count"`

	StartPos float64 `json:"start_pos" db:"start_pos"`
	EndPos   float64 `json:"end_pos" db:"end_pos"`

	Turnover   float64 `json:"turnover" db:"turnover"`
	Commission float64 `json:"commission" db:"commission"`
	Slippage   float64 `json:"slippage" db:"slippage"`

	TradingPnl float64 `json:"trading_pnl" db:"trading_pnl"`
	HoldingPnl float64 `json:"holding_pnl" db:"holding_pnl"`
	TotalPnl   float64 `json:"total_pnl" db:"total_pnl"`
	NetPnl     float64 `json:"net_pnl" db:"net_pnl"`
}

// AddTrade appends a trade to the day's bucket, keeping TradeCount in sync.
func (d *DailyResult) AddTrade(t Trade) {
	d.Trades = append(d.Trades, t)
	d.TradeCount = len(d.Trades)
}
