// Package strategy defines the capability contract between the replay
// engine and a user-supplied trading strategy: the callbacks the engine
// invokes, and the calls a strategy makes back into the engine.
package strategy

import "github.com/quantrook/backreplay/models"

// Parameter describes a configurable strategy parameter. The HTTP API's
// strategy listing returns names only and does not include Parameter values.
type Parameter struct {
	Type        string      `json:"type"`
	Default     interface{} `json:"default"`
	Description string      `json:"description"`
}

// EngineFacing is what a strategy calls back into. The replay engine
// implements it; a strategy never touches the matching engine directly.
type EngineFacing interface {
	SendOrder(direction models.Direction, offset models.Offset, price, volume float64, stop bool) ([]string, error)
	CancelOrder(vtOrderID string)
	CancelAll()
	LoadBar(days int, interval models.Interval, callback func(models.Bar)) error
	LoadTick(days int, callback func(models.Tick)) error
	WriteLog(msg string)
	GetEngineType() models.EngineType
	GetPricetick() float64
	GetSize() float64
}

// Handle is the callback surface the replay engine drives. Concrete
// strategies embed *Base and override only the callbacks they need.
type Handle interface {
	OnInit()
	OnStart()
	OnStop()
	OnTick(tick models.Tick)
	OnBar(bar models.Bar)
	OnOrder(order models.Order)
	OnTrade(trade models.Trade)
	OnStopOrder(stop models.StopOrder)

	// AddPos/Pos expose the mutable "pos" attribute the matching engine
	// updates on every fill and strategies read to size new orders.
	AddPos(delta float64)
	Pos() float64

	IsInited() bool
	SetInited(bool)
	IsTrading() bool
	SetTrading(bool)

	StrategyName() string
}

// Base provides the mutable attributes and engine-facing plumbing every
// strategy needs, plus no-op defaults for every callback so a concrete
// strategy only overrides what it cares about.
type Base struct {
	name   string
	engine EngineFacing

	inited  bool
	trading bool
	pos     float64

	settings map[string]interface{}
}

// NewBase wires a Base to its engine-facing collaborator and gives it a
// strategy_name used to tag its log lines.
func NewBase(name string, engine EngineFacing, settings map[string]interface{}) *Base {
	return &Base{name: name, engine: engine, settings: settings}
}

func (b *Base) StrategyName() string    { return b.name }
func (b *Base) IsInited() bool          { return b.inited }
func (b *Base) SetInited(v bool)        { b.inited = v }
func (b *Base) IsTrading() bool         { return b.trading }
func (b *Base) SetTrading(v bool)       { b.trading = v }
func (b *Base) Pos() float64            { return b.pos }
func (b *Base) AddPos(delta float64)    { b.pos += delta }

func (b *Base) OnInit()                       {}
func (b *Base) OnStart()                      {}
func (b *Base) OnStop()                       {}
func (b *Base) OnTick(tick models.Tick)       {}
func (b *Base) OnBar(bar models.Bar)          {}
func (b *Base) OnOrder(order models.Order)    {}
func (b *Base) OnTrade(trade models.Trade)    {}
func (b *Base) OnStopOrder(stop models.StopOrder) {}

// WriteLog forwards to the engine, tagging the line with the strategy name.
func (b *Base) WriteLog(msg string) {
	b.engine.WriteLog("[" + b.name + "] " + msg)
}

// SendOrder forwards to the engine-facing collaborator.
func (b *Base) SendOrder(direction models.Direction, offset models.Offset, price, volume float64, stop bool) ([]string, error) {
	return b.engine.SendOrder(direction, offset, price, volume, stop)
}

// CancelOrder forwards to the engine-facing collaborator.
func (b *Base) CancelOrder(vtOrderID string) { b.engine.CancelOrder(vtOrderID) }

// CancelAll forwards to the engine-facing collaborator.
func (b *Base) CancelAll() { b.engine.CancelAll() }

// GetConfig returns a settings value with a default, mirroring how the
// teacher's BaseStrategy reads its config map.
func (b *Base) GetConfig(key string, defaultValue interface{}) interface{} {
	if v, ok := b.settings[key]; ok {
		return v
	}
	return defaultValue
}

// GetConfigFloat returns a float64 settings value with a default.
func (b *Base) GetConfigFloat(key string, defaultValue float64) float64 {
	switch v := b.GetConfig(key, defaultValue).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return defaultValue
	}
}

// GetConfigInt returns an int settings value with a default.
func (b *Base) GetConfigInt(key string, defaultValue int) int {
	switch v := b.GetConfig(key, defaultValue).(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return defaultValue
	}
}
