package strategy

import (
	"fmt"

	"github.com/quantrook/backreplay/models"
	"github.com/quantrook/backreplay/utils/indicators"
)

// MACrossover drives limit orders off a short/long simple-moving-average
// crossover. It trades in BAR mode only; OnTick is a no-op.
type MACrossover struct {
	*Base

	shortPeriod int
	longPeriod  int
	volume      float64

	closes    []float64
	vtOrderID string
}

// NewMACrossover builds an MACrossover reading short_period/long_period/
// volume from settings (defaults 10/20/1).
func NewMACrossover(engine EngineFacing, settings map[string]interface{}) *MACrossover {
	base := NewBase("ma_crossover", engine, settings)
	s := &MACrossover{
		Base:        base,
		shortPeriod: base.GetConfigInt("short_period", 10),
		longPeriod:  base.GetConfigInt("long_period", 20),
		volume:      base.GetConfigFloat("volume", 1),
	}
	return s
}

func (s *MACrossover) OnInit() {
	s.WriteLog(fmt.Sprintf("ma_crossover init: short=%d long=%d", s.shortPeriod, s.longPeriod))
}

func (s *MACrossover) OnStart() {
	s.WriteLog("ma_crossover start")
}

func (s *MACrossover) OnBar(bar models.Bar) {
	s.closes = append(s.closes, bar.Close)
	if len(s.closes) < s.longPeriod+1 {
		return
	}

	shortMA := indicators.SMA(s.closes, s.shortPeriod)
	longMA := indicators.SMA(s.closes, s.longPeriod)
	n := len(s.closes)
	currShort, currLong := shortMA[n-1], longMA[n-1]
	prevShort, prevLong := shortMA[n-2], longMA[n-2]

	if prevShort <= prevLong && currShort > currLong {
		s.CancelAll()
		ids, err := s.SendOrder(models.DirectionLong, models.OffsetOpen, bar.Close, s.volume, false)
		if err == nil && len(ids) > 0 {
			s.vtOrderID = ids[0]
		}
	} else if prevShort >= prevLong && currShort < currLong {
		s.CancelAll()
		ids, err := s.SendOrder(models.DirectionShort, models.OffsetClose, bar.Close, s.volume, false)
		if err == nil && len(ids) > 0 {
			s.vtOrderID = ids[0]
		}
	}
}

func (s *MACrossover) OnStop() {
	s.WriteLog("ma_crossover stop")
}
