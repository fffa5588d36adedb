package strategy

import (
	"fmt"

	"github.com/quantrook/backreplay/models"
)

// StopAndReverse holds a single long or short position and maintains a
// protective stop order on the opposite side of the market; a trigger
// flips it into the opposite position by resubmitting a new stop further
// out. It exercises the stop-order path end to end.
type StopAndReverse struct {
	*Base

	volume        float64
	stopDistance  float64
	activeStopID  string
	lastClose     float64
}

// NewStopAndReverse builds a StopAndReverse reading volume/stop_distance
// from settings (defaults 1/1.0).
func NewStopAndReverse(engine EngineFacing, settings map[string]interface{}) *StopAndReverse {
	base := NewBase("stop_reverse", engine, settings)
	return &StopAndReverse{
		Base:         base,
		volume:       base.GetConfigFloat("volume", 1),
		stopDistance: base.GetConfigFloat("stop_distance", 1.0),
	}
}

func (s *StopAndReverse) OnInit() {
	s.WriteLog(fmt.Sprintf("stop_reverse init: volume=%.2f distance=%.2f", s.volume, s.stopDistance))
}

func (s *StopAndReverse) OnStart() {
	s.WriteLog("stop_reverse start")
}

func (s *StopAndReverse) OnBar(bar models.Bar) {
	s.lastClose = bar.Close
	if s.Pos() == 0 && s.activeStopID == "" {
		ids, err := s.SendOrder(models.DirectionLong, models.OffsetOpen, bar.Close-s.stopDistance, s.volume, true)
		if err == nil && len(ids) > 0 {
			s.activeStopID = ids[0]
		}
	}
}

func (s *StopAndReverse) OnStopOrder(stop models.StopOrder) {
	if stop.Status != models.StopOrderTriggered {
		return
	}
	s.activeStopID = ""

	switch stop.Direction {
	case models.DirectionLong:
		ids, err := s.SendOrder(models.DirectionShort, models.OffsetClose, s.lastClose-s.stopDistance, 2*s.volume, true)
		if err == nil && len(ids) > 0 {
			s.activeStopID = ids[0]
		}
	case models.DirectionShort:
		ids, err := s.SendOrder(models.DirectionLong, models.OffsetOpen, s.lastClose+s.stopDistance, 2*s.volume, true)
		if err == nil && len(ids) > 0 {
			s.activeStopID = ids[0]
		}
	}
}

func (s *StopAndReverse) OnStop() {
	s.CancelAll()
}
