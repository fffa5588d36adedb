package replay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrook/backreplay/accounting"
	"github.com/quantrook/backreplay/models"
	"github.com/quantrook/backreplay/strategy"
)

const epsilon = 1e-9

// fakeSource is an in-memory historicaldata.Source for exercising the
// replay driver without a real database.
type fakeSource struct {
	bars []models.Bar
}

func (f *fakeSource) LoadBars(symbol, exchange string, interval models.Interval, start, end time.Time) ([]models.Bar, error) {
	var out []models.Bar
	for _, b := range f.bars {
		if !b.Datetime.Before(start) && !b.Datetime.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSource) LoadTicks(symbol, exchange string, start, end time.Time) ([]models.Tick, error) {
	return nil, nil
}

// onceLimitStrategy submits a single limit order on the first bar it
// observes, then does nothing more — used to exercise spec.md §8's
// end-to-end scenarios through the full replay driver rather than the
// matching engine in isolation.
type onceLimitStrategy struct {
	*strategy.Base
	direction models.Direction
	price     float64
	volume    float64
	submitted bool
}

func (s *onceLimitStrategy) OnBar(bar models.Bar) {
	if s.submitted {
		return
	}
	s.submitted = true
	_, _ = s.SendOrder(s.direction, models.OffsetOpen, s.price, s.volume, false)
}

func registryFor(direction models.Direction, price, volume float64) *strategy.Registry {
	r := strategy.NewRegistry()
	r.Register("once_limit", func(engine strategy.EngineFacing, settings map[string]interface{}) strategy.Handle {
		return &onceLimitStrategy{
			Base:      strategy.NewBase("once_limit", engine, settings),
			direction: direction, price: price, volume: volume,
		}
	})
	return r
}

func newGapDownEngine(t *testing.T) (*Engine, models.Bar, models.Bar) {
	t.Helper()

	b1 := models.Bar{Datetime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local), Open: 100, High: 101, Low: 99, Close: 100}
	b2 := models.Bar{Datetime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local), Open: 90, High: 91, Low: 89, Close: 90}

	source := &fakeSource{bars: []models.Bar{b1, b2}}
	engine := New(source, nil)

	start := b1.Datetime.Add(-24 * time.Hour)
	end := b2.Datetime.Add(24 * time.Hour)
	require.NoError(t, engine.SetParameters(
		"BTC.BINANCE", models.IntervalDaily, models.ModeBar,
		1, 0, 0, 0.01, 10000,
		start, end,
	))
	require.NoError(t, engine.AddStrategy("once_limit", registryFor(models.DirectionLong, 95, 1), nil))

	return engine, b1, b2
}

// TestRunBacktesting_GapDownFill covers spec.md §8 end-to-end scenario 1:
// a LONG limit order submitted during bar 1 does not cross bar 1 (its
// price never reaches 95 that day) and fills at min(order.price, open) on
// the gapped-down bar 2.
func TestRunBacktesting_GapDownFill(t *testing.T) {
	engine, _, _ := newGapDownEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.LoadData(ctx))
	require.NoError(t, engine.RunBacktesting(ctx))

	trades := engine.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, models.DirectionLong, trades[0].Direction)
	assert.InDelta(t, 90.0, trades[0].Price, epsilon)

	rows := accounting.CalculateResult(engine.DailyResults(), trades, accounting.Params{Size: 1})
	require.NotEmpty(t, rows)
	assert.InDelta(t, 1.0, rows[len(rows)-1].EndPos, epsilon)
}

// TestRunBacktesting_Idempotence covers spec.md §8 invariant 6: two
// independent runs built from the same source and parameters (the
// equivalent of clear_data between back-to-back runs) produce
// byte-identical trade logs.
func TestRunBacktesting_Idempotence(t *testing.T) {
	ctx := context.Background()

	engine1, _, _ := newGapDownEngine(t)
	require.NoError(t, engine1.LoadData(ctx))
	require.NoError(t, engine1.RunBacktesting(ctx))

	engine2, _, _ := newGapDownEngine(t)
	require.NoError(t, engine2.LoadData(ctx))
	require.NoError(t, engine2.RunBacktesting(ctx))

	assert.Equal(t, engine1.Trades(), engine2.Trades())
}

// TestLoadData_RejectsStartAfterEnd covers spec.md §4.2's fail-fast
// Contract-kind precondition: start >= end logs and returns nil rather
// than erroring.
func TestLoadData_RejectsStartAfterEnd(t *testing.T) {
	source := &fakeSource{}
	engine := New(source, nil)

	now := time.Now()
	require.NoError(t, engine.SetParameters(
		"BTC.BINANCE", models.IntervalDaily, models.ModeBar,
		1, 0, 0, 0.01, 10000,
		now, now.Add(-48*time.Hour),
	))

	require.NoError(t, engine.LoadData(context.Background()))
	assert.Empty(t, engine.history)
}

// TestSetParameters_RejectsUnknownMode covers the Config-kind validation
// in spec.md §4.2.
func TestSetParameters_RejectsUnknownMode(t *testing.T) {
	engine := New(&fakeSource{}, nil)
	err := engine.SetParameters(
		"BTC.BINANCE", models.IntervalDaily, models.Mode("WEIRD"),
		1, 0, 0, 0.01, 10000,
		time.Now(), time.Now().Add(time.Hour),
	)
	assert.Error(t, err)
}

// TestSetParameters_RejectsUnknownInterval covers the Config-kind
// validation in spec.md §4.2.
func TestSetParameters_RejectsUnknownInterval(t *testing.T) {
	engine := New(&fakeSource{}, nil)
	err := engine.SetParameters(
		"BTC.BINANCE", models.Interval("3m"), models.ModeBar,
		1, 0, 0, 0.01, 10000,
		time.Now(), time.Now().Add(time.Hour),
	)
	assert.Error(t, err)
}

// TestBars_ReturnsOnlyBarLegs verifies Bars() (used by the artifact dump)
// extracts only the bar side of the loaded history.
func TestBars_ReturnsOnlyBarLegs(t *testing.T) {
	engine, b1, b2 := newGapDownEngine(t)
	require.NoError(t, engine.LoadData(context.Background()))

	bars := engine.Bars()
	require.Len(t, bars, 2)
	assert.Equal(t, b1.Close, bars[0].Close)
	assert.Equal(t, b2.Close, bars[1].Close)
}
