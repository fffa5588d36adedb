// Package historicaldata defines the HistoricalDataSource capability the
// replay driver consumes, plus a concrete SQLite-backed implementation and
// the optional process-wide loaded-data cache.
package historicaldata

import (
	"time"

	"github.com/quantrook/backreplay/models"
)

// Source produces a chronologically ordered, finite sequence of bar or tick
// records for a (symbol, exchange, interval, start, end) query. Records
// MUST be returned in non-decreasing timestamp order, already converted to
// the engine's configured timezone, and bounded to [start, end] inclusive.
// On I/O failure it returns a bterrors.DataSource error.
type Source interface {
	LoadBars(symbol, exchange string, interval models.Interval, start, end time.Time) ([]models.Bar, error)
	LoadTicks(symbol, exchange string, start, end time.Time) ([]models.Tick, error)
}
