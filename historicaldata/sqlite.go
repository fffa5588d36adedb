package historicaldata

import (
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/quantrook/backreplay/bterrors"
	"github.com/quantrook/backreplay/models"
)

// SQLiteSource is a Source backed by an embedded SQLite database, storing
// bars and ticks keyed by (symbol, exchange, interval).
type SQLiteSource struct {
	db *sqlx.DB
}

// barRow/tickRow mirror models.Bar/models.Tick with sqlx-friendly scalar
// columns; the five-deep ladder is flattened into individual columns since
// SQLite has no native array type.
type barRow struct {
	Symbol       string    `db:"symbol"`
	Exchange     string    `db:"exchange"`
	Interval     string    `db:"interval"`
	Datetime     time.Time `db:"datetime"`
	Open         float64   `db:"open"`
	High         float64   `db:"high"`
	Low          float64   `db:"low"`
	Close        float64   `db:"close"`
	Volume       float64   `db:"volume"`
	Turnover     float64   `db:"turnover"`
	OpenInterest float64   `db:"open_interest"`
}

type tickRow struct {
	Symbol       string    `db:"symbol"`
	Exchange     string    `db:"exchange"`
	Datetime     time.Time `db:"datetime"`
	LastPrice    float64   `db:"last_price"`
	LastVolume   float64   `db:"last_volume"`
	Volume       float64   `db:"volume"`
	Turnover     float64   `db:"turnover"`
	OpenInterest float64   `db:"open_interest"`
	BidPrice1    float64   `db:"bid_price_1"`
	BidSize1     float64   `db:"bid_size_1"`
	BidPrice2    float64   `db:"bid_price_2"`
	BidSize2     float64   `db:"bid_size_2"`
	BidPrice3    float64   `db:"bid_price_3"`
	BidSize3     float64   `db:"bid_size_3"`
	BidPrice4    float64   `db:"bid_price_4"`
	BidSize4     float64   `db:"bid_size_4"`
	BidPrice5    float64   `db:"bid_price_5"`
	BidSize5     float64   `db:"bid_size_5"`
	AskPrice1    float64   `db:"ask_price_1"`
	AskSize1     float64   `db:"ask_size_1"`
	AskPrice2    float64   `db:"ask_price_2"`
	AskSize2     float64   `db:"ask_size_2"`
	AskPrice3    float64   `db:"ask_price_3"`
	AskSize3     float64   `db:"ask_size_3"`
	AskPrice4    float64   `db:"ask_price_4"`
	AskSize4     float64   `db:"ask_size_4"`
	AskPrice5    float64   `db:"ask_price_5"`
	AskSize5     float64   `db:"ask_size_5"`
}

// NewSQLiteSource opens (creating if necessary) the database at path and
// runs the schema migration.
func NewSQLiteSource(path string) (*SQLiteSource, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, bterrors.Wrap(bterrors.DataSource, "create database directory", err)
		}
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, bterrors.Wrap(bterrors.DataSource, "connect to sqlite database", err)
	}

	s := &SQLiteSource{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteSource) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bars (
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		interval TEXT NOT NULL,
		datetime DATETIME NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume REAL NOT NULL,
		turnover REAL NOT NULL DEFAULT 0,
		open_interest REAL NOT NULL DEFAULT 0,
		UNIQUE(symbol, exchange, interval, datetime)
	);
	CREATE INDEX IF NOT EXISTS idx_bars_lookup ON bars(symbol, exchange, interval, datetime);

	CREATE TABLE IF NOT EXISTS ticks (
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		datetime DATETIME NOT NULL,
		last_price REAL NOT NULL,
		last_volume REAL NOT NULL,
		volume REAL NOT NULL,
		turnover REAL NOT NULL DEFAULT 0,
		open_interest REAL NOT NULL DEFAULT 0,
		bid_price_1 REAL DEFAULT 0, bid_size_1 REAL DEFAULT 0,
		bid_price_2 REAL DEFAULT 0, bid_size_2 REAL DEFAULT 0,
		bid_price_3 REAL DEFAULT 0, bid_size_3 REAL DEFAULT 0,
		bid_price_4 REAL DEFAULT 0, bid_size_4 REAL DEFAULT 0,
		bid_price_5 REAL DEFAULT 0, bid_size_5 REAL DEFAULT 0,
		ask_price_1 REAL DEFAULT 0, ask_size_1 REAL DEFAULT 0,
		ask_price_2 REAL DEFAULT 0, ask_size_2 REAL DEFAULT 0,
		ask_price_3 REAL DEFAULT 0, ask_size_3 REAL DEFAULT 0,
		ask_price_4 REAL DEFAULT 0, ask_size_4 REAL DEFAULT 0,
		ask_price_5 REAL DEFAULT 0, ask_size_5 REAL DEFAULT 0,
		UNIQUE(symbol, exchange, datetime)
	);
	CREATE INDEX IF NOT EXISTS idx_ticks_lookup ON ticks(symbol, exchange, datetime);

	CREATE TABLE IF NOT EXISTS trade_log (
		tradeid TEXT PRIMARY KEY,
		orderid TEXT NOT NULL,
		symbol TEXT NOT NULL,
		exchange TEXT NOT NULL,
		direction TEXT NOT NULL,
		offset TEXT NOT NULL,
		price REAL NOT NULL,
		volume REAL NOT NULL,
		datetime DATETIME NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return bterrors.Wrap(bterrors.DataSource, "run schema migration", err)
	}
	log.Info().Msg("historicaldata: schema migration complete")
	return nil
}

// SaveBars upserts bars into the store, keyed by (symbol, exchange, interval, datetime).
func (s *SQLiteSource) SaveBars(bars []models.Bar) error {
	query := `
		INSERT OR REPLACE INTO bars
		(symbol, exchange, interval, datetime, open, high, low, close, volume, turnover, open_interest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	tx, err := s.db.Beginx()
	if err != nil {
		return bterrors.Wrap(bterrors.DataSource, "begin transaction", err)
	}
	for _, b := range bars {
		if _, err := tx.Exec(query, b.Symbol, b.Exchange, string(b.Interval), b.Datetime,
			b.Open, b.High, b.Low, b.Close, b.Volume, b.Turnover, b.OpenInterest); err != nil {
			tx.Rollback()
			return bterrors.Wrap(bterrors.DataSource, "insert bar", err)
		}
	}
	return tx.Commit()
}

// LoadBars implements Source.
func (s *SQLiteSource) LoadBars(symbol, exchange string, interval models.Interval, start, end time.Time) ([]models.Bar, error) {
	var rows []barRow
	query := `
		SELECT symbol, exchange, interval, datetime, open, high, low, close, volume, turnover, open_interest
		FROM bars
		WHERE symbol = ? AND exchange = ? AND interval = ? AND datetime >= ? AND datetime <= ?
		ORDER BY datetime ASC
	`
	if err := s.db.Select(&rows, query, symbol, exchange, string(interval), start, end); err != nil {
		return nil, bterrors.Wrap(bterrors.DataSource, "query bars", err)
	}

	bars := make([]models.Bar, len(rows))
	for i, r := range rows {
		bars[i] = models.Bar{
			Symbol: r.Symbol, Exchange: r.Exchange, Interval: models.Interval(r.Interval),
			Datetime: r.Datetime, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close,
			Volume: r.Volume, Turnover: r.Turnover, OpenInterest: r.OpenInterest,
		}
	}
	return bars, nil
}

// LoadTicks implements Source.
func (s *SQLiteSource) LoadTicks(symbol, exchange string, start, end time.Time) ([]models.Tick, error) {
	var rows []tickRow
	query := `
		SELECT symbol, exchange, datetime, last_price, last_volume, volume, turnover, open_interest,
		       bid_price_1, bid_size_1, bid_price_2, bid_size_2, bid_price_3, bid_size_3,
		       bid_price_4, bid_size_4, bid_price_5, bid_size_5,
		       ask_price_1, ask_size_1, ask_price_2, ask_size_2, ask_price_3, ask_size_3,
		       ask_price_4, ask_size_4, ask_price_5, ask_size_5
		FROM ticks
		WHERE symbol = ? AND exchange = ? AND datetime >= ? AND datetime <= ?
		ORDER BY datetime ASC
	`
	if err := s.db.Select(&rows, query, symbol, exchange, start, end); err != nil {
		return nil, bterrors.Wrap(bterrors.DataSource, "query ticks", err)
	}

	ticks := make([]models.Tick, len(rows))
	for i, r := range rows {
		t := models.Tick{
			Symbol: r.Symbol, Exchange: r.Exchange, Datetime: r.Datetime,
			LastPrice: r.LastPrice, LastVolume: r.LastVolume, Volume: r.Volume,
			Turnover: r.Turnover, OpenInterest: r.OpenInterest,
		}
		t.BidPrice = [5]float64{r.BidPrice1, r.BidPrice2, r.BidPrice3, r.BidPrice4, r.BidPrice5}
		t.BidSize = [5]float64{r.BidSize1, r.BidSize2, r.BidSize3, r.BidSize4, r.BidSize5}
		t.AskPrice = [5]float64{r.AskPrice1, r.AskPrice2, r.AskPrice3, r.AskPrice4, r.AskPrice5}
		t.AskSize = [5]float64{r.AskSize1, r.AskSize2, r.AskSize3, r.AskSize4, r.AskSize5}
		ticks[i] = t
	}
	return ticks, nil
}
