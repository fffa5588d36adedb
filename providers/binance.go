// Package providers contains backfiller components that populate the
// persistent historical-data store. They are external collaborators: the
// core replay engine never talks to an exchange directly, only to the
// historicaldata.Source it is handed.
package providers

import (
	"context"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/quantrook/backreplay/bterrors"
	"github.com/quantrook/backreplay/models"
)

// BinanceAPI is the subset of the official client this backfiller calls,
// narrowed so tests can substitute a fake.
type BinanceAPI interface {
	GetKlines(symbol, interval string, start, end int64, limit int) ([]*binance.Kline, error)
}

type defaultBinanceAPI struct {
	client *binance.Client
}

func (api *defaultBinanceAPI) GetKlines(symbol, interval string, start, end int64, limit int) ([]*binance.Kline, error) {
	service := api.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit)
	if start > 0 {
		service = service.StartTime(start)
	}
	if end > 0 {
		service = service.EndTime(end)
	}
	return service.Do(context.Background())
}

// Store is the write side of historicaldata.SQLiteSource the backfiller
// populates. Declared narrowly here to avoid this package depending on more
// of historicaldata than it needs.
type Store interface {
	SaveBars(bars []models.Bar) error
}

// BinanceBackfiller fetches klines from Binance's public REST API and
// writes them into a Store as Bars, so a historicaldata.Source has data to
// serve for symbols the store doesn't yet carry.
type BinanceBackfiller struct {
	api         BinanceAPI
	rateLimiter time.Time
	minInterval time.Duration
}

// NewBinanceBackfiller builds a backfiller against binance.com. apiKey/
// apiSecret may be empty for the public kline endpoint.
func NewBinanceBackfiller(apiKey, apiSecret string) *BinanceBackfiller {
	client := binance.NewClient(apiKey, apiSecret)
	return &BinanceBackfiller{
		api:         &defaultBinanceAPI{client: client},
		minInterval: 100 * time.Millisecond,
	}
}

func (b *BinanceBackfiller) rateLimit() {
	if !b.rateLimiter.IsZero() {
		if elapsed := time.Since(b.rateLimiter); elapsed < b.minInterval {
			time.Sleep(b.minInterval - elapsed)
		}
	}
	b.rateLimiter = time.Now()
}

func convertSymbol(symbol string) string {
	symbol = strings.ToUpper(symbol)
	symbol = strings.ReplaceAll(symbol, "/", "")
	if strings.HasSuffix(symbol, "USD") && !strings.HasSuffix(symbol, "USDT") {
		symbol += "T"
	}
	return symbol
}

func mapInterval(interval models.Interval) (string, error) {
	switch interval {
	case models.IntervalMinute:
		return "1m", nil
	case models.IntervalHour:
		return "1h", nil
	case models.IntervalDaily:
		return "1d", nil
	case models.IntervalWeekly:
		return "1w", nil
	default:
		return "", bterrors.Newf(bterrors.Config, "unsupported interval for binance backfill: %s", interval)
	}
}

// Backfill fetches [start, end] klines for symbol at the given interval,
// paginating in batches of 1000, and writes them into store tagged with
// exchange "BINANCE".
func (b *BinanceBackfiller) Backfill(store Store, symbol string, interval models.Interval, start, end time.Time) (int, error) {
	binanceSymbol := convertSymbol(symbol)
	binanceInterval, err := mapInterval(interval)
	if err != nil {
		return 0, err
	}

	total := 0
	cursor := start
	for cursor.Before(end) {
		b.rateLimit()

		klines, err := b.api.GetKlines(binanceSymbol, binanceInterval, cursor.UnixMilli(), end.UnixMilli(), 1000)
		if err != nil {
			return total, bterrors.Wrap(bterrors.DataSource, "fetch binance klines", err)
		}
		if len(klines) == 0 {
			break
		}

		bars := make([]models.Bar, 0, len(klines))
		for _, k := range klines {
			open, _ := strconv.ParseFloat(k.Open, 64)
			high, _ := strconv.ParseFloat(k.High, 64)
			low, _ := strconv.ParseFloat(k.Low, 64)
			closePrice, _ := strconv.ParseFloat(k.Close, 64)
			volume, _ := strconv.ParseFloat(k.Volume, 64)
			turnover, _ := strconv.ParseFloat(k.QuoteAssetVolume, 64)

			bars = append(bars, models.Bar{
				Symbol: symbol, Exchange: "BINANCE", Interval: interval,
				Datetime: time.UnixMilli(k.OpenTime),
				Open:     open, High: high, Low: low, Close: closePrice,
				Volume: volume, Turnover: turnover,
			})
		}

		if err := store.SaveBars(bars); err != nil {
			return total, err
		}
		total += len(bars)

		last := klines[len(klines)-1]
		cursor = time.UnixMilli(last.CloseTime + 1)

		if len(klines) < 1000 {
			break
		}
	}

	return total, nil
}
