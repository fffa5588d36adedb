package reports

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrook/backreplay/models"
)

func readHistory(t *testing.T, path string) (version, count uint64, records [][6]float64) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, binary.Read(f, binary.LittleEndian, &version))
	require.NoError(t, binary.Read(f, binary.LittleEndian, &count))

	for i := uint64(0); i < count; i++ {
		var epoch uint64
		var open, high, low, close, volume float64
		require.NoError(t, binary.Read(f, binary.LittleEndian, &epoch))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &open))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &high))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &low))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &close))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &volume))
		records = append(records, [6]float64{float64(epoch), open, high, low, close, volume})
	}
	return version, count, records
}

func TestWriteHistory_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.dat")

	datetime := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	bars := []models.Bar{
		{Datetime: datetime, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10},
		{Datetime: datetime.Add(time.Minute), Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 12},
	}

	require.NoError(t, WriteHistory(path, bars))

	version, count, records := readHistory(t, path)
	assert.Equal(t, uint64(0), version)
	assert.Equal(t, uint64(len(bars)), count)
	require.Len(t, records, 2)

	assert.Equal(t, float64(datetime.Unix()), records[0][0])
	assert.Equal(t, 100.0, records[0][1])
	assert.Equal(t, 101.0, records[0][2])
	assert.Equal(t, 99.0, records[0][3])
	assert.Equal(t, 100.5, records[0][4])
	assert.Equal(t, 10.0, records[0][5])
}

func TestWriteHistory_EmptyStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.dat")

	require.NoError(t, WriteHistory(path, nil))

	version, count, records := readHistory(t, path)
	assert.Equal(t, uint64(0), version)
	assert.Equal(t, uint64(0), count)
	assert.Empty(t, records)
}

func readTrades(t *testing.T, path string) (version, count uint64, directions []uint8, prices, volumes []float64) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, binary.Read(f, binary.LittleEndian, &version))
	require.NoError(t, binary.Read(f, binary.LittleEndian, &count))

	for i := uint64(0); i < count; i++ {
		var epoch uint64
		var direction uint8
		var price, volume float64
		require.NoError(t, binary.Read(f, binary.LittleEndian, &epoch))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &direction))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &price))
		require.NoError(t, binary.Read(f, binary.LittleEndian, &volume))
		directions = append(directions, direction)
		prices = append(prices, price)
		volumes = append(volumes, volume)
	}
	return version, count, directions, prices, volumes
}

func TestWriteTrades_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trades.dat")

	datetime := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	trades := []models.Trade{
		{Direction: models.DirectionLong, Price: 100, Volume: 1, Datetime: datetime},
		{Direction: models.DirectionShort, Price: 105, Volume: 2, Datetime: datetime.Add(time.Hour)},
		{Direction: models.DirectionNet, Price: 102, Volume: 0.5, Datetime: datetime.Add(2 * time.Hour)},
	}

	require.NoError(t, WriteTrades(path, trades))

	version, count, directions, prices, volumes := readTrades(t, path)
	assert.Equal(t, uint64(0), version)
	assert.Equal(t, uint64(3), count)
	assert.Equal(t, []uint8{1, 2, 0}, directions)
	assert.Equal(t, []float64{100, 105, 102}, prices)
	assert.Equal(t, []float64{1, 2, 0.5}, volumes)
}
