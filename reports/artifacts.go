package reports

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/quantrook/backreplay/models"
)

// directionCode maps a Direction to the trades.dat wire code: 1=LONG,
// 2=SHORT, 0=anything else (NET or unset).
func directionCode(d models.Direction) uint8 {
	switch d {
	case models.DirectionLong:
		return 1
	case models.DirectionShort:
		return 2
	default:
		return 0
	}
}

// WriteHistory streams bars to path as history.dat: a little-endian
// u64 version=0, u64 count, then count records of
// (u64 epoch_seconds, f64 open, f64 high, f64 low, f64 close, f64 volume).
// The count is written as a zero placeholder first and rewritten once
// streaming completes.
func WriteHistory(path string, bars []models.Bar) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(0)); err != nil {
		return err
	}
	countPos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint64(0)); err != nil {
		return err
	}

	for _, b := range bars {
		fields := []interface{}{
			uint64(b.Datetime.Unix()), b.Open, b.High, b.Low, b.Close, b.Volume,
		}
		for _, v := range fields {
			if err := binary.Write(f, binary.LittleEndian, v); err != nil {
				return err
			}
		}
	}

	if _, err := f.Seek(countPos, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, uint64(len(bars)))
}

// WriteTrades streams trades to path as trades.dat: a little-endian
// u64 version=0, u64 count, then count records of
// (u64 epoch_seconds, u8 direction, f64 price, f64 volume).
func WriteTrades(path string, trades []models.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := binary.Write(f, binary.LittleEndian, uint64(0)); err != nil {
		return err
	}
	countPos, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, uint64(0)); err != nil {
		return err
	}

	for _, t := range trades {
		if err := binary.Write(f, binary.LittleEndian, uint64(t.Datetime.Unix())); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, directionCode(t.Direction)); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, t.Price); err != nil {
			return err
		}
		if err := binary.Write(f, binary.LittleEndian, t.Volume); err != nil {
			return err
		}
	}

	if _, err := f.Seek(countPos, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, uint64(len(trades)))
}
