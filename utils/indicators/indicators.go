// Package indicators provides small technical-analysis helpers for sample
// strategies to build signals from a closing-price series.
package indicators

import "math"

// SMA calculates the Simple Moving Average. Indices before period-1 are
// NaN; the caller is expected to skip them.
func SMA(data []float64, period int) []float64 {
	if len(data) < period || period <= 0 {
		return nil
	}
	sma := make([]float64, len(data))
	for i := 0; i < len(data); i++ {
		if i < period-1 {
			sma[i] = math.NaN()
			continue
		}
		var sum float64
		for j := 0; j < period; j++ {
			sum += data[i-j]
		}
		sma[i] = sum / float64(period)
	}
	return sma
}
