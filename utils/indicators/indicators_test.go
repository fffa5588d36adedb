package indicators

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	data := []float64{10, 20, 30, 40, 50}
	period := 3
	expected := []float64{math.NaN(), math.NaN(), 20, 30, 40}

	result := SMA(data, period)

	if len(result) != len(expected) {
		t.Fatalf("expected length %d, got %d", len(expected), len(result))
	}

	for i := 0; i < len(result); i++ {
		if math.IsNaN(expected[i]) {
			if !math.IsNaN(result[i]) {
				t.Errorf("index %d: expected NaN, got %f", i, result[i])
			}
		} else if math.Abs(result[i]-expected[i]) > 0.001 {
			t.Errorf("index %d: expected %f, got %f", i, expected[i], result[i])
		}
	}
}

func TestSMAInsufficientData(t *testing.T) {
	if SMA([]float64{1, 2}, 3) != nil {
		t.Error("expected nil result when data is shorter than period")
	}
}
