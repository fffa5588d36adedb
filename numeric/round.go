// Package numeric provides decimal-accurate rounding for price
// quantization and PnL computation, avoiding the representation error
// binary floats introduce at the scale a backtest runs at.
package numeric

import (
	"github.com/shopspring/decimal"

	"github.com/quantrook/backreplay/bterrors"
)

// RoundTo rounds value to the nearest multiple of target using decimal
// arithmetic, so that e.g. RoundTo(100.0000001, 0.01) == 100.00 exactly.
// It fails with bterrors.Numeric if target == 0.
func RoundTo(value, target float64) (float64, error) {
	if target == 0 {
		return 0, bterrors.Newf(bterrors.Numeric, "round_to: target must not be zero")
	}

	v := decimal.NewFromFloat(value)
	t := decimal.NewFromFloat(target)

	quotient := v.Div(t).Round(0)
	rounded := quotient.Mul(t)

	f, _ := rounded.Float64()
	return f, nil
}
