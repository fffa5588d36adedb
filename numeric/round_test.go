package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantrook/backreplay/bterrors"
)

func TestRoundTo(t *testing.T) {
	cases := []struct {
		value, target, want float64
	}{
		{100.03, 0.01, 100.03},
		{100.027, 0.01, 100.03},
		{100.024, 0.01, 100.02},
		{1.1, 0.5, 1.0},
		{1.26, 0.5, 1.5},
		{7, 1, 7},
	}
	for _, c := range cases {
		got, err := RoundTo(c.value, c.target)
		require.NoError(t, err)
		assert.InDelta(t, c.want, got, 1e-9)
	}
}

func TestRoundToZeroTarget(t *testing.T) {
	_, err := RoundTo(1.0, 0)
	require.Error(t, err)
	kind, ok := bterrors.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, bterrors.Numeric, kind)
}
