package bterrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndKindOf(t *testing.T) {
	err := New(Config, "bad setting")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, Config, kind)
	assert.Contains(t, err.Error(), "bad setting")
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(DataSource, "save bars", cause)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "disk full")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(DataSource, "noop", nil))
}

func TestIsMatchesOnKind(t *testing.T) {
	a := New(Numeric, "round target must not be zero")
	b := New(Numeric, "different message, same kind")
	assert.True(t, errors.Is(a, b))

	c := New(Config, "different kind")
	assert.False(t, errors.Is(a, c))
}

func TestValidationErrorAggregates(t *testing.T) {
	ve := &ValidationError{}
	assert.NoError(t, ve.OrNil())

	ve.Add("missing field %s", "host")
	ve.Add("port %d out of range", 99999)

	err := ve.OrNil()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing field host")
	assert.Contains(t, err.Error(), "port 99999 out of range")
	assert.Contains(t, err.Error(), "2 configuration error(s)")
}
