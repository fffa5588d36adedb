package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusIsActive(t *testing.T) {
	active := []Status{StatusSubmitting, StatusNotTraded, StatusPartTraded}
	for _, s := range active {
		assert.True(t, s.IsActive(), "%s should be active", s)
	}

	inactive := []Status{StatusAllTraded, StatusCancelled, StatusRejected}
	for _, s := range inactive {
		assert.False(t, s.IsActive(), "%s should not be active", s)
	}
}
