package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, 400*time.Millisecond, 2.0)

	for i := 0; i < 10; i++ {
		wait := b.Next()
		assert.GreaterOrEqual(t, wait, 100*time.Millisecond)
		// jitter is at most +20% of the capped delay
		assert.LessOrEqual(t, wait, 480*time.Millisecond)
	}
	assert.Equal(t, 10, b.Attempts())

	b.Reset()
	assert.Equal(t, 0, b.Attempts())
	assert.LessOrEqual(t, b.Next(), 120*time.Millisecond)
}
