package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	for range 50 {
		d := backoff(base, 1, 0.5)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)

		d = backoff(base, 3, 0.5)
		assert.GreaterOrEqual(t, d, 200*time.Millisecond)
		assert.LessOrEqual(t, d, 600*time.Millisecond)
	}

	// некорректный разброс
	d := backoff(base, 0, 2)
	assert.GreaterOrEqual(t, d, 85*time.Millisecond)
	assert.LessOrEqual(t, d, 115*time.Millisecond)
}
