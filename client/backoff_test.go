package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDoublesUntilCap(t *testing.T) {
	bo := newBackoff()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	for i, d := range want {
		assert.Equal(t, d, bo.next(), "attempt %d", i)
	}
}

func TestBackoffReset(t *testing.T) {
	bo := newBackoff()

	for i := 0; i < 10; i++ {
		bo.next()
	}
	bo.reset()

	assert.Equal(t, 1*time.Second, bo.next())
	assert.Equal(t, 2*time.Second, bo.next())
}

func TestBackoffNeverExceedsCap(t *testing.T) {
	bo := newBackoff()

	// The attempt counter is uncapped; the delay still is not.
	for i := 0; i < 100; i++ {
		assert.LessOrEqual(t, bo.next(), 30*time.Second)
	}
}
