package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimingDelay_WaitFrom_PadsToBase(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelay: 100 * time.Millisecond})

	var slept time.Duration
	td.sleep = func(d time.Duration) { slept = d }

	td.WaitFrom(time.Now())

	assert.Greater(t, slept, 90*time.Millisecond)
	assert.LessOrEqual(t, slept, 100*time.Millisecond)
}

func TestTimingDelay_WaitFrom_AlreadyElapsed(t *testing.T) {
	td := NewTimingDelay(TimingConfig{BaseDelay: 10 * time.Millisecond})

	called := false
	td.sleep = func(time.Duration) { called = true }

	td.WaitFrom(time.Now().Add(-time.Second))

	assert.False(t, called)
}

func TestTimingDelay_Jitter_Bounded(t *testing.T) {
	td := NewTimingDelay(TimingConfig{RandomDelay: 50 * time.Millisecond})

	for i := 0; i < 100; i++ {
		j := td.jitter()
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, 50*time.Millisecond)
	}
}

func TestTimingDelay_NilIsNoop(t *testing.T) {
	var td *TimingDelay
	assert.NotPanics(t, func() { td.WaitFrom(time.Now()) })
}
