package auth

import (
	"crypto/rand"
	"math/big"
	"time"
)

// TimingConfig holds configuration for failure-path delays
type TimingConfig struct {
	BaseDelay   time.Duration
	RandomDelay time.Duration
}

// TimingDelay pads failed verification responses so that a wrong code and
// an unknown account take roughly the same time to answer.
type TimingDelay struct {
	config TimingConfig
	sleep  func(time.Duration)
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(config TimingConfig) *TimingDelay {
	return &TimingDelay{
		config: config,
		sleep:  time.Sleep,
	}
}

// WaitFrom sleeps until at least base+jitter has elapsed since start.
// A nil receiver does nothing.
func (td *TimingDelay) WaitFrom(start time.Time) {
	if td == nil {
		return
	}

	target := td.config.BaseDelay + td.jitter()
	if elapsed := time.Since(start); elapsed < target {
		td.sleep(target - elapsed)
	}
}

func (td *TimingDelay) jitter() time.Duration {
	if td.config.RandomDelay <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(td.config.RandomDelay)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
