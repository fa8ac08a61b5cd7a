package wait

import (
	"math"
	"math/rand/v2"
	"time"
)

// FixedStrategy waits the same duration before every retry
type FixedStrategy struct {
	d time.Duration
}

func NewFixedStrategy(d time.Duration) *FixedStrategy {
	return &FixedStrategy{d: d}
}

func (s *FixedStrategy) Next() (time.Duration, bool) { return s.d, true }
func (s *FixedStrategy) Reset()                      {}

// BackoffStrategy multiplies the delay after every retry up to max. With
// jitter each delay varies by up to 25% either way.
type BackoffStrategy struct {
	initial    time.Duration
	multiplier float64
	max        time.Duration
	jitter     bool
	attempt    int
}

func NewBackoffStrategy(initial time.Duration, multiplier float64, max time.Duration, jitter bool) *BackoffStrategy {
	return &BackoffStrategy{initial: initial, multiplier: multiplier, max: max, jitter: jitter}
}

func (s *BackoffStrategy) Next() (time.Duration, bool) {
	d := time.Duration(float64(s.initial) * math.Pow(s.multiplier, float64(s.attempt)))
	if s.max > 0 && (d > s.max || d <= 0) {
		d = s.max
	}
	if s.jitter {
		spread := float64(d) * 0.25
		d = max(0, time.Duration(float64(d)+(rand.Float64()*2-1)*spread))
	}
	s.attempt++
	return d, true
}

func (s *BackoffStrategy) Reset() {
	s.attempt = 0
}
