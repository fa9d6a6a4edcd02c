package model

import "time"

// Countdown derives a "time remaining" display value from a fixed estimate and
// wall-clock elapsed time. It carries no authority over job completion: it
// saturates at zero and keeps ticking until the owning job reaches a terminal
// state.
type Countdown struct {
	StartedAt time.Time
	Estimate  time.Duration
}

// Elapsed clamps negative values so clock skew never produces a countdown that
// counts up past the estimate.
func (c Countdown) Elapsed(now time.Time) time.Duration {
	d := now.Sub(c.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

func (c Countdown) Remaining(now time.Time) time.Duration {
	rem := c.Estimate - c.Elapsed(now)
	if rem < 0 {
		return 0
	}
	return rem
}
