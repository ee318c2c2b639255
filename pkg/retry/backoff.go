package retry

import (
	"context"
	"time"
)

// Backoff chooses the pause after a failed attempt. attempt starts at 1.
type Backoff interface {
	NextDelay(attempt int) time.Duration
}

// FixedDelay pauses for the same duration after every failure
type FixedDelay time.Duration

func (d FixedDelay) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	return time.Duration(d)
}

// GrowingDelay starts at Initial and multiplies the pause by Factor after
// each further failure, never exceeding Max when Max is set.
type GrowingDelay struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

func (g GrowingDelay) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	delay := g.Initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * g.Factor)
		if g.Max > 0 && delay >= g.Max {
			return g.Max
		}
	}
	if g.Max > 0 && delay > g.Max {
		return g.Max
	}
	return delay
}

// Wait sleeps for delay and returns early with ctx.Err() when ctx ends
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
