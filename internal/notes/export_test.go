package notes

import (
	"context"
	"time"
)

// SetSleep replaces the backoff sleep so tests can observe delays without waiting.
func (w *LinkSweeper) SetSleep(f func(ctx context.Context, d time.Duration) error) {
	w.sleep = f
}

// SetRandom replaces the jitter source.
func (w *LinkSweeper) SetRandom(f func() float64) {
	w.random = f
}
