package notes

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy is a bounded exponential backoff.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// DefaultRetryPolicy retries five times between 1s and 30s, doubling each time.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Delay returns the wait after the given failed attempt (1-based).
// With jitter the delay is stretched by up to one extra growth step.
// rnd must return a value in [0, 1).
func (p RetryPolicy) Delay(attempt int, rnd func() float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.Jitter && rnd != nil {
		d += rnd() * d * (mult - 1)
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// LinkSweeper periodically removes expired shared links. Expired links are
// already rejected by ValidateLink, so the sweep only reclaims storage.
type LinkSweeper struct {
	database Database
	logger   Logger
	clock    Clock
	idgen    IDGenerator
	policy   RetryPolicy
	interval time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
}

// NewLinkSweeper creates a sweeper that runs every interval.
func NewLinkSweeper(database Database, logger Logger, clock Clock, idgen IDGenerator, policy RetryPolicy, interval time.Duration) *LinkSweeper {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	return &LinkSweeper{
		database: database,
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
		policy:   policy,
		interval: interval,
		sleep:    sleepContext,
		random:   rand.Float64,
	}
}

// RunOnce performs a single cleanup cycle. Transient storage failures are
// retried per the policy; any other failure ends the cycle immediately.
func (w *LinkSweeper) RunOnce(ctx context.Context) (int64, error) {
	trace := shortID(w.idgen.New())

	var lastErr error
	for attempt := 1; attempt <= w.policy.MaxAttempts; attempt++ {
		deleted, err := w.database.DeleteExpiredLinksBefore(w.clock.Now().UTC())
		if err == nil {
			if deleted > 0 {
				w.logger.Info("expired shared links removed", "trace", trace, "deleted", deleted)
			}
			return deleted, nil
		}

		lastErr = err
		if !errors.Is(err, ErrTransient) || attempt == w.policy.MaxAttempts {
			break
		}

		delay := w.policy.Delay(attempt, w.random)
		w.logger.Warn("shared link cleanup failed, retrying", "trace", trace, "attempt", attempt, "delay", delay, "error", err)
		if err := w.sleep(ctx, delay); err != nil {
			return 0, err
		}
	}

	w.logger.Error("shared link cleanup failed", "trace", trace, "error", lastErr)
	return 0, fmt.Errorf("cleaning up expired shared links: %w", lastErr)
}

// Run sweeps every interval until ctx is cancelled. A failed cycle is
// logged and the next tick tries again.
func (w *LinkSweeper) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got %s", w.interval)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = w.RunOnce(ctx)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
