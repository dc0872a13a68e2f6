package relay

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out the steps of a delivery to stay within Discord's rate limits.
type Pacer interface {
	Wait(ctx context.Context) error
}

// NewPacer builds the pacer named by kind ("fixed" or "rate").
// A zero delay disables pacing.
func NewPacer(kind string, delay time.Duration) Pacer {
	if delay <= 0 {
		return NoPacer{}
	}
	if kind == "rate" {
		return NewRatePacer(delay)
	}
	return NewFixedPacer(delay)
}

// NoPacer never waits.
type NoPacer struct{}

// Wait implements Pacer.
func (NoPacer) Wait(ctx context.Context) error { return ctx.Err() }

// FixedPacer sleeps for the same delay at every step.
type FixedPacer struct {
	delay time.Duration
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFixedPacer returns a pacer sleeping delay at every step.
func NewFixedPacer(delay time.Duration) *FixedPacer {
	return &FixedPacer{delay: delay, sleep: sleepContext}
}

// WithSleep replaces the sleep function, for tests.
func (p *FixedPacer) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *FixedPacer {
	p.sleep = sleep
	return p
}

// Wait implements Pacer.
func (p *FixedPacer) Wait(ctx context.Context) error {
	return p.sleep(ctx, p.delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RatePacer lets at most one step through per interval. Unlike FixedPacer it
// does not wait when the previous step already took longer than the interval.
type RatePacer struct {
	limiter *rate.Limiter
}

// NewRatePacer returns a pacer allowing one step per interval.
func NewRatePacer(interval time.Duration) *RatePacer {
	return &RatePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait implements Pacer.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}
