package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nexelor/media-collector/internal/metrics"
)

// ErrInvalidRate reports a non-positive rate.
var ErrInvalidRate = errors.New("rate limit must be positive")

// Limiter is a token bucket shared by every holder of the same pointer.
// Tokens refill continuously at Rate per second up to the burst capacity.
// The default capacity of one token means N sequential acquisitions take at
// least (N-1)/Rate seconds.
type Limiter struct {
	name     string
	rate     float64
	burst    float64
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithBurst sets the bucket capacity. Values below one are ignored.
func WithBurst(n int) Option {
	return func(l *Limiter) {
		if n >= 1 {
			l.burst = float64(n)
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a limiter permitting rate operations per second.
func New(name string, rate float64, opts ...Option) (*Limiter, error) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("limiter %q: %w (got %v)", name, ErrInvalidRate, rate)
	}
	l := &Limiter{
		name:  name,
		rate:  rate,
		burst: 1,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.interval = time.Duration(float64(time.Second) / rate)
	l.tokens = l.burst
	l.last = l.now()
	return l, nil
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.name }

// Rate returns permits per second.
func (l *Limiter) Rate() float64 { return l.rate }

// Interval returns the emission interval between permits (1s/Rate).
func (l *Limiter) Interval() time.Duration { return l.interval }

// TryAcquire takes a permit if one is available. When none is, it reports how
// long until the next permit will be.
func (l *Limiter) TryAcquire() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if elapsed := now.Sub(l.last); elapsed > 0 {
		l.tokens = math.Min(l.burst, l.tokens+elapsed.Seconds()*l.rate)
	}
	l.last = now

	if l.tokens >= 1 {
		l.tokens--
		return true, 0
	}
	missing := 1 - l.tokens
	wait := time.Duration(math.Ceil(missing / l.rate * float64(time.Second)))
	if wait <= 0 {
		wait = time.Nanosecond
	}
	return false, wait
}

// Acquire blocks until a permit is taken or ctx is done. It sleeps exactly the
// wait reported by TryAcquire and re-checks, so concurrent holders of the
// same limiter never exceed the rate.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := time.Now()
	waited := false
	for {
		ok, wait := l.TryAcquire()
		if ok {
			if waited {
				metrics.RateLimitWaitSeconds.WithLabelValues(l.name).Observe(time.Since(start).Seconds())
			}
			return nil
		}
		waited = true
		if err := SleepWithContext(ctx, wait); err != nil {
			return err
		}
	}
}

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
