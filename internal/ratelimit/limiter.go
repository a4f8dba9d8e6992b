package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultPerMinute = 15
	DefaultPerDay    = 1500
	MinuteSpan       = 60 * time.Second
	DaySpan          = 24 * time.Hour
	DefaultMargin    = 100 * time.Millisecond
)

type Config struct {
	PerMinute int
	PerDay    int
	// Margin is added to every computed minute-window wait.
	Margin time.Duration
	Clock  func() time.Time
	Sleep  func(ctx context.Context, d time.Duration) error
}

// QuotaExceededError is returned when the daily window is full. It is never
// retried by the limiter itself.
type QuotaExceededError struct {
	RetryAfter time.Duration
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily API quota exceeded. Try again in %d minutes", e.Minutes())
}

func (e *QuotaExceededError) Minutes() int {
	return int(e.RetryAfter / time.Minute)
}

type WindowUsage struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

type Usage struct {
	Minute WindowUsage `json:"minute"`
	Day    WindowUsage `json:"day"`
}

// Limiter admits calls so that at most PerMinute happen in any trailing
// minute and at most PerDay in any trailing 24 hours.
type Limiter struct {
	mu     sync.Mutex
	cfg    Config
	minute []time.Time
	day    []time.Time
}

func New(cfg Config) *Limiter {
	if cfg.PerMinute <= 0 {
		cfg.PerMinute = DefaultPerMinute
	}
	if cfg.PerDay <= 0 {
		cfg.PerDay = DefaultPerDay
	}
	if cfg.Margin <= 0 {
		cfg.Margin = DefaultMargin
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Limiter{cfg: cfg}
}

// Acquire blocks until a minute-window slot is free and records the call.
// A full day window fails immediately with *QuotaExceededError. The lock is
// released while waiting so Remaining and other waiters are never stalled.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		wait, err := l.tryAcquire()
		if err != nil {
			return err
		}
		if wait <= 0 {
			return nil
		}
		if err := l.cfg.Sleep(ctx, wait+l.cfg.Margin); err != nil {
			return err
		}
	}
}

func (l *Limiter) tryAcquire() (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.cfg.Clock()
	l.purge(now)

	if len(l.day) >= l.cfg.PerDay {
		return 0, &QuotaExceededError{RetryAfter: DaySpan - now.Sub(l.day[0])}
	}
	if len(l.minute) >= l.cfg.PerMinute {
		wait := MinuteSpan - now.Sub(l.minute[0])
		if wait > 0 {
			return wait, nil
		}
	}
	l.minute = append(l.minute, now)
	l.day = append(l.day, now)
	return 0, nil
}

func (l *Limiter) Remaining() Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.purge(l.cfg.Clock())
	return Usage{
		Minute: WindowUsage{Used: len(l.minute), Remaining: l.cfg.PerMinute - len(l.minute), Limit: l.cfg.PerMinute},
		Day:    WindowUsage{Used: len(l.day), Remaining: l.cfg.PerDay - len(l.day), Limit: l.cfg.PerDay},
	}
}

// Reset drops all recorded calls.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minute = nil
	l.day = nil
}

func (l *Limiter) purge(now time.Time) {
	l.minute = trimOlder(l.minute, now, MinuteSpan)
	l.day = trimOlder(l.day, now, DaySpan)
}

// trimOlder drops the prefix of ts whose age is >= span. ts is ascending.
func trimOlder(ts []time.Time, now time.Time, span time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= span {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0:0], ts[i:]...)
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
