package feed

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 2 * time.Second
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the default Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
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

// BackoffConfig tunes the retry policy.
type BackoffConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Backoff wraps one network attempt with rate-limit aware retries. Retry n
// (0-based) waits BaseDelay * 2^n.
type Backoff struct {
	cfg   BackoffConfig
	sleep Sleeper
}

// BackoffOption customises a Backoff.
type BackoffOption func(*Backoff)

// WithSleeper replaces the wait function, mostly for tests.
func WithSleeper(s Sleeper) BackoffOption {
	return func(b *Backoff) {
		if s != nil {
			b.sleep = s
		}
	}
}

// NewBackoff constructs a Backoff; zero values fall back to 3 retries and a
// 2s base delay. A negative MaxRetries disables retries.
func NewBackoff(cfg BackoffConfig, opts ...BackoffOption) *Backoff {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	b := &Backoff{cfg: cfg, sleep: SleepContext}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Delay returns the wait before retry n.
func (b *Backoff) Delay(retry int) time.Duration {
	return b.cfg.BaseDelay << uint(retry)
}

// Do runs fn until it succeeds, fails permanently, or exhausts the retry
// budget. Failures are returned as *FetchError.
func (b *Backoff) Do(ctx context.Context, page int, fn func(context.Context) error) error {
	for retry := 0; ; retry++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		kind := classify(err)
		if errors.Is(kind, ErrPermanentFetch) || retry >= b.cfg.MaxRetries {
			return &FetchError{Kind: kind, Page: page, Err: err}
		}

		delay := b.Delay(retry)
		logx.WithContext(ctx).Infof("feed: retry page=%d attempt=%d delay=%s err=%v", page, retry+1, delay, err)
		if err := b.sleep(ctx, delay); err != nil {
			return err
		}
	}
}
