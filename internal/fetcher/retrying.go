// Package fetcher wraps a fetch strategy with bounded retries, backoff and
// per-host pacing.
package fetcher

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/codecrawler/internal/crawler"
	"github.com/JakeFAU/codecrawler/internal/metrics"
)

// Waiter paces requests per host.
type Waiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// RetryConfig bounds the retry loop.
type RetryConfig struct {
	Strategy    crawler.Strategy
	MaxAttempts int
	Backoff     Backoff
}

// Retrying implements crawler.PageFetcher on top of a single strategy.
type Retrying struct {
	strategy crawler.Fetcher
	cfg      RetryConfig
	limiter  Waiter
	pauser   Pauser
	logger   *zap.Logger
}

// Option customizes a Retrying fetcher.
type Option func(*Retrying)

// WithLimiter paces attempts per host.
func WithLimiter(limiter Waiter) Option {
	return func(r *Retrying) {
		r.limiter = limiter
	}
}

// WithPauser replaces the timer used between attempts.
func WithPauser(pauser Pauser) Option {
	return func(r *Retrying) {
		if pauser != nil {
			r.pauser = pauser
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Retrying) {
		if logger != nil {
			r.logger = logger.Named("fetcher")
		}
	}
}

// NewRetrying wraps strategy. MaxAttempts below one is treated as one.
func NewRetrying(strategy crawler.Fetcher, cfg RetryConfig, opts ...Option) *Retrying {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Strategy == "" {
		cfg.Strategy = crawler.StrategyDirect
	}
	r := &Retrying{
		strategy: strategy,
		cfg:      cfg,
		pauser:   TimerPauser{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch runs up to MaxAttempts attempts. It never returns an error: when
// every attempt fails the result has StatusOK=false, an empty body and Err
// set to the last failure.
func (r *Retrying) Fetch(ctx context.Context, url string) crawler.FetchResult {
	start := time.Now()
	result := crawler.FetchResult{
		RequestedURL: url,
		FinalURL:     url,
		Strategy:     r.cfg.Strategy,
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := r.pauser.Pause(ctx, r.cfg.Backoff.Delay(attempt-1)); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx, url); err != nil {
				lastErr = errors.Join(lastErr, err)
				break
			}
		}

		result.Attempts = attempt
		resp, err := r.strategy.Fetch(ctx, crawler.FetchRequest{URL: url})
		if resp.StatusCode != 0 {
			result.StatusCode = resp.StatusCode
		}
		if err == nil {
			metrics.ObserveFetchAttempt(string(r.cfg.Strategy), "ok")
			result.StatusOK = true
			result.Body = string(resp.Body)
			if resp.URL != "" {
				result.FinalURL = resp.URL
			}
			result.Duration = time.Since(start)
			return result
		}

		lastErr = err
		metrics.ObserveFetchAttempt(string(r.cfg.Strategy), outcomeLabel(err))
		r.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			if !errors.Is(lastErr, ctx.Err()) {
				lastErr = errors.Join(lastErr, ctx.Err())
			}
			break
		}
		if !crawler.IsTransient(err) {
			break
		}
	}

	result.Err = lastErr
	result.Duration = time.Since(start)
	return result
}

func outcomeLabel(err error) string {
	var statusErr *crawler.StatusError
	var renderErr *crawler.RenderError
	switch {
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &renderErr):
		return "render"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
