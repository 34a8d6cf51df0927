// Package ratelimit implements a per-client fixed-window limiter with
// pluggable counter storage.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"almeone-contact-api/internal/domain"
	"almeone-contact-api/pkg/logger"
)

const (
	DefaultLimit  = 5
	DefaultWindow = 15 * time.Minute
)

// Record is the stored state of one client's window.
type Record struct {
	Count   int
	ResetAt time.Time
}

// Store persists window records. Consume must apply the admission rule
// atomically with respect to other callers for the same key.
type Store interface {
	Consume(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Record, bool, error)
}

// decide applies the fixed-window rule to the current record. A rejected
// request leaves the record untouched.
func decide(rec Record, limit int, window time.Duration, now time.Time) (Record, bool) {
	if rec.Count == 0 || now.After(rec.ResetAt) {
		return Record{Count: 1, ResetAt: now.Add(window)}, true
	}
	if rec.Count >= limit {
		return rec, false
	}
	rec.Count++
	return rec, true
}

type Config struct {
	Limit  int
	Window time.Duration
}

type Limiter struct {
	store Store
	cfg   Config
	log   *slog.Logger
	now   func() time.Time
}

func New(store Store, cfg Config, log *slog.Logger) *Limiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Limiter{store: store, cfg: cfg, log: log, now: time.Now}
}

// WithClock replaces the time source. Tests use it to step across windows.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// CheckAndConsume admits or rejects one request for clientKey. Store errors
// are logged and the request is admitted.
func (l *Limiter) CheckAndConsume(ctx context.Context, clientKey string) domain.RateLimitDecision {
	now := l.now()

	rec, allowed, err := l.store.Consume(ctx, clientKey, l.cfg.Limit, l.cfg.Window, now)
	if err != nil {
		logger.WithContext(ctx, l.log).Error("rate limit store failed, admitting request",
			"client_key", clientKey,
			"error", err,
		)
		return domain.RateLimitDecision{
			Allowed:   true,
			Limit:     l.cfg.Limit,
			Remaining: l.cfg.Limit - 1,
			ResetAt:   now.Add(l.cfg.Window),
		}
	}

	return domain.RateLimitDecision{
		Allowed:   allowed,
		Limit:     l.cfg.Limit,
		Remaining: max(l.cfg.Limit-rec.Count, 0),
		ResetAt:   rec.ResetAt,
	}
}

func (l *Limiter) Config() Config {
	return l.cfg
}
