package correlation

import (
	"sync"
	"time"
	"unicode"

	"fmcd/internal/errors"
)

// RateLimitConfig governs correlation-id validation and the per-id request
// cap. It maps 1:1 onto the corresponding block of the daemon's config
// file.
type RateLimitConfig struct {
	MaxCorrelationIDLength int  `toml:"max_correlation_id_length" env:"FMCD_RATE_LIMIT_MAX_ID_LEN" env-default:"200"`
	MaxRequestsPerID       int  `toml:"max_requests_per_correlation_id" env:"FMCD_RATE_LIMIT_MAX_REQUESTS" env-default:"100"`
	WindowSeconds          int  `toml:"rate_limit_window_secs" env:"FMCD_RATE_LIMIT_WINDOW_SECS" env-default:"60"`
	Enabled                bool `toml:"enabled" env:"FMCD_RATE_LIMIT_ENABLED" env-default:"true"`
}

// Window returns the configured rate-limit window as a time.Duration.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// DefaultRateLimitConfig mirrors the documented defaults (100 requests per
// 60s window, enabled).
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxCorrelationIDLength: 200,
		MaxRequestsPerID:       100,
		WindowSeconds:          60,
		Enabled:                true,
	}
}

// PermissiveRateLimitConfig disables enforcement, for tests and local runs.
func PermissiveRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxCorrelationIDLength: 500,
		MaxRequestsPerID:       10000,
		WindowSeconds:          1,
		Enabled:                false,
	}
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// Limiter enforces RateLimitConfig behind a single mutex. An unusable
// limiter must fail closed (reject, not admit), so Check rejects with
// RateLimited once Close has run.
type Limiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	closed  bool
}

// NewLimiter constructs a Limiter for cfg.
func NewLimiter(cfg RateLimitConfig) *Limiter {
	return &Limiter{cfg: cfg, entries: make(map[string]*rateLimitEntry)}
}

// Validate checks correlation id format and length, independent of the
// rate limit itself.
func (l *Limiter) Validate(correlationID string) *errors.AppError {
	if correlationID == "" {
		return errors.ValidationErrorf("correlation id cannot be empty")
	}
	if len(correlationID) > l.cfg.MaxCorrelationIDLength {
		return errors.ValidationErrorf("correlation id exceeds maximum length")
	}
	for _, r := range correlationID {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			return errors.ValidationErrorf("correlation id contains invalid characters")
		}
	}
	return nil
}

// Check validates and applies the rate limit for correlationID, returning
// a RateLimited AppError if the per-id cap within the current window has
// been exceeded. Disabled configs always pass.
func (l *Limiter) Check(correlationID string) *errors.AppError {
	if !l.cfg.Enabled {
		return nil
	}
	if appErr := l.Validate(correlationID); appErr != nil {
		return appErr
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return errors.RateLimitedf("rate limiter unavailable")
	}

	now := time.Now()
	window := l.cfg.Window()

	for id, entry := range l.entries {
		if now.Sub(entry.windowStart) >= window {
			delete(l.entries, id)
		}
	}

	entry, ok := l.entries[correlationID]
	if !ok {
		l.entries[correlationID] = &rateLimitEntry{count: 1, windowStart: now}
		return nil
	}

	if now.Sub(entry.windowStart) >= window {
		entry.count = 1
		entry.windowStart = now
		return nil
	}

	if entry.count >= l.cfg.MaxRequestsPerID {
		return errors.RateLimitedf("rate limit exceeded for correlation id %s", correlationID)
	}

	entry.count++
	return nil
}

// Close marks the limiter closed; any subsequent Check call fails closed,
// matching the documented poisoned-mutex behavior.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}
