// Package ratelimit provides per-key token bucket rate limiting for MCP tools.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is wrapped by CheckLimit when a tool has no tokens left.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limiter implements a per-key token bucket rate limiter.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int     // bucket capacity and initial token count
	nowFunc func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// Limit is a rate in tokens per second and a burst size.
type Limit struct {
	Rate  float64
	Burst int
}

// PerMinute returns a Limit allowing n calls a minute with the given burst.
func PerMinute(n float64, burst int) Limit {
	return Limit{Rate: n / 60, Burst: burst}
}

// NewLimiter creates a rate limiter with the given rate (tokens/sec) and burst size.
func NewLimiter(rate float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		burst:   burst,
		nowFunc: time.Now,
	}
}

// Allow takes a token for key, reporting false if none is available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastCheck: now}
		l.buckets[key] = b
	}

	if elapsed := now.Sub(b.lastCheck).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.rate*elapsed, float64(l.burst))
		b.lastCheck = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Tool names served by the MCP server.
const (
	ToolSnapshot   = "selfwatch_snapshot"
	ToolCascade    = "selfwatch_cascade"
	ToolInvariants = "selfwatch_invariants"
	ToolHistory    = "selfwatch_history"
	ToolRuns       = "selfwatch_runs"
	ToolExport     = "selfwatch_export"
)

// DefaultLimits are the per-tool limits used by NewToolLimiters. Live reads
// are cheap; recorded history and run listings hit the database.
var DefaultLimits = map[string]Limit{
	ToolSnapshot:   PerMinute(120, 20),
	ToolCascade:    PerMinute(120, 20),
	ToolInvariants: PerMinute(60, 10),
	ToolHistory:    PerMinute(30, 5),
	ToolRuns:       PerMinute(10, 3),
	ToolExport:     PerMinute(5, 2),
}

// ToolLimiters maps tool names to their rate limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters creates a limiter per tool in DefaultLimits.
func NewToolLimiters() ToolLimiters {
	return NewToolLimitersFrom(DefaultLimits)
}

// NewToolLimitersFrom creates a limiter per entry in limits.
func NewToolLimitersFrom(limits map[string]Limit) ToolLimiters {
	tl := make(ToolLimiters, len(limits))
	for name, lim := range limits {
		tl[name] = NewLimiter(lim.Rate, lim.Burst)
	}
	return tl
}

// CheckLimit checks the rate limit for a given tool name.
// Tools without a configured limiter are always allowed.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}
	return nil
}
