// Package ratelimit implements per-key token bucket admission control
// with two tiers: a strict one for authentication endpoints and a lenient
// one for the general API. Buckets are created lazily at full capacity
// and evicted by a periodic sweep once they refill back to idle.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Tier int

const (
	// TierAuth protects credential guessing surfaces: small capacity,
	// slow refill
	TierAuth Tier = iota

	// TierStandard covers the general API
	TierStandard
)

type TierConfig struct {
	Capacity        int
	RefillPerMinute float64
}

type Config struct {
	Auth     TierConfig
	Standard TierConfig

	// Sweep removes buckets whose token count recovered above the high
	// water mark (capped at the tier capacity), bounding memory for long
	// lived deployments without penalizing active keys
	SweepInterval  time.Duration
	SweepHighWater float64
}

const (
	defaultSweepInterval  = 10 * time.Minute
	defaultSweepHighWater = 50
)

var (
	defaultAuthTier     = TierConfig{Capacity: 5, RefillPerMinute: 5}
	defaultStandardTier = TierConfig{Capacity: 30, RefillPerMinute: 30}
)

// Decision is the structured admission result. On denial RetryAfter
// estimates when the next token becomes available
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

type bucket struct {
	lim      *rate.Limiter
	capacity int
}

// Limiter keeps one token bucket per derived key. The map is guarded by
// a mutex, bucket mutation itself is internally synchronized by
// rate.Limiter, so unrelated keys never contend on admission
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(cfg Config) *Limiter {
	if cfg.Auth.Capacity <= 0 || cfg.Auth.RefillPerMinute <= 0 {
		cfg.Auth = defaultAuthTier
	}
	if cfg.Standard.Capacity <= 0 || cfg.Standard.RefillPerMinute <= 0 {
		cfg.Standard = defaultStandardTier
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}
	if cfg.SweepHighWater <= 0 {
		cfg.SweepHighWater = defaultSweepHighWater
	}

	return &Limiter{
		cfg:     cfg,
		buckets: make(map[string]*bucket),
	}
}

// Admit tries to take one token from the bucket of the key. A denied
// request consumes nothing and does not disturb the refill bookkeeping:
// Tokens is a read, so repeated denials report a consistent RetryAfter
func (l *Limiter) Admit(key string, tier Tier) Decision {
	b := l.bucket(key, tier)

	if b.lim.Allow() {
		return Decision{Allowed: true}
	}

	missing := 1 - b.lim.Tokens()
	if missing < 0 {
		missing = 0
	}
	retryAfter := time.Duration(missing / float64(b.lim.Limit()) * float64(time.Second))

	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// Run sweeps idle buckets until the context is cancelled
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Sweep evicts buckets that refilled back to idle. An admit racing with
// the eviction of its bucket simply recreates it at full capacity
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		if b.lim.Tokens() >= min(l.cfg.SweepHighWater, float64(b.capacity)) {
			delete(l.buckets, key)
		}
	}
}

// Len reports the number of live buckets
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) bucket(key string, tier Tier) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}

	tc := l.cfg.Standard
	if tier == TierAuth {
		tc = l.cfg.Auth
	}

	b := &bucket{
		lim:      rate.NewLimiter(rate.Limit(tc.RefillPerMinute/60.0), tc.Capacity),
		capacity: tc.Capacity,
	}
	l.buckets[key] = b

	return b
}
