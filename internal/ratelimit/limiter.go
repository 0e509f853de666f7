// Package ratelimit implements a token bucket rate limiter keyed by client.
package ratelimit

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// DefaultMaxClients bounds how many client buckets are tracked at once.
const DefaultMaxClients = 10000

// Limiter manages per-client rate limits.
type Limiter struct {
	mu           sync.Mutex
	limiters     *lru.Cache[string, *rate.Limiter]
	defaultRate  rate.Limit
	defaultBurst int
}

// Config holds rate limiter configuration.
type Config struct {
	// RPS is the sustained requests per second per client. Zero or less
	// means unlimited.
	RPS   float64
	Burst int
	// MaxClients caps tracked clients; the least recently seen is dropped.
	MaxClients int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	size := cfg.MaxClients
	if size <= 0 {
		size = DefaultMaxClients
	}
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		// Only returned for a non-positive size, excluded above.
		panic(err)
	}
	return &Limiter{
		limiters:     cache,
		defaultRate:  r,
		defaultBurst: burst,
	}
}

// Allow reports whether a request from client may proceed now, consuming a
// token when it does.
func (l *Limiter) Allow(client string) bool {
	if l.defaultRate == rate.Inf {
		return true
	}
	if client == "" {
		client = "unknown"
	}
	l.mu.Lock()
	limiter, ok := l.limiters.Get(client)
	if !ok {
		limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.limiters.Add(client, limiter)
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Clients returns how many client buckets are tracked.
func (l *Limiter) Clients() int {
	return l.limiters.Len()
}
