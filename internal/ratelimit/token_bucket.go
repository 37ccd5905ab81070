// Package ratelimit provides an in-memory token-bucket rate limiter used
// as HTTP middleware keyed by client IP, in front of the API key admission
// gate.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a single token bucket. Tokens refill continuously at rate
// per second up to burst; each permitted request consumes one token.
type Limiter struct {
	mu sync.Mutex

	rate   float64
	burst  float64
	tokens float64
	last   time.Time

	now func() time.Time
}

// New creates a Limiter allowing ratePerSecond requests per second.
// If burst <= 0 it defaults to ratePerSecond.
func New(ratePerSecond, burst float64) *Limiter {
	if burst <= 0 {
		burst = ratePerSecond
	}
	l := &Limiter{
		rate:   ratePerSecond,
		burst:  burst,
		tokens: burst,
		now:    time.Now,
	}
	l.last = l.now()
	return l
}

// Allow consumes one token and reports whether the request is permitted.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// staleAfter is how long an idle bucket survives before the store drops it.
// Per-IP buckets otherwise grow without bound.
const staleAfter = 10 * time.Minute

type bucket struct {
	limiter  *Limiter
	lastSeen time.Time
}

// Store maintains one Limiter per key, dropping buckets idle longer than
// staleAfter.
type Store struct {
	mu        sync.Mutex
	rate      float64
	burst     float64
	buckets   map[string]*bucket
	lastSweep time.Time
}

// NewStore creates a Store whose per-key limiters share the same rate and burst.
func NewStore(ratePerSecond, burst float64) *Store {
	return &Store{
		rate:      ratePerSecond,
		burst:     burst,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

// Allow checks, creating if needed, the limiter for key.
func (s *Store) Allow(key string) bool {
	now := time.Now()

	s.mu.Lock()
	if now.Sub(s.lastSweep) > staleAfter {
		s.sweep(now)
	}
	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{limiter: New(s.rate, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now
	s.mu.Unlock()

	return b.limiter.Allow()
}

// sweep must be called with s.mu held.
func (s *Store) sweep(now time.Time) {
	for key, b := range s.buckets {
		if now.Sub(b.lastSeen) > staleAfter {
			delete(s.buckets, key)
		}
	}
	s.lastSweep = now
}
