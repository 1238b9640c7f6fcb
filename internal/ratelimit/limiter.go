// Package ratelimit keeps one token bucket per key.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// KeyedLimiter stores a rate limiter for each key, such as a client IP or a
// phone number.
type KeyedLimiter struct {
	keys map[string]*rate.Limiter
	mu   *sync.RWMutex
	r    rate.Limit
	b    int
}

// New creates a new KeyedLimiter.
func New(r rate.Limit, b int) *KeyedLimiter {
	return &KeyedLimiter{
		keys: make(map[string]*rate.Limiter),
		mu:   &sync.RWMutex{},
		r:    r,
		b:    b,
	}
}

// PerMinute builds a limiter allowing n events per minute with a burst of n.
func PerMinute(n float64) *KeyedLimiter {
	burst := int(n)
	if burst < 1 {
		burst = 1
	}
	return New(rate.Limit(n/60), burst)
}

// add creates a new rate limiter for key unless another caller won the race.
func (l *KeyedLimiter) add(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.keys[key]; exists {
		return limiter
	}
	limiter := rate.NewLimiter(l.r, l.b)
	l.keys[key] = limiter
	return limiter
}

// Get returns the rate limiter for key.
func (l *KeyedLimiter) Get(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.keys[key]
	l.mu.RUnlock()

	if !exists {
		return l.add(key)
	}
	return limiter
}

// Allow reports whether an event for key may happen now.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.Get(key).Allow()
}
