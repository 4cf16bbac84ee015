package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Config holds configuration for rate limiting
type Config struct {
	MaxRequests     int           // Maximum number of requests allowed per window
	WindowSize      time.Duration // Time window for rate limiting
	CleanupInterval time.Duration // How often to clean up expired entries
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRequests:     50,
		WindowSize:      time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter implements sliding window rate limiting keyed by client
// identity, typically the remote address of an RPC caller.
type Limiter struct {
	config      *Config
	requests    map[string][]time.Time
	mu          sync.Mutex
	stopCleanup chan struct{}
}

// NewLimiter creates a new rate limiter with the given configuration
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Limiter{
		config:      config,
		requests:    make(map[string][]time.Time),
		stopCleanup: make(chan struct{}),
	}

	go l.cleanupExpiredEntries()

	return l
}

// Allow checks if a request from the given key is allowed
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.config.WindowSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.requests[key][:0]
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}

	if len(valid) >= l.config.MaxRequests {
		l.requests[key] = valid
		return false
	}

	l.requests[key] = append(valid, now)
	return true
}

// Stats returns the in-window request count and the oldest in-window
// request time for a key
func (l *Limiter) Stats(key string) (int, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.WindowSize)
	count := 0
	var oldest time.Time
	for _, ts := range l.requests[key] {
		if ts.After(cutoff) {
			count++
			if oldest.IsZero() || ts.Before(oldest) {
				oldest = ts
			}
		}
	}
	return count, oldest
}

// Reset removes all entries for a given key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, key)
}

// cleanupExpiredEntries periodically removes expired entries to prevent
// unbounded growth across many one-off clients
func (l *Limiter) cleanupExpiredEntries() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCleanup:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	cutoff := time.Now().Add(-l.config.WindowSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, requests := range l.requests {
		valid := requests[:0]
		for _, ts := range requests {
			if ts.After(cutoff) {
				valid = append(valid, ts)
			}
		}
		if len(valid) == 0 {
			delete(l.requests, key)
		} else {
			l.requests[key] = valid
		}
	}
}

// Stop stops the cleanup goroutine
func (l *Limiter) Stop() {
	close(l.stopCleanup)
}

// LimitError is returned to callers rejected by the limiter
type LimitError struct {
	Key string
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s", e.Key)
}
