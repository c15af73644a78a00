// Package ratelimit provides a best-effort, process-local request limiter
// for read-only public endpoints. It has none of the transactional
// guarantees of the quota stores: counters live in this process only and
// reset on restart. It must never be used to protect the write path.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	httpmiddleware "github.com/ghostboard/ghostboard/internal/http"
	"github.com/ghostboard/ghostboard/internal/identity"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per (scope, hashed submitter) key, with
// idle entries evicted periodically.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry

	limit   rate.Limit
	burst   int
	idleTTL time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

type entry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing rps requests per second with the given
// burst per key, and starts the background eviction loop.
func New(rps float64, burst int) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: 15 * time.Minute,
		stopCh:  make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Allow reports whether a request for the given key may proceed now.
func (l *Limiter) Allow(scope, submitterHash string) bool {
	key := scope + "|" + submitterHash

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = time.Now()

	return e.lim.Allow()
}

// Stop terminates the background eviction loop.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stopCh)
	})
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) evictIdle() {
	cutoff := time.Now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// Middleware limits requests per (scope, hashed submitter). A request whose
// submitter identity cannot be derived is allowed through: the limiter is
// best-effort protection for read endpoints, not an enforcement point.
func (l *Limiter) Middleware(scope string, hasher *identity.Hasher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			submitterHash, err := hasher.Hash(httpmiddleware.ClientIPFromContext(r.Context()))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			if !l.Allow(scope, submitterHash) {
				w.Header().Set("Retry-After", strconv.Itoa(1))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
