package logging

import (
	"sync"
	"time"
)

// RateLimiter suppresses repeated log events sharing a signature (e.g.
// "tailer reconnect failed") so a flapping condition doesn't flood the
// log; each signature is allowed through at most once per window, with
// the suppressed count reported on the next allowed call.
type RateLimiter struct {
	window time.Duration

	mu    sync.Mutex
	state map[string]*signatureState
}

type signatureState struct {
	lastAllowed time.Time
	suppressed  int
}

// NewRateLimiter returns a RateLimiter admitting one event per signature
// per window.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{window: window, state: make(map[string]*signatureState)}
}

// Allow reports whether an event with the given signature should be
// logged now, and how many prior events with that signature were
// suppressed since the last one that was allowed.
func (r *RateLimiter) Allow(signature string, now time.Time) (ok bool, suppressed int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, exists := r.state[signature]
	if !exists {
		r.state[signature] = &signatureState{lastAllowed: now}
		return true, 0
	}

	if now.Sub(st.lastAllowed) < r.window {
		st.suppressed++
		return false, 0
	}

	count := st.suppressed
	st.lastAllowed = now
	st.suppressed = 0
	return true, count
}

// Reset discards all tracked signatures.
func (r *RateLimiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = make(map[string]*signatureState)
}
