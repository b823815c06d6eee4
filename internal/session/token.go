// Package session implements the profiling session core: the cooperative
// cancellation token, the canonical session configuration with its two
// construction paths, and the single-session controller state machine.
package session

import (
	"sync"
	"time"
)

// Token is the cooperative cancellation primitive shared between the
// controller and a running session. A session paces itself with Sleep and
// polls ShouldStop between rounds; a stop request wakes any sleeper
// immediately instead of letting it run out the interval.
//
// The token is owned by the controller and reset before every session. It is
// never shared across overlapping sessions.
type Token struct {
	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
}

// NewToken returns a fresh token with no stop requested.
func NewToken() *Token {
	return &Token{stopCh: make(chan struct{})}
}

// Sleep blocks for up to d, returning early the moment a stop is requested.
// A non-positive duration returns immediately without touching the wait
// primitive. This is the only suspension point a session loop should use.
func (t *Token) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}

	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	ch := t.stopCh
	t.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ch:
	}
}

// ShouldStop reports whether a stop has been requested.
func (t *Token) ShouldStop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// RequestStop sets the stop flag and wakes every goroutine currently inside
// Sleep. It is idempotent.
func (t *Token) RequestStop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	close(t.stopCh)
}

// Reset clears the stop flag so the token can serve a new session. The caller
// must guarantee no session is still using the token; the controller does so
// by only resetting under the session lock while idle.
func (t *Token) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = false
	t.stopCh = make(chan struct{})
}
