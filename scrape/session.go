package scrape

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is the per-request state of one scrape. It moves from pending
// to resolved exactly once; whichever of worker completion, deadline
// expiry or caller cancellation resolves it first decides the response.
type Session struct {
	ID        string
	URL       string
	StartedAt time.Time

	kill      context.CancelFunc
	responded atomic.Bool
	response  *Response
	done      chan struct{}
}

// NewSession creates a pending Session. kill aborts the session's worker.
func NewSession(url string, kill context.CancelFunc) *Session {
	return &Session{
		ID:        uuid.NewString(),
		URL:       url,
		StartedAt: time.Now(),
		kill:      kill,
		done:      make(chan struct{}),
	}
}

// Resolve records r as the session's response if no response has been
// recorded yet. It reports whether r won.
func (s *Session) Resolve(r *Response) bool {
	if !s.responded.CompareAndSwap(false, true) {
		return false
	}
	s.response = r
	close(s.done)
	return true
}

// Done is closed once the session is resolved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Responded reports whether the session has been resolved.
func (s *Session) Responded() bool {
	return s.responded.Load()
}

// Response returns the winning response. It must only be called after
// Done is closed.
func (s *Session) Response() *Response {
	return s.response
}

// Kill aborts the worker without waiting for it.
func (s *Session) Kill() {
	if s.kill != nil {
		s.kill()
	}
}
