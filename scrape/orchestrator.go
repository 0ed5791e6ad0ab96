// Package scrape orchestrates scrape requests: it starts one isolated
// worker per request, bounds it with an outer deadline and turns the first
// of {worker outcome, deadline, cancellation} into the request's response.
package scrape

import (
	"context"
	"net/http"
	neturl "net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultTimeout is the outer deadline for one scrape.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxSessions bounds concurrently running workers.
	DefaultMaxSessions = 4
)

// Orchestrator runs scrapes. It is safe for concurrent use; requests do
// not share any worker state.
type Orchestrator struct {
	worker  pagetext.Worker
	timeout time.Duration
	limiter pagetext.DomainLimiter
	logger  zerolog.Logger

	sessions *semaphore.Weighted
	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTimeout sets the outer deadline.
// Defaults to DefaultTimeout (2m) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxSessions bounds the number of workers running at once. Scrapes
// beyond the limit queue, and queueing counts against the outer deadline.
// Zero or less removes the bound.
func WithMaxSessions(n int64) Option {
	return func(o *Orchestrator) {
		if n <= 0 {
			o.sessions = nil
			return
		}
		o.sessions = semaphore.NewWeighted(n)
	}
}

// WithLimiter paces scrapes per target host.
func WithLimiter(l pagetext.DomainLimiter) Option {
	return func(o *Orchestrator) {
		o.limiter = l
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator running worker.
func NewOrchestrator(worker pagetext.Worker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		worker:   worker,
		timeout:  DefaultTimeout,
		logger:   zerolog.Nop(),
		sessions: semaphore.NewWeighted(DefaultMaxSessions),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scrape runs one worker for url and returns the single response for the
// request. An empty url is rejected with 400 before any worker starts.
//
// When the outer deadline fires first, the worker is killed and the
// response is a 500 timeout; whatever the worker produces afterwards is
// discarded. Scrape does not wait for a killed worker to finish; use Wait
// for that.
func (o *Orchestrator) Scrape(ctx context.Context, url string) *Response {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrorResponse(http.StatusBadRequest, MsgURLRequired, nil)
	}

	// The worker only observes cancellation through kill, which is always
	// called after the session is resolved.
	workerCtx, kill := context.WithCancel(context.WithoutCancel(ctx))
	s := NewSession(url, kill)
	log := o.logger.With().Str("session", s.ID).Str("url", url).Logger()
	log.Info().Msg("starting scrape")

	o.wg.Add(1)
	o.inFlight.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.inFlight.Add(-1)
		defer kill()

		s.Resolve(o.run(workerCtx, url))
	}()

	deadline := time.AfterFunc(o.timeout, func() {
		if s.Resolve(ErrorResponse(http.StatusInternalServerError, MsgTimeout, nil)) {
			s.Kill()
			log.Warn().Dur("timeout", o.timeout).Msg("scrape timeout, worker killed")
		}
	})
	defer deadline.Stop()

	select {
	case <-s.Done():
	case <-ctx.Done():
		if s.Resolve(ErrorResponse(http.StatusInternalServerError, MsgCancelled, nil)) {
			s.Kill()
			log.Warn().Err(ctx.Err()).Msg("scrape cancelled by caller, worker killed")
		}
	}

	// A lost Resolve race still has to wait for the winner to publish.
	<-s.Done()
	resp := s.Response()
	log.Info().
		Int("status", resp.Status).
		Dur("duration", time.Since(s.StartedAt)).
		Msg("scrape resolved")
	return resp
}

// run acquires a session slot, waits for the host's turn and runs the
// worker.
func (o *Orchestrator) run(ctx context.Context, url string) (resp *Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = ErrorResponse(http.StatusInternalServerError, "worker panicked", nil)
		}
	}()

	if o.sessions != nil {
		if err := o.sessions.Acquire(ctx, 1); err != nil {
			return ErrorResponse(http.StatusInternalServerError, MsgCancelled, nil)
		}
		defer o.sessions.Release(1)
	}

	if o.limiter != nil {
		if err := o.limiter.Wait(ctx, host(url)); err != nil {
			return ErrorResponse(http.StatusInternalServerError, MsgCancelled, nil)
		}
	}

	return NewResponse(o.worker.Run(ctx, url))
}

// Wait blocks until every worker started by Scrape has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// InFlight returns the number of workers that have not returned yet.
func (o *Orchestrator) InFlight() int {
	return int(o.inFlight.Load())
}

// host returns the host of url, or url itself when it does not parse.
func host(url string) string {
	u, err := neturl.Parse(url)
	if err != nil || u.Host == "" {
		return url
	}
	return u.Hostname()
}
