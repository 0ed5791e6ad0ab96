package rod

import (
	"slices"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultMaxInflight is how many requests may stay open while the network
// still counts as idle, so long-poll and beacon requests do not block
// navigation.
const DefaultMaxInflight = 2

// ignoredResources never count as in-flight requests.
var ignoredResources = []proto.NetworkResourceType{
	proto.NetworkResourceTypeWebSocket,
	proto.NetworkResourceTypeEventSource,
}

// waitNetworkIdle subscribes to page's network events and returns a
// function that blocks until no more than maxInflight requests have been
// open for quiet, or until page's context ends. Call it before navigating.
func waitNetworkIdle(page *rod.Page, quiet time.Duration, maxInflight int) func() {
	p, settle := page.WithCancel()
	tracker := newIdleTracker(quiet, maxInflight, settle)

	wait := p.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		if slices.Contains(ignoredResources, e.Type) {
			return
		}
		tracker.start(string(e.RequestID))
	}, func(e *proto.NetworkLoadingFinished) {
		tracker.finish(string(e.RequestID))
	}, func(e *proto.NetworkLoadingFailed) {
		tracker.finish(string(e.RequestID))
	})

	return func() {
		tracker.arm()
		wait()
		tracker.stop()
		settle()
	}
}

// idleTracker counts open requests and calls settle once the count has
// stayed at or below max for quiet. Any request starting or finishing
// restarts the quiet period.
type idleTracker struct {
	mu      sync.Mutex
	pending map[string]struct{}
	max     int
	quiet   time.Duration
	settle  func()
	armed   bool
	timer   *time.Timer
}

func newIdleTracker(quiet time.Duration, max int, settle func()) *idleTracker {
	return &idleTracker{
		pending: make(map[string]struct{}),
		max:     max,
		quiet:   quiet,
		settle:  settle,
	}
}

// start records a request. Redirects reuse the request ID and are counted
// once.
func (t *idleTracker) start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; ok {
		return
	}
	t.pending[id] = struct{}{}
	t.reset()
}

func (t *idleTracker) finish(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pending[id]; !ok {
		return
	}
	delete(t.pending, id)
	t.reset()
}

// arm starts watching for the quiet period.
func (t *idleTracker) arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = true
	t.reset()
}

func (t *idleTracker) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *idleTracker) inflight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// reset must be called with mu held.
func (t *idleTracker) reset() {
	if !t.armed {
		return
	}
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if len(t.pending) <= t.max {
		t.timer = time.AfterFunc(t.quiet, t.settle)
	}
}
