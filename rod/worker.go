package rod

import (
	"context"
	_ "embed"
	"encoding/json"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Ensure Worker implements pagetext.Worker at compile time.
var _ pagetext.Worker = (*Worker)(nil)

const (
	// DefaultNavigationTimeout bounds navigation plus network settling.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultReadyTimeout bounds the wait for ReadySelector.
	DefaultReadyTimeout = 60 * time.Second

	// DefaultIdleDuration is how long the network must stay quiet before
	// navigation is considered settled.
	DefaultIdleDuration = 500 * time.Millisecond

	// DefaultReadySelector matches a primary heading or a content card.
	DefaultReadySelector = "h1, [data-card-id]"
)

// snapshotJS walks the live DOM under document.body without recursion and
// returns it as a JSON string shaped like pagetext.TreeNode.
//
//go:embed snapshot.js
var snapshotJS string

// navigationStatusJS returns the HTTP status of the main document, or 0
// when the browser does not expose it.
const navigationStatusJS = `() => {
	const entry = performance.getEntriesByType("navigation")[0];
	return entry && entry.responseStatus ? entry.responseStatus : 0;
}`

// snapshot is the value returned by snapshotJS.
type snapshot struct {
	URL  string             `json:"url"`
	Body *pagetext.TreeNode `json:"body"`
}

// Worker renders pages in Chrome and extracts their text. Every Run
// launches its own Session and closes it before returning.
// Worker is safe for concurrent use by multiple goroutines.
type Worker struct {
	navigationTimeout time.Duration
	readyTimeout      time.Duration
	idleDuration      time.Duration
	maxInflight       int
	readySelector     string
	stealth           bool
	sessionOpts       []SessionOption
	extractor         pagetext.Extractor
}

// Option configures a Worker.
type Option func(*Worker)

// WithNavigationTimeout sets the navigation deadline.
// Defaults to DefaultNavigationTimeout (60s) if not specified.
func WithNavigationTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.navigationTimeout = d
	}
}

// WithReadyTimeout sets the deadline for the readiness selector.
// Defaults to DefaultReadyTimeout (60s) if not specified.
func WithReadyTimeout(d time.Duration) Option {
	return func(w *Worker) {
		w.readyTimeout = d
	}
}

// WithIdleDuration sets how long the network must be idle after navigation.
func WithIdleDuration(d time.Duration) Option {
	return func(w *Worker) {
		w.idleDuration = d
	}
}

// WithMaxInflight sets how many requests may stay open while the network
// counts as idle.
// Defaults to DefaultMaxInflight (2) if not specified.
func WithMaxInflight(n int) Option {
	return func(w *Worker) {
		if n >= 0 {
			w.maxInflight = n
		}
	}
}

// WithStealth toggles the evasions that hide headless automation from
// bot detection. Enabled by default.
func WithStealth(enabled bool) Option {
	return func(w *Worker) {
		w.stealth = enabled
	}
}

// WithReadySelector sets the CSS selector that signals content is present.
func WithReadySelector(selector string) Option {
	return func(w *Worker) {
		if selector != "" {
			w.readySelector = selector
		}
	}
}

// WithSessionOptions sets options applied to every launched Session.
func WithSessionOptions(opts ...SessionOption) Option {
	return func(w *Worker) {
		w.sessionOpts = append(w.sessionOpts, opts...)
	}
}

// WithExtractor sets the traversal options used inside the page.
func WithExtractor(e pagetext.Extractor) Option {
	return func(w *Worker) {
		w.extractor = e
	}
}

// NewWorker creates a new Worker.
func NewWorker(opts ...Option) *Worker {
	w := &Worker{
		navigationTimeout: DefaultNavigationTimeout,
		readyTimeout:      DefaultReadyTimeout,
		idleDuration:      DefaultIdleDuration,
		maxInflight:       DefaultMaxInflight,
		readySelector:     DefaultReadySelector,
		stealth:           true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run launches a Session, renders url, waits for it to become ready and
// extracts its text. The Session is closed on every path.
func (w *Worker) Run(ctx context.Context, url string) (out *pagetext.Outcome) {
	if err := ctx.Err(); err != nil {
		return pagetext.Failed(pagetext.Errorf(pagetext.ETIMEOUT, "scrape cancelled: %v", err))
	}

	session, err := NewSession(w.sessionOpts...)
	if err != nil {
		return pagetext.Failed(pagetext.Errorf(pagetext.EINTERNAL, "%v", err))
	}
	defer session.Close()

	defer func() {
		if r := recover(); r != nil {
			out = pagetext.Failed(pagetext.Errorf(pagetext.EEXTRACT, "extraction panicked: %v", r))
		}
	}()

	result, err := w.scrape(ctx, session, url)
	if err != nil {
		return pagetext.Failed(err)
	}
	return pagetext.Succeeded(result)
}

func (w *Worker) scrape(ctx context.Context, session *Session, url string) (*pagetext.ExtractionResult, error) {
	page, err := w.newPage(session.Browser())
	if err != nil {
		return nil, w.failure(ctx, pagetext.EINTERNAL, "opening page: %v", err)
	}
	defer page.Close()
	page = page.Context(ctx)

	if err := w.navigate(ctx, page, url); err != nil {
		return nil, err
	}

	ready := page.Timeout(w.readyTimeout)
	_, err = ready.Element(w.readySelector)
	ready.CancelTimeout()
	if err != nil {
		return nil, w.failure(ctx, pagetext.ENOTREADY, "timeout waiting for %q: %v", w.readySelector, err)
	}

	res, err := page.Eval(snapshotJS)
	if err != nil {
		return nil, w.failure(ctx, pagetext.EEXTRACT, "evaluating page: %v", err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(res.Value.Str()), &snap); err != nil {
		return nil, w.failure(ctx, pagetext.EEXTRACT, "decoding page snapshot: %v", err)
	}

	return w.extractor.Extract(snap.URL, snap.Body), nil
}

// newPage opens a blank tab, with stealth evasions installed when enabled.
func (w *Worker) newPage(browser *rod.Browser) (*rod.Page, error) {
	if w.stealth {
		return stealth.Page(browser)
	}
	return browser.Page(proto.TargetCreateTarget{})
}

// navigate loads url and waits until the network settles or the
// navigation deadline elapses.
func (w *Worker) navigate(ctx context.Context, page *rod.Page, url string) error {
	nav := page.Timeout(w.navigationTimeout)
	defer nav.CancelTimeout()

	wait := waitNetworkIdle(nav, w.idleDuration, w.maxInflight)
	if err := nav.Navigate(url); err != nil {
		return w.failure(ctx, pagetext.ENAVIGATION, "navigating to %s: %v", url, err)
	}
	wait()

	if err := nav.GetContext().Err(); err != nil {
		return w.failure(ctx, pagetext.ENAVIGATION, "navigation timeout after %s: %v", w.navigationTimeout, err)
	}

	res, err := nav.Eval(navigationStatusJS)
	if err != nil {
		return w.failure(ctx, pagetext.ENAVIGATION, "reading navigation status: %v", err)
	}
	if status := res.Value.Int(); status >= 400 {
		return pagetext.Errorf(pagetext.ENAVIGATION, "navigating to %s: HTTP %d", url, status)
	}
	return nil
}

// failure builds an error of the given code, unless ctx itself is done,
// in which case the run was cancelled from outside.
func (w *Worker) failure(ctx context.Context, code, format string, args ...any) error {
	if err := ctx.Err(); err != nil {
		return pagetext.Errorf(pagetext.ETIMEOUT, "scrape cancelled: %v", err)
	}
	return pagetext.Errorf(code, format, args...)
}
