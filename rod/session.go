package rod

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/utils"
)

// Session is one isolated headless Chrome instance used to render a
// single page. A Session is never shared between requests.
//
// Close must be called exactly once the Session is no longer needed; it is
// safe to call more than once.
type Session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	mu       sync.Mutex
	closed   atomic.Bool
}

// SessionOption configures a Session launch.
type SessionOption func(*launcher.Launcher)

// WithBrowserBin sets the Chrome/Chromium binary to launch instead of the
// one rod finds or downloads.
func WithBrowserBin(path string) SessionOption {
	return func(l *launcher.Launcher) {
		if path != "" {
			l.Bin(path)
		}
	}
}

// NewSession launches a fresh browser with stability flags and connects
// to it. The launcher process is killed if connecting fails.
func NewSession(opts ...SessionOption) (*Session, error) {
	lnchr := launcher.New().
		NoSandbox(true).
		Set("disable-setuid-sandbox").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-dev-shm-usage").
		Set("disable-hang-monitor").
		Leakless(true).
		Headless(true)
	for _, opt := range opts {
		opt(lnchr)
	}
	if lnchr.Get(flags.Bin) == "" {
		bin, err := browserBin()
		if err != nil {
			return nil, fmt.Errorf("resolving browser: %w", err)
		}
		lnchr.Bin(bin)
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		lnchr.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	return &Session{browser: browser, launcher: lnchr}, nil
}

// browserBin returns the browser rod launches by default, downloading it
// on first use. Download progress is discarded so that stdout of the
// scrape command carries nothing but its result document.
func browserBin() (string, error) {
	b := launcher.NewBrowser()
	b.Logger = utils.LoggerQuiet
	return b.Get()
}

// Browser returns the session's browser, or nil once the session is closed.
func (s *Session) Browser() *rod.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// Close shuts the browser down and kills the launcher process.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.launcher = nil
	}
	return err
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

// LauncherPID returns the process ID of the browser launcher, or 0 once
// the session is closed. This method exists for testing purposes to
// verify proper cleanup.
func (s *Session) LauncherPID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launcher == nil {
		return 0
	}
	return s.launcher.PID()
}
