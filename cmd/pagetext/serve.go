package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fwojciec/pagetext"
	pthttp "github.com/fwojciec/pagetext/http"
	"github.com/fwojciec/pagetext/scrape"
	"github.com/fwojciec/pagetext/subprocess"
	ptlog "github.com/fwojciec/pagetext/zerolog"
)

// Worker isolation modes.
const (
	IsolationProcess   = "process"
	IsolationInProcess = "inprocess"
)

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Host        string        `help:"Interface to listen on"`
	Port        int           `default:"3001" env:"PORT" help:"Port to listen on"`
	Timeout     time.Duration `default:"2m" env:"PAGETEXT_TIMEOUT" help:"Outer deadline for one scrape"`
	Isolation   string        `default:"process" enum:"process,inprocess" env:"PAGETEXT_ISOLATION" help:"Run each scrape in a child process or in this process"`
	MaxSessions int64         `default:"4" help:"Maximum concurrent browser sessions (0 for no limit)"`
	Rate        float64       `default:"0" help:"Scrapes per second per host (0 disables pacing)"`
	LogLevel    string        `default:"info" env:"PAGETEXT_LOG_LEVEL" help:"Log level"`
	LogFormat   string        `default:"json" enum:"json,console" help:"Log format"`

	BrowserFlags `embed:""`
}

// Run executes the serve command.
func (c *ServeCmd) Run(deps *Dependencies) error {
	logger, err := ptlog.NewLogger(deps.Stderr, c.LogLevel, c.LogFormat)
	if err != nil {
		return err
	}

	worker, err := c.worker(deps)
	if err != nil {
		return err
	}

	orchestrator := scrape.NewOrchestrator(
		ptlog.NewLoggingWorker(worker, logger),
		scrape.WithTimeout(c.Timeout),
		scrape.WithMaxSessions(c.MaxSessions),
		scrape.WithLimiter(scrape.NewHostPacer(c.Rate)),
		scrape.WithLogger(logger),
	)

	server := pthttp.NewServer(orchestrator, logger)
	if err := server.Open(net.JoinHostPort(c.Host, strconv.Itoa(c.Port))); err != nil {
		return err
	}

	logger.Info().
		Str("isolation", c.Isolation).
		Dur("timeout", c.Timeout).
		Int64("max_sessions", c.MaxSessions).
		Msg("starting")

	return server.Run(deps.Ctx)
}

// worker selects the worker implementation for the isolation mode.
func (c *ServeCmd) worker(deps *Dependencies) (pagetext.Worker, error) {
	if deps.Worker != nil {
		return deps.Worker, nil
	}

	if c.Isolation == IsolationInProcess {
		return c.BrowserFlags.worker(), nil
	}

	exe := deps.Executable
	if exe == "" {
		var err error
		if exe, err = os.Executable(); err != nil {
			return nil, fmt.Errorf("locating executable: %w", err)
		}
	}
	args := append([]string{"scrape"}, c.BrowserFlags.args()...)
	return subprocess.NewWorker(exe, args...), nil
}
