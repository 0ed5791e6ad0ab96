package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/rod"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Worker overrides the browser-backed worker when set.
	Worker pagetext.Worker

	// Extractor overrides the static HTML extractor when set.
	Extractor pagetext.HTMLExtractor

	// Executable is the binary run by the process-isolated worker.
	Executable string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Serve the scrape API over HTTP"`
	Scrape  ScrapeCmd  `cmd:"" help:"Scrape one URL and print the result as JSON"`
	Extract ExtractCmd `cmd:"" help:"Extract text from a static HTML file without a browser"`
}

// BrowserFlags configure the browser-backed worker.
type BrowserFlags struct {
	NavigationTimeout time.Duration `default:"60s" help:"Navigation deadline, including network settling"`
	ReadyTimeout      time.Duration `default:"60s" help:"Deadline for the ready selector to match"`
	ReadySelector     string        `default:"${ready_selector}" help:"CSS selector that signals content is present"`
	KeepWrappers      bool          `help:"Report wrapper elements that only repeat a descendant's text"`
	NoStealth         bool          `help:"Do not hide headless automation markers from the page"`
}

// worker returns the in-process browser worker configured by the flags.
func (f BrowserFlags) worker() *rod.Worker {
	return rod.NewWorker(
		rod.WithNavigationTimeout(f.NavigationTimeout),
		rod.WithReadyTimeout(f.ReadyTimeout),
		rod.WithReadySelector(f.ReadySelector),
		rod.WithStealth(!f.NoStealth),
		rod.WithExtractor(pagetext.Extractor{KeepWrappers: f.KeepWrappers}),
	)
}

// args renders the flags for a child scrape process.
func (f BrowserFlags) args() []string {
	args := []string{
		"--navigation-timeout=" + f.NavigationTimeout.String(),
		"--ready-timeout=" + f.ReadyTimeout.String(),
		"--ready-selector=" + f.ReadySelector,
	}
	if f.KeepWrappers {
		args = append(args, "--keep-wrappers")
	}
	if f.NoStealth {
		args = append(args, "--no-stealth")
	}
	return args
}
