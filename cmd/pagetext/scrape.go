package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/fwojciec/pagetext"
)

// ScrapeCmd is the "scrape" subcommand. It is also the entry point of the
// child process started by "serve" in process isolation mode, so it writes
// exactly one JSON document: the result on stdout or an error on stderr.
type ScrapeCmd struct {
	URL string `arg:"" optional:"" help:"Page to scrape"`

	BrowserFlags `embed:""`
}

// errorDocument is written to stderr when a scrape fails.
type errorDocument struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Run executes the scrape command.
func (c *ScrapeCmd) Run(deps *Dependencies) error {
	if strings.TrimSpace(c.URL) == "" {
		return reportError(deps.Stderr, errorDocument{Error: "No URL provided"})
	}

	var worker pagetext.Worker = deps.Worker
	if worker == nil {
		worker = c.BrowserFlags.worker()
	}

	out := worker.Run(deps.Ctx, c.URL)
	if !out.Success() {
		var err error = pagetext.Errorf(pagetext.EINTERNAL, "worker returned no outcome")
		if out != nil && out.Err != nil {
			err = out.Err
		}
		return reportError(deps.Stderr, errorDocument{
			Error: pagetext.ErrorMessage(err),
			Code:  pagetext.ErrorCode(err),
		})
	}

	return json.NewEncoder(deps.Stdout).Encode(out.Result)
}

// reportError writes doc and returns errReported so main exits non-zero
// without printing again.
func reportError(w io.Writer, doc errorDocument) error {
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return err
	}
	return errReported
}
