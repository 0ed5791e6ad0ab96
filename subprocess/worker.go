// Package subprocess implements pagetext.Worker by running each scrape in
// a separate OS process: the standalone "pagetext scrape" command.
package subprocess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/pagetext"
)

// Ensure Worker implements pagetext.Worker at compile time.
var _ pagetext.Worker = (*Worker)(nil)

const (
	// DefaultMaxOutput is how much malformed stdout is kept for diagnosis.
	DefaultMaxOutput = 500

	// DefaultMaxStderr is how much of the error stream is captured.
	DefaultMaxStderr = 4 << 10

	// DefaultWaitDelay bounds how long output pipes are drained after the
	// process exits or is killed.
	DefaultWaitDelay = 5 * time.Second
)

// Worker runs one process per scrape. The process receives "--" and the
// target URL after Args, must write one JSON document to stdout on
// success, and should write a JSON error document to stderr and exit
// non-zero on failure.
//
// Cancelling the context passed to Run kills the process immediately.
type Worker struct {
	// Path is the executable to run.
	Path string

	// Args are passed before the URL.
	Args []string

	// Env is the process environment. Nil inherits the current one.
	Env []string

	MaxOutput int
	MaxStderr int
	WaitDelay time.Duration
}

// NewWorker returns a Worker running path with args.
func NewWorker(path string, args ...string) *Worker {
	return &Worker{
		Path:      path,
		Args:      args,
		MaxOutput: DefaultMaxOutput,
		MaxStderr: DefaultMaxStderr,
		WaitDelay: DefaultWaitDelay,
	}
}

// Run starts the process for url, waits for it to exit and classifies
// the result.
func (w *Worker) Run(ctx context.Context, url string) *pagetext.Outcome {
	if err := ctx.Err(); err != nil {
		return pagetext.Failed(pagetext.Errorf(pagetext.ETIMEOUT, "scrape cancelled: %v", err))
	}

	args := append(slices.Clone(w.Args), "--", url)
	cmd := exec.CommandContext(ctx, w.Path, args...)
	cmd.Env = w.Env
	cmd.WaitDelay = w.WaitDelay

	var stdout bytes.Buffer
	stderr := &limitedBuffer{limit: orDefault(w.MaxStderr, DefaultMaxStderr)}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return pagetext.Failed(pagetext.Errorf(pagetext.ETIMEOUT, "worker killed: %v", ctxErr))
	}

	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		return pagetext.Failed(exitFailure(exitErr.ExitCode(), stderr.String()))
	case err != nil:
		return pagetext.Failed(pagetext.Errorf(pagetext.EINTERNAL, "running worker: %v", err))
	}

	return w.decode(stdout.Bytes())
}

// document is the union of the success and error shapes a worker prints.
type document struct {
	pagetext.ExtractionResult
	Error *string `json:"error"`
	Code  string  `json:"code"`
}

// valid reports whether the document has either shape.
func (d *document) valid() bool {
	return d.Error != nil || d.Content != nil
}

// parseDocument decodes the document a worker printed. When stdout also
// carries log lines written ahead of it, the last line is the document.
func parseDocument(out []byte) (document, bool) {
	out = bytes.TrimSpace(out)

	var doc document
	if json.Unmarshal(out, &doc) == nil && doc.valid() {
		return doc, true
	}

	i := bytes.LastIndexByte(out, '\n')
	if i < 0 {
		return document{}, false
	}
	doc = document{}
	if json.Unmarshal(out[i+1:], &doc) == nil && doc.valid() {
		return doc, true
	}
	return document{}, false
}

// decode parses the stdout of a process that exited cleanly.
func (w *Worker) decode(out []byte) *pagetext.Outcome {
	doc, ok := parseDocument(out)
	if !ok {
		return pagetext.Failed(pagetext.Errorf(pagetext.EPROTOCOL, "Failed to parse scraper output").
			With("raw_output", truncate(string(out), orDefault(w.MaxOutput, DefaultMaxOutput))))
	}

	if doc.Error != nil {
		return pagetext.Failed(pagetext.Errorf(orDefaultCode(doc.Code), "%s", *doc.Error))
	}

	result := doc.ExtractionResult
	return pagetext.Succeeded(&result)
}

// exitFailure describes a non-zero exit. When the process reported its
// own error document on stderr, that message is kept.
func exitFailure(code int, stderr string) *pagetext.Error {
	var doc struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	var err *pagetext.Error
	if json.Unmarshal([]byte(stderr), &doc) == nil && doc.Error != "" {
		err = pagetext.Errorf(orDefaultCode(doc.Code), "%s", doc.Error)
	} else {
		err = pagetext.Errorf(pagetext.EEXIT, "Scraper failed with exit code %d", code)
	}
	return err.With("exit_code", code).With("stderr", stderr)
}

func orDefaultCode(code string) string {
	if code == "" {
		return pagetext.EEXTRACT
	}
	return code
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

// truncate returns at most n bytes of s without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// limitedBuffer keeps the first limit bytes written to it and discards
// the rest, so a chatty process cannot grow memory without bound.
type limitedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	return truncate(b.buf.String(), b.limit)
}
