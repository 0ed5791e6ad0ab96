package subprocess_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/subprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "PAGETEXT_HELPER_MODE"

// TestMain lets the test binary double as the worker process.
func TestMain(m *testing.M) {
	if mode := os.Getenv(helperEnv); mode != "" {
		os.Exit(helper(mode, os.Args[len(os.Args)-1]))
	}
	os.Exit(m.Run())
}

func helper(mode, url string) int {
	switch mode {
	case "success":
		fmt.Printf(`{"title":"Title","url":%q,"content":["Title","Hello"]}`+"\n", url)
	case "empty":
		fmt.Printf(`{"title":null,"url":%q,"content":[]}`, url)
	case "failure":
		fmt.Fprintln(os.Stderr, `{"error":"net::ERR_NAME_NOT_RESOLVED","code":"navigation"}`)
		return 1
	case "crash":
		fmt.Fprintln(os.Stderr, "panic: boom")
		return 2
	case "malformed":
		fmt.Print("<html>" + strings.Repeat("x", 2000))
	case "wrong-shape":
		fmt.Print(`{"foo":"bar"}`)
	case "error-stdout":
		fmt.Print(`{"error":"readiness timeout","code":"not_ready"}`)
	case "noisy":
		fmt.Fprint(os.Stderr, strings.Repeat("e", 100_000))
		return 3
	case "launcher-log":
		fmt.Println("[launcher.Browser]2024/01/02 15:04:05 Download: https://storage.googleapis.com/chromium.zip")
		fmt.Println("[launcher.Browser]2024/01/02 15:04:09 Downloaded: /root/.cache/rod/browser/chromium")
		fmt.Printf(`{"title":"T","url":%q,"content":["T"]}`+"\n", url)
	case "log-only":
		fmt.Println("[launcher.Browser] Download: https://storage.googleapis.com/chromium.zip")
		fmt.Println("done")
	case "hang":
		time.Sleep(time.Minute)
	case "args":
		fmt.Printf(`{"url":%q,"content":[%q]}`, url, strings.Join(os.Args[1:], " "))
	}
	return 0
}

func newWorker(mode string) *subprocess.Worker {
	w := subprocess.NewWorker(os.Args[0])
	w.Env = append(os.Environ(), helperEnv+"="+mode)
	return w
}

func TestWorker_Run(t *testing.T) {
	t.Parallel()

	t.Run("decodes the result document", func(t *testing.T) {
		t.Parallel()

		out := newWorker("success").Run(context.Background(), "https://example.com/")

		require.True(t, out.Success(), "unexpected failure: %v", out.Err)
		assert.Equal(t, "https://example.com/", out.Result.URL)
		assert.Equal(t, []string{"Title", "Hello"}, out.Result.Content)
		require.NotNil(t, out.Result.Title)
		assert.Equal(t, "Title", *out.Result.Title)
	})

	t.Run("decodes an empty result", func(t *testing.T) {
		t.Parallel()

		out := newWorker("empty").Run(context.Background(), "https://example.com/")

		require.True(t, out.Success(), "unexpected failure: %v", out.Err)
		assert.Empty(t, out.Result.Content)
		assert.Nil(t, out.Result.Title)
	})

	t.Run("passes the URL after the argument terminator", func(t *testing.T) {
		t.Parallel()

		w := newWorker("args")
		w.Args = []string{"scrape", "--ready-timeout=5s"}
		out := w.Run(context.Background(), "-not-a-flag")

		require.True(t, out.Success(), "unexpected failure: %v", out.Err)
		assert.Equal(t, "-not-a-flag", out.Result.URL)
		assert.Equal(t, []string{"scrape --ready-timeout=5s -- -not-a-flag"}, out.Result.Content)
	})

	t.Run("reports the worker's own error document", func(t *testing.T) {
		t.Parallel()

		out := newWorker("failure").Run(context.Background(), "https://nonexistent.invalid/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.ENAVIGATION, pagetext.ErrorCode(out.Err))
		assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", pagetext.ErrorMessage(out.Err))
		assert.Equal(t, 1, pagetext.ErrorDiagnostics(out.Err)["exit_code"])
	})

	t.Run("reports abnormal exit with exit code and stderr", func(t *testing.T) {
		t.Parallel()

		out := newWorker("crash").Run(context.Background(), "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.EEXIT, pagetext.ErrorCode(out.Err))
		assert.Equal(t, "Scraper failed with exit code 2", pagetext.ErrorMessage(out.Err))
		diag := pagetext.ErrorDiagnostics(out.Err)
		assert.Equal(t, 2, diag["exit_code"])
		assert.Equal(t, "panic: boom\n", diag["stderr"])
	})

	t.Run("bounds captured stderr", func(t *testing.T) {
		t.Parallel()

		out := newWorker("noisy").Run(context.Background(), "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.EEXIT, pagetext.ErrorCode(out.Err))
		stderr, ok := pagetext.ErrorDiagnostics(out.Err)["stderr"].(string)
		require.True(t, ok)
		assert.Len(t, stderr, subprocess.DefaultMaxStderr)
	})

	t.Run("reports malformed output with a bounded excerpt", func(t *testing.T) {
		t.Parallel()

		out := newWorker("malformed").Run(context.Background(), "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.EPROTOCOL, pagetext.ErrorCode(out.Err))
		assert.Equal(t, "Failed to parse scraper output", pagetext.ErrorMessage(out.Err))
		raw, ok := pagetext.ErrorDiagnostics(out.Err)["raw_output"].(string)
		require.True(t, ok)
		assert.Len(t, raw, subprocess.DefaultMaxOutput)
		assert.True(t, strings.HasPrefix(raw, "<html>xxx"))
	})

	t.Run("skips log lines printed ahead of the result", func(t *testing.T) {
		t.Parallel()

		out := newWorker("launcher-log").Run(context.Background(), "https://x")

		require.True(t, out.Success(), "unexpected failure: %v", out.Err)
		assert.Equal(t, "https://x", out.Result.URL)
		assert.Equal(t, []string{"T"}, out.Result.Content)
	})

	t.Run("reports log lines without a result as malformed", func(t *testing.T) {
		t.Parallel()

		out := newWorker("log-only").Run(context.Background(), "https://x")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.EPROTOCOL, pagetext.ErrorCode(out.Err))
	})

	t.Run("reports JSON of the wrong shape as malformed", func(t *testing.T) {
		t.Parallel()

		out := newWorker("wrong-shape").Run(context.Background(), "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.EPROTOCOL, pagetext.ErrorCode(out.Err))
		assert.Equal(t, `{"foo":"bar"}`, pagetext.ErrorDiagnostics(out.Err)["raw_output"])
	})

	t.Run("reports an error document on stdout as a failure", func(t *testing.T) {
		t.Parallel()

		out := newWorker("error-stdout").Run(context.Background(), "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.ENOTREADY, pagetext.ErrorCode(out.Err))
		assert.Equal(t, "readiness timeout", pagetext.ErrorMessage(out.Err))
	})

	t.Run("kills the process when the context is cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		start := time.Now()
		out := newWorker("hang").Run(ctx, "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.ETIMEOUT, pagetext.ErrorCode(out.Err))
		assert.Less(t, time.Since(start), 10*time.Second, "hung worker should be killed")
	})

	t.Run("fails without starting when already cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		out := newWorker("success").Run(ctx, "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.ETIMEOUT, pagetext.ErrorCode(out.Err))
	})

	t.Run("reports a missing executable as internal", func(t *testing.T) {
		t.Parallel()

		w := subprocess.NewWorker("/nonexistent/pagetext")
		out := w.Run(context.Background(), "https://example.com/")

		require.False(t, out.Success())
		assert.Equal(t, pagetext.EINTERNAL, pagetext.ErrorCode(out.Err))
	})
}
