//go:build integration

package rod_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fwojciec/pagetext"
	"github.com/fwojciec/pagetext/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ensure Worker implements pagetext.Worker.
var _ pagetext.Worker = (*rod.Worker)(nil)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWorker_Run_ExtractsRenderedContent(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<!DOCTYPE html>
<html>
<head><title>Test Page</title></head>
<body>
<div id="app">Loading...</div>
<script>
document.getElementById('app').outerHTML =
  '<h1>Title</h1><p>Hello</p><div><span>World</span></div>';
</script>
</body>
</html>`)

	out := rod.NewWorker().Run(context.Background(), srv.URL)

	require.True(t, out.Success(), "unexpected failure: %v", out.Err)
	assert.Equal(t, []string{"Title", "Hello", "World"}, out.Result.Content)
	require.NotNil(t, out.Result.Title)
	assert.Equal(t, "Title", *out.Result.Title)
	assert.Equal(t, srv.URL+"/", out.Result.URL)
}

func TestWorker_Run_WaitsForContentCard(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<!DOCTYPE html>
<html><body>
<script>
setTimeout(() => {
  const card = document.createElement('div');
  card.setAttribute('data-card-id', '1');
  card.innerHTML = '<p>Late card</p>';
  document.body.appendChild(card);
}, 300);
</script>
</body></html>`)

	out := rod.NewWorker().Run(context.Background(), srv.URL)

	require.True(t, out.Success(), "unexpected failure: %v", out.Err)
	assert.Equal(t, []string{"Late card"}, out.Result.Content)
	assert.Nil(t, out.Result.Title)
}

func TestWorker_Run_IgnoresHiddenText(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<!DOCTYPE html>
<html><body>
<h1>Visible</h1>
<p style="display:none">Hidden</p>
</body></html>`)

	out := rod.NewWorker().Run(context.Background(), srv.URL)

	require.True(t, out.Success(), "unexpected failure: %v", out.Err)
	assert.Equal(t, []string{"Visible"}, out.Result.Content)
}

func TestWorker_Run_HiddenFirstHeadingHasNoTitle(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<!DOCTYPE html>
<html><body>
<h1 style="display:none">Menu</h1>
<h1>Deck</h1>
<p>Slide</p>
</body></html>`)

	out := rod.NewWorker().Run(context.Background(), srv.URL)

	require.True(t, out.Success(), "unexpected failure: %v", out.Err)
	assert.Nil(t, out.Result.Title)
	assert.Equal(t, []string{"Deck", "Slide"}, out.Result.Content)
}

func TestWorker_Run_ReadinessTimeout(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<html><body><p>No heading here</p></body></html>`)

	worker := rod.NewWorker(rod.WithReadyTimeout(500 * time.Millisecond))
	out := worker.Run(context.Background(), srv.URL)

	require.False(t, out.Success())
	assert.Equal(t, pagetext.ENOTREADY, pagetext.ErrorCode(out.Err))
	assert.Contains(t, pagetext.ErrorMessage(out.Err), "timeout")
}

func TestWorker_Run_UnreachableHost(t *testing.T) {
	t.Parallel()

	out := rod.NewWorker().Run(context.Background(), "http://nonexistent.invalid/")

	require.False(t, out.Success())
	assert.Equal(t, pagetext.ENAVIGATION, pagetext.ErrorCode(out.Err))
	assert.NotEmpty(t, pagetext.ErrorMessage(out.Err))
}

func TestWorker_Run_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusNotFound, `<html><body><h1>Not Found</h1></body></html>`)

	out := rod.NewWorker().Run(context.Background(), srv.URL)

	require.False(t, out.Success())
	assert.Equal(t, pagetext.ENAVIGATION, pagetext.ErrorCode(out.Err))
	assert.Contains(t, pagetext.ErrorMessage(out.Err), "HTTP 404")
}

func TestWorker_Run_NavigationTimeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
		_, _ = w.Write([]byte(`<html><body><h1>late</h1></body></html>`))
	}))
	defer srv.Close()

	worker := rod.NewWorker(rod.WithNavigationTimeout(200 * time.Millisecond))
	out := worker.Run(context.Background(), srv.URL)

	require.False(t, out.Success())
	assert.Equal(t, pagetext.ENAVIGATION, pagetext.ErrorCode(out.Err))
}

func TestWorker_Run_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := rod.NewWorker().Run(ctx, "http://example.com")

	require.False(t, out.Success())
	assert.Equal(t, pagetext.ETIMEOUT, pagetext.ErrorCode(out.Err))
}

func TestWorker_Run_SettlesWithLongPollOpen(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/poll" {
			select {
			case <-release:
			case <-r.Context().Done():
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!DOCTYPE html>
<html><body>
<h1>Live</h1>
<script>fetch('/poll');</script>
</body></html>`))
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	w := rod.NewWorker(rod.WithNavigationTimeout(10 * time.Second))
	start := time.Now()
	out := w.Run(context.Background(), srv.URL)

	require.True(t, out.Success(), "unexpected failure: %v", out.Err)
	assert.Equal(t, []string{"Live"}, out.Result.Content)
	assert.Less(t, time.Since(start), 8*time.Second)
}

func TestWorker_Run_HidesAutomation(t *testing.T) {
	t.Parallel()

	srv := serve(t, http.StatusOK, `<!DOCTYPE html>
<html><body>
<h1 id="t"></h1>
<script>document.getElementById('t').textContent = 'webdriver:' + navigator.webdriver;</script>
</body></html>`)

	out := rod.NewWorker().Run(context.Background(), srv.URL)

	require.True(t, out.Success(), "unexpected failure: %v", out.Err)
	require.Len(t, out.Result.Content, 1)
	assert.NotEqual(t, "webdriver:true", out.Result.Content[0])
}
