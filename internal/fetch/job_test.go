package fetch

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{url: "https://boards.greenhouse.io/acme/jobs/123", want: "greenhouse"},
		{url: "https://job-boards.greenhouse.io/acme/jobs/123", want: "greenhouse"},
		{url: "https://jobs.lever.co/acme/abc", want: "lever"},
		{url: "https://acme.wd5.myworkdayjobs.com/careers/job/1", want: "workday"},
		{url: "https://jobs.ashbyhq.com/acme/1", want: "ashby"},
		{url: "https://notgreenhouse.io.example.com/jobs", want: "generic"},
		{url: "https://careers.example.com/jobs/1", want: "generic"},
		{url: "://bad", want: "generic"},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPlatform(tt.url).Name)
		})
	}
}

func jobServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestJobFetcher_JobText(t *testing.T) {
	server := jobServer(t, `<html><body>
		<div class="job-description"><h2>Backend Engineer</h2><p>Go and PostgreSQL.</p></div>
		<form id="application-form">Upload resume</form>
	</body></html>`)
	f := NewJobFetcher(false, slog.Default())

	text, err := f.JobText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, text, "Backend Engineer")
	assert.Contains(t, text, "Go and PostgreSQL.")
	assert.NotContains(t, text, "Upload resume")
}

func TestJobFetcher_BrowserFallback(t *testing.T) {
	server := jobServer(t, `<html><body><div id="root">Loading</div></body></html>`)
	long := strings.Repeat("Distributed systems experience. ", 30)

	f := NewJobFetcher(true, slog.Default())
	f.render = func(_ context.Context, url string, _ Platform, _ time.Duration, _ *slog.Logger) (string, error) {
		assert.Equal(t, server.URL, url)
		return "<html><body><main>" + long + "</main></body></html>", nil
	}

	text, err := f.JobText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, text, "Distributed systems experience.")
}

func TestJobFetcher_BrowserFailureKeepsHTTPText(t *testing.T) {
	server := jobServer(t, `<html><body><main>Short text</main></body></html>`)
	f := NewJobFetcher(true, slog.Default())
	f.render = func(context.Context, string, Platform, time.Duration, *slog.Logger) (string, error) {
		return "", errors.New("chrome not installed")
	}

	text, err := f.JobText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Short text", text)
}

func TestJobFetcher_BrowserDisabled(t *testing.T) {
	server := jobServer(t, `<html><body><main>Short text</main></body></html>`)
	f := NewJobFetcher(false, slog.Default())
	f.render = func(context.Context, string, Platform, time.Duration, *slog.Logger) (string, error) {
		t.Fatal("browser must not be used when disabled")
		return "", nil
	}

	text, err := f.JobText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Short text", text)
}

func TestJobFetcher_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer server.Close()

	_, err := NewJobFetcher(false, nil).JobText(context.Background(), server.URL)

	var fetchErr *Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "410")
}

func TestJobFetcher_PlainTextPosting(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Senior Engineer\n\n  Go,   Kubernetes  \n"))
	}))
	defer server.Close()

	text, err := NewJobFetcher(false, nil).JobText(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer\nGo, Kubernetes", text)
}
