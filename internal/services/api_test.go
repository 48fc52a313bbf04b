package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/trackq/internal/shared"
	tu "github.com/desertthunder/trackq/internal/testing"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

func TestAPIClient(t *testing.T) {
	ctx := context.Background()

	t.Run("New", func(t *testing.T) {
		t.Run("Defaults", func(t *testing.T) {
			api := NewAPIClient("http://example.com", APIOptions{})

			if api.httpClient.Timeout != 30*time.Second {
				t.Errorf("expected 30s request timeout, got %v", api.httpClient.Timeout)
			}
			if api.streamClient.Timeout != 180*time.Second {
				t.Errorf("expected 180s stream timeout, got %v", api.streamClient.Timeout)
			}
			if api.retry.MaxAttempts != 3 {
				t.Errorf("expected default retry policy, got %+v", api.retry)
			}
			if api.headers.Get("User-Agent") == "" {
				t.Error("expected a default user agent")
			}
		})

		t.Run("Custom Headers", func(t *testing.T) {
			api := NewAPIClient("http://example.com", APIOptions{Headers: http.Header{"Referer": {"https://y.qq.com/"}}})
			if api.headers.Get("Referer") != "https://y.qq.com/" {
				t.Errorf("expected referer header, got %q", api.headers.Get("Referer"))
			}
		})
	})

	t.Run("GetJSON", func(t *testing.T) {
		t.Run("Successful Request With JSON Response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET method, got %s", r.Method)
				}
				if r.URL.Path != "/test" {
					t.Errorf("expected path '/test', got %s", r.URL.Path)
				}
				if r.URL.Query().Get("q") != "hello world" {
					t.Errorf("expected query q='hello world', got %q", r.URL.Query().Get("q"))
				}
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"status":"success"}`)
			}))
			defer server.Close()

			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})
			var out struct {
				Status string `json:"status"`
			}
			if err := api.GetJSON(ctx, "/test", map[string][]string{"q": {"hello world"}}, &out); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if out.Status != "success" {
				t.Errorf("expected status 'success', got %s", out.Status)
			}
		})

		t.Run("Retries 5xx Then Succeeds", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if calls.Add(1) < 3 {
					w.WriteHeader(http.StatusBadGateway)
					return
				}
				io.WriteString(w, `{}`)
			}))
			defer server.Close()

			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})
			var out map[string]any
			if err := api.GetJSON(ctx, "/", nil, &out); err != nil {
				t.Fatalf("expected success on third attempt, got %v", err)
			}
			if calls.Load() != 3 {
				t.Errorf("expected 3 calls, got %d", calls.Load())
			}
		})

		t.Run("Gives Up After Max Attempts", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusServiceUnavailable)
			}))
			defer server.Close()

			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})
			var out map[string]any
			err := api.GetJSON(ctx, "/", nil, &out)

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
				t.Fatalf("expected HTTPError 503, got %v", err)
			}
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
			if calls.Load() != 3 {
				t.Errorf("expected 3 calls, got %d", calls.Load())
			}
		})

		t.Run("4xx Is Permanent", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", http.StatusNotFound)
			}))
			defer server.Close()

			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})
			var out map[string]any
			if err := api.GetJSON(ctx, "/", nil, &out); err == nil {
				t.Fatal("expected error, got nil")
			}
			if calls.Load() != 1 {
				t.Errorf("expected 1 call, got %d", calls.Load())
			}
		})

		t.Run("Malformed JSON Is Retried", func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				io.WriteString(w, `{not json`)
			}))
			defer server.Close()

			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})
			var out map[string]any
			err := api.GetJSON(ctx, "/", nil, &out)
			if !errors.Is(err, shared.ErrMalformedResponse) {
				t.Fatalf("expected ErrMalformedResponse, got %v", err)
			}
			if calls.Load() != 3 {
				t.Errorf("expected 3 calls, got %d", calls.Load())
			}
		})

		t.Run("Network Error", func(t *testing.T) {
			rt := tu.NewMockRoundTripper(nil, errors.New("connection refused"))
			api := NewAPIClient("http://example.com", APIOptions{Retry: fastRetry(), Transport: rt})

			var out map[string]any
			if err := api.GetJSON(ctx, "/", nil, &out); err == nil {
				t.Fatal("expected error, got nil")
			}
			if rt.Calls != 3 {
				t.Errorf("expected network errors to be retried 3 times, got %d", rt.Calls)
			}
		})

		t.Run("Read Error", func(t *testing.T) {
			resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
			api := NewAPIClient("http://example.com", APIOptions{
				Retry:     RetryPolicy{MaxAttempts: 1},
				Transport: tu.NewMockRoundTripper(resp, nil),
			})

			var out map[string]any
			err := api.GetJSON(ctx, "/", nil, &out)
			if err == nil || !strings.Contains(err.Error(), "failed to read response") {
				t.Errorf("expected read error, got %v", err)
			}
		})
	})

	t.Run("Download", func(t *testing.T) {
		t.Run("Writes File", func(t *testing.T) {
			payload := tu.MP3Bytes(10)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write(payload)
			}))
			defer server.Close()

			dest := filepath.Join(t.TempDir(), "nested", "song.mp3")
			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})

			n, err := api.Download(ctx, server.URL+"/song.mp3", dest)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if n != int64(len(payload)) {
				t.Errorf("expected %d bytes, got %d", len(payload), n)
			}
			tu.AssertFileExists(t, dest)
			tu.AssertNoFile(t, dest+".part")
		})

		t.Run("Error Leaves Nothing Behind", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			}))
			defer server.Close()

			dir := t.TempDir()
			dest := filepath.Join(dir, "song.mp3")
			api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry()})

			if _, err := api.Download(ctx, server.URL, dest); err == nil {
				t.Fatal("expected error, got nil")
			}
			tu.AssertDirEmpty(t, dir)
		})

		t.Run("Redirect Limit", func(t *testing.T) {
			var server *httptest.Server
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
			}))
			defer server.Close()

			api := NewAPIClient(server.URL, APIOptions{Retry: RetryPolicy{MaxAttempts: 1}, MaxRedirects: 2})
			_, err := api.Download(ctx, server.URL+"/a", filepath.Join(t.TempDir(), "a.mp3"))
			if err == nil || !strings.Contains(err.Error(), "stopped after 2 redirects") {
				t.Errorf("expected redirect limit error, got %v", err)
			}
		})
	})

	t.Run("RateLimit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{}`)
		}))
		defer server.Close()

		api := NewAPIClient(server.URL, APIOptions{Retry: fastRetry(), RequestsPerSecond: 20})
		start := time.Now()
		for range 3 {
			var out map[string]any
			if err := api.GetJSON(ctx, "/", nil, &out); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
			t.Errorf("expected limiter to space 3 requests by ~100ms, took %v", elapsed)
		}
	})
}
