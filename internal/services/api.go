// Shared JSON transport for the platform clients
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/trackq/internal/shared"
)

const (
	defaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxErrorBodyPreview = 512
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s: %s returned status %d: %s", shared.ErrAPIRequest, e.URL, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is match [shared.ErrAPIRequest].
func (e *HTTPError) Unwrap() error {
	return shared.ErrAPIRequest
}

// APIClient performs rate-limited, retried HTTP requests against one base URL.
type APIClient struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	limiter      *rate.Limiter
	retry        RetryPolicy
	headers      http.Header
}

// APIOptions configures an [APIClient]. Zero values fall back to the defaults noted on each field.
type APIOptions struct {
	RequestTimeout    time.Duration // 30s
	StreamTimeout     time.Duration // 180s
	MaxRedirects      int           // 5
	RequestsPerSecond float64       // unlimited when <= 0
	Retry             RetryPolicy
	Headers           http.Header
	Transport         http.RoundTripper
}

// NewHTTPClient creates an [http.Client] with a timeout that follows at most maxRedirects redirects.
func NewHTTPClient(timeout time.Duration, maxRedirects int, transport http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// NewAPIClient creates a new API client for baseURL.
func NewAPIClient(baseURL string, opts APIOptions) *APIClient {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.StreamTimeout <= 0 {
		opts.StreamTimeout = 180 * time.Second
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 5
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultRetryPolicy()
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	headers := http.Header{}
	headers.Set("User-Agent", defaultUserAgent)
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &APIClient{
		baseURL:      baseURL,
		httpClient:   NewHTTPClient(opts.RequestTimeout, opts.MaxRedirects, opts.Transport),
		streamClient: NewHTTPClient(opts.StreamTimeout, opts.MaxRedirects, opts.Transport),
		limiter:      rate.NewLimiter(limit, 1),
		retry:        opts.Retry,
		headers:      headers,
	}
}

// GetJSON issues GET baseURL+path?query and decodes the JSON body into out, retrying transient failures.
func (a *APIClient) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	fullURL := a.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	return a.retry.Do(ctx, func() error {
		body, err := a.get(ctx, a.httpClient, fullURL)
		if err != nil {
			return err
		}
		defer body.Close()

		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w from %s: %v", shared.ErrMalformedResponse, fullURL, err)
		}
		return nil
	})
}

// Download streams rawURL to dest, writing through a temporary file that is renamed into place on success.
func (a *APIClient) Download(ctx context.Context, rawURL, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create destination directory: %w", err)
	}

	var written int64
	err := a.retry.Do(ctx, func() error {
		body, err := a.get(ctx, a.streamClient, rawURL)
		if err != nil {
			return err
		}
		defer body.Close()

		tmp := dest + ".part"
		f, err := os.Create(tmp)
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}

		n, copyErr := io.Copy(f, body)
		closeErr := f.Close()
		if copyErr != nil || closeErr != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to write %s: %w", dest, errors.Join(copyErr, closeErr))
		}

		if err := os.Rename(tmp, dest); err != nil {
			os.Remove(tmp)
			return fmt.Errorf("failed to move download into place: %w", err)
		}
		written = n
		return nil
	})
	return written, err
}

// get waits for the limiter and performs the request. The caller closes the returned body.
func (a *APIClient) get(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range a.headers {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyPreview))
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: rawURL, Body: string(preview)}
	}

	return resp.Body, nil
}
