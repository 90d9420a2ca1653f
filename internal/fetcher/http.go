package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/recon-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	RatePerSec float64
	Retry      *resilience.RetryConfig // overrides the default backoff when set
}

// AdaptiveLimiter wraps a rate.Limiter with adaptive rate adjustment.
// On success it increases the rate by 20% (up to 2x initial).
// On 429 it halves the rate (down to initial/4 minimum).
type AdaptiveLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	maxRate     rate.Limit
	minRate     rate.Limit
	currentRate rate.Limit
}

// NewAdaptiveLimiter creates an adaptive rate limiter that auto-tunes.
func NewAdaptiveLimiter(initialRate rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter:     rate.NewLimiter(initialRate, burst),
		maxRate:     initialRate * 2,
		minRate:     initialRate / 4,
		currentRate: initialRate,
	}
}

// Wait blocks until the limiter allows an event.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess increases the rate by 20%, up to 2x initial.
func (a *AdaptiveLimiter) OnSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = min(a.currentRate*1.2, a.maxRate)
	a.limiter.SetLimit(a.currentRate)
}

// OnRateLimit halves the rate on 429 responses.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.currentRate = max(a.currentRate*0.5, a.minRate)
	a.limiter.SetLimit(a.currentRate)
	zap.L().Warn("adaptive rate limit: reducing rate after 429",
		zap.Float64("new_rate", float64(a.currentRate)),
	)
}

// Limit returns the current rate limit.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.currentRate
}

// HTTPFetcher implements Transport over an S3-compatible HTTP endpoint.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	retry  resilience.RetryConfig

	mu       sync.Mutex
	limiters map[string]*AdaptiveLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "recon-cli/1.0"
	}
	if opts.RatePerSec <= 0 {
		opts.RatePerSec = 5
	}

	retry := resilience.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	retry.MaxAttempts = opts.MaxRetries

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		retry:    retry,
		limiters: make(map[string]*AdaptiveLimiter),
	}
}

func (f *HTTPFetcher) limiterFor(u *url.URL) *AdaptiveLimiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[u.Host]
	if !ok {
		burst := max(int(f.opts.RatePerSec), 1)
		lim = NewAdaptiveLimiter(rate.Limit(f.opts.RatePerSec), burst)
		f.limiters[u.Host] = lim
	}
	return lim
}

// get performs a rate-limited GET with retry on transient failures.
func (f *HTTPFetcher) get(ctx context.Context, rawURL, operation string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse url")
	}
	lim := f.limiterFor(u)

	cfg := f.retry
	cfg.OnRetry = resilience.RetryLogger("http", operation)

	return resilience.Do(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrapf(err, "%s %s", operation, rawURL), 0)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lim.OnRateLimit()
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			statusErr := eris.Errorf("%s: unexpected status %d from %s", operation, resp.StatusCode, rawURL)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
			}
			return nil, statusErr
		}

		lim.OnSuccess()
		return resp.Body, nil
	})
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := f.get(ctx, rawURL, "download")
	if err != nil {
		return nil, eris.Wrap(err, "download")
	}
	return body, nil
}

// List pages through an S3 ListObjectsV2 listing of prefix.
func (f *HTTPFetcher) List(ctx context.Context, bucketURL, prefix string) ([]string, error) {
	base := strings.TrimRight(bucketURL, "/")
	var keys []string
	token := ""
	for {
		q := url.Values{}
		q.Set("list-type", "2")
		q.Set("prefix", prefix)
		if token != "" {
			q.Set("continuation-token", token)
		}

		body, err := f.get(ctx, base+"/?"+q.Encode(), "list")
		if err != nil {
			return nil, eris.Wrap(err, "list")
		}
		page, err := parseListing(ctx, body)
		_ = body.Close()
		if err != nil {
			return nil, eris.Wrapf(err, "list %s", prefix)
		}

		keys = append(keys, page.Keys...)
		if !page.Truncated || page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	zap.L().Debug("fetcher: listed bucket",
		zap.String("prefix", prefix),
		zap.Int("keys", len(keys)),
	)
	return presentKeys(keys, prefix), nil
}

// Put uploads body with a single PUT. Uploads are not retried.
func (f *HTTPFetcher) Put(ctx context.Context, rawURL, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "create put request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))

	resp, err := f.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "put")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Text: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// StatusError is a non-2xx response to an upload.
type StatusError struct {
	Code int
	Text string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upload failed: %d %s", e.Code, e.Text)
}
