package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/resilience"
)

func newTestFetcher() *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent:  "test-agent",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RatePerSec: 100,
		Retry:      &resilience.RetryConfig{InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond},
	})
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("a,b\n1,2\n"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL+"/data.csv")
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestDownload_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestDownload_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestFetcher().Download(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownload_RateLimitedSlowsLimiter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, int32(2), calls.Load())
}

func TestList_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("list-type"))
		assert.Equal(t, "price-pool/", q.Get("prefix"))
		if q.Get("continuation-token") == "" {
			w.Write([]byte(`<ListBucketResult><IsTruncated>true</IsTruncated>` +
				`<NextContinuationToken>next</NextContinuationToken>` +
				`<Contents><Key>price-pool/a.csv</Key></Contents></ListBucketResult>`))
			return
		}
		w.Write([]byte(`<ListBucketResult><IsTruncated>false</IsTruncated>` +
			`<Contents><Key>price-pool/b.csv</Key></Contents></ListBucketResult>`))
	}))
	defer srv.Close()

	names, err := newTestFetcher().List(context.Background(), srv.URL, "price-pool/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.csv", "a.csv"}, names)
}

func TestPut(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "text/csv", r.Header.Get("Content-Type"))
		got, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newTestFetcher().Put(context.Background(), srv.URL+"/r.csv", "text/csv", []byte("x,y\n"))
	require.NoError(t, err)
	assert.Equal(t, "x,y\n", string(got))
}

func TestPut_FailureNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := newTestFetcher().Put(context.Background(), srv.URL+"/r.csv", "text/csv", []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload failed: 403 Forbidden")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestAdaptiveLimiter(t *testing.T) {
	lim := NewAdaptiveLimiter(10, 10)
	lim.OnRateLimit()
	assert.InDelta(t, 5.0, float64(lim.Limit()), 0.001)
	lim.OnRateLimit()
	lim.OnRateLimit()
	assert.InDelta(t, 2.5, float64(lim.Limit()), 0.001, "floored at a quarter of the initial rate")
	for range 20 {
		lim.OnSuccess()
	}
	assert.InDelta(t, 20.0, float64(lim.Limit()), 0.001, "capped at twice the initial rate")
}

func TestNew(t *testing.T) {
	tr, err := New("https://bucket.example.com", Options{})
	require.NoError(t, err)
	assert.IsType(t, &HTTPFetcher{}, tr)

	tr, err = New("ftp://files.example.com/exports", Options{})
	require.NoError(t, err)
	assert.IsType(t, &FTPFetcher{}, tr)

	_, err = New("s3://bucket", Options{})
	assert.Error(t, err)
}
