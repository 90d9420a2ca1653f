// Package fetcher talks to the object store that holds exports, price
// snapshots and submitted reports, and parses what it downloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a single object.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Lister enumerates object keys below a prefix. Keys are returned with the
// prefix stripped, newest-first.
type Lister interface {
	List(ctx context.Context, bucketURL, prefix string) ([]string, error)
}

// Uploader stores an object.
type Uploader interface {
	Put(ctx context.Context, url, contentType string, body []byte) error
}

// Transport is the full object-store surface.
type Transport interface {
	Fetcher
	Lister
	Uploader
}

// Options configures New.
type Options struct {
	HTTP HTTPOptions
	FTP  FTPOptions
}

// New returns the transport matching the bucket URL scheme.
func New(bucketURL string, opts Options) (Transport, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: parse bucket url")
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(opts.HTTP), nil
	case "ftp":
		return NewFTPFetcher(opts.FTP), nil
	default:
		return nil, eris.Errorf("fetcher: unsupported bucket scheme %q", u.Scheme)
	}
}

// ObjectURL joins a bucket URL and a key.
func ObjectURL(bucketURL, key string) string {
	return strings.TrimRight(bucketURL, "/") + "/" + strings.TrimLeft(key, "/")
}

// presentKeys keeps keys under prefix, strips the prefix and reverses the
// listing order so that the newest names come first.
func presentKeys(keys []string, prefix string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		name := strings.TrimPrefix(k, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		out = append(out, name)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// sortedKeys returns a lexicographically ordered copy, matching the order
// an S3-style listing returns.
func sortedKeys(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	return out
}
