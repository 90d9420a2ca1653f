package fetcher

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/url"
	"path"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/resilience"
)

// FTPOptions configures the FTP fetcher.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPFetcher implements Transport for buckets served over FTP.
type FTPFetcher struct {
	opts FTPOptions
}

// NewFTPFetcher creates a new FTPFetcher with the given options.
func NewFTPFetcher(opts FTPOptions) *FTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPFetcher{opts: opts}
}

// parseFTPURL extracts host (with port), path and credentials from an FTP URL.
func parseFTPURL(rawURL string) (host, p, user, pass string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", "", eris.Wrap(err, "parse ftp url")
	}
	if u.Scheme != "ftp" {
		return "", "", "", "", eris.Errorf("expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	user, pass = "anonymous", "anonymous@"
	if u.User != nil {
		user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			pass = pw
		}
	}

	p = u.Path
	if p == "" {
		p = "/"
	}
	return host, p, user, pass, nil
}

func (f *FTPFetcher) dial(ctx context.Context, rawURL string) (*ftp.ServerConn, string, error) {
	host, p, user, pass, err := parseFTPURL(rawURL)
	if err != nil {
		return nil, "", err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", p))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(f.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, "", resilience.NewTransientError(eris.Wrap(err, "ftp dial"), 0)
	}
	if err := conn.Login(user, pass); err != nil {
		_ = conn.Quit()
		return nil, "", eris.Wrap(err, "ftp login")
	}
	return conn, p, nil
}

// ftpConnReader closes the FTP response and the connection together.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "close ftp response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "quit ftp connection")
	}
	return nil
}

// Download retrieves the file. The caller must close the returned reader to
// release the connection.
func (f *FTPFetcher) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("ftp", "download")

	return resilience.Do(ctx, cfg, func(ctx context.Context) (io.ReadCloser, error) {
		conn, p, err := f.dial(ctx, ftpURL)
		if err != nil {
			return nil, err
		}
		resp, err := conn.Retr(p)
		if err != nil {
			_ = conn.Quit()
			return nil, eris.Wrap(err, "ftp retrieve")
		}
		return &ftpConnReader{resp: resp, conn: conn}, nil
	})
}

// List names the files in the directory the prefix points at.
func (f *FTPFetcher) List(ctx context.Context, bucketURL, prefix string) ([]string, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("ftp", "list")

	names, err := resilience.Do(ctx, cfg, func(ctx context.Context) ([]string, error) {
		conn, root, err := f.dial(ctx, bucketURL)
		if err != nil {
			return nil, err
		}
		defer conn.Quit() //nolint:errcheck

		entries, err := conn.NameList(path.Join(root, prefix))
		if err != nil {
			return nil, eris.Wrap(err, "ftp name list")
		}
		return entries, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "list %s", prefix)
	}

	keys := make([]string, 0, len(names))
	for _, n := range names {
		keys = append(keys, prefix+path.Base(n))
	}
	return presentKeys(sortedKeys(keys), prefix), nil
}

// Put stores body at the URL path. Uploads are not retried.
func (f *FTPFetcher) Put(ctx context.Context, ftpURL, _ string, body []byte) error {
	conn, p, err := f.dial(ctx, ftpURL)
	if err != nil {
		return err
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Stor(p, bytes.NewReader(body)); err != nil {
		return eris.Wrap(err, "ftp store")
	}
	return nil
}
