// Package aggregate fetches and parses export files one at a time and
// concatenates their rows.
package aggregate

import (
	"context"
	"path"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/csvmap"
	"github.com/sells-group/recon-cli/internal/fetcher"
	"github.com/sells-group/recon-cli/internal/field"
)

// Progress is reported before each file is fetched.
type Progress struct {
	Index   int // 1-based
	Total   int
	File    string
	Percent float64
}

// ProgressFunc receives progress updates.
type ProgressFunc func(Progress)

// FileError records a file that was skipped in lenient mode.
type FileError struct {
	URL string
	Err error
}

// Result is the outcome of a lenient aggregation.
type Result struct {
	Rows        []field.Row
	Columns     []string
	Files       int
	Failed      []FileError
	ParseErrors int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Aggregator) { a.progress = fn }
}

// WithCSVOptions overrides the parser options.
func WithCSVOptions(opts csvmap.Options) Option {
	return func(a *Aggregator) { a.csv = opts }
}

// Aggregator processes files strictly sequentially so that memory stays
// bounded by one file and the store never sees a burst of connections.
type Aggregator struct {
	fetcher  fetcher.Fetcher
	csv      csvmap.Options
	progress ProgressFunc
}

// New creates an Aggregator reading through f.
func New(f fetcher.Fetcher, opts ...Option) *Aggregator {
	a := &Aggregator{fetcher: f, csv: csvmap.DefaultOptions()}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate concatenates the rows of every file in order. The first fetch
// failure is returned.
func (a *Aggregator) Aggregate(ctx context.Context, urls []string) ([]field.Row, error) {
	var rows []field.Row
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "aggregate: cancelled")
		}
		a.report(i, len(urls), u)

		tbl, err := a.load(ctx, u)
		if err != nil {
			return nil, eris.Wrapf(err, "aggregate: %s", path.Base(u))
		}
		rows = append(rows, tbl.Rows...)
	}
	return rows, nil
}

// AggregateLenient is Aggregate for the report-generation flow: a file that
// fails to download or parse is logged and skipped. Only cancellation
// aborts the run.
func (a *Aggregator) AggregateLenient(ctx context.Context, urls []string) (*Result, error) {
	log := zap.L().With(zap.String("component", "aggregate"))
	res := &Result{}
	seen := make(map[string]bool)

	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return res, eris.Wrap(err, "aggregate: cancelled")
		}
		a.report(i, len(urls), u)

		start := time.Now()
		tbl, err := a.load(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return res, eris.Wrap(ctx.Err(), "aggregate: cancelled")
			}
			log.Warn("skipping file", zap.String("file", path.Base(u)), zap.Error(err))
			res.Failed = append(res.Failed, FileError{URL: u, Err: err})
			continue
		}

		if len(tbl.Errors) > 0 {
			log.Warn("malformed records skipped",
				zap.String("file", path.Base(u)),
				zap.Int("errors", len(tbl.Errors)),
			)
			res.ParseErrors += len(tbl.Errors)
		}

		for _, c := range tbl.Columns {
			if !seen[c] {
				seen[c] = true
				res.Columns = append(res.Columns, c)
			}
		}
		res.Rows = append(res.Rows, tbl.Rows...)
		res.Files++

		log.Debug("file aggregated",
			zap.String("file", path.Base(u)),
			zap.Int("rows", len(tbl.Rows)),
			zap.Duration("elapsed", time.Since(start)),
		)
	}

	log.Info("aggregation complete",
		zap.Int("files", res.Files),
		zap.Int("failed", len(res.Failed)),
		zap.Int("rows", len(res.Rows)),
	)
	return res, nil
}

func (a *Aggregator) load(ctx context.Context, u string) (*csvmap.Table, error) {
	body, err := a.fetcher.Download(ctx, u)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	return csvmap.Parse(ctx, body, a.csv)
}

func (a *Aggregator) report(i, total int, u string) {
	if a.progress == nil {
		return
	}
	a.progress(Progress{
		Index:   i + 1,
		Total:   total,
		File:    path.Base(u),
		Percent: float64(i) / float64(total) * 100,
	})
}
