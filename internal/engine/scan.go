package engine

import (
	"bytes"
	"context"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/aggregate"
	"github.com/sells-group/recon-cli/internal/csvmap"
	"github.com/sells-group/recon-cli/internal/directory"
	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/filedate"
	"github.com/sells-group/recon-cli/internal/recon"
)

// FileQuery selects data files by report type and date window.
type FileQuery struct {
	Profile string
	Window  filedate.Window
}

// Files lists the data prefix. With a profile and a complete window only the
// matching files are returned; with neither, the full listing.
func (s *Service) Files(ctx context.Context, q FileQuery) ([]string, error) {
	names, err := s.transport.List(ctx, s.cfg.Bucket.URL, s.cfg.Bucket.DataPrefix)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list data files")
	}
	if q.Profile == "" && q.Window.Start.IsZero() && q.Window.End.IsZero() {
		return names, nil
	}
	prefix := q.Profile
	if cfg, ok := s.profiles.Get(q.Profile); ok {
		prefix = cfg.FilePrefix
	}
	return filedate.Select(names, q.Window, prefix), nil
}

// Locations loads the location reference list with test stores removed.
func (s *Service) Locations(ctx context.Context) ([]recon.Location, error) {
	data, err := s.download(ctx, s.cfg.Bucket.LocationFile)
	if err != nil {
		return nil, eris.Wrap(err, "engine: fetch locations")
	}
	locs, err := recon.LoadLocations(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return recon.WithoutTestLocations(locs), nil
}

// Directory returns the employee directory, loading it on first use.
func (s *Service) Directory(ctx context.Context) (directory.Directory, error) {
	return s.directory.GetOrPopulate(ctx, func(ctx context.Context) (directory.Directory, error) {
		body, err := s.transport.Download(ctx, s.objectURL(s.cfg.Bucket.EmployeeFile))
		if err != nil {
			return nil, eris.Wrap(err, "engine: fetch employee directory")
		}
		defer body.Close() //nolint:errcheck
		return directory.Load(ctx, body)
	})
}

// ScanRequest describes one report-generation run.
type ScanRequest struct {
	Profile     string          `json:"profile"`
	Window      filedate.Window `json:"-"`
	LocationIDs []string        `json:"locationIds,omitempty"`
	DiscountIDs []string        `json:"discountIds,omitempty"`
	MinUsage    *float64        `json:"minUsage,omitempty"`
}

// FailedFile is a file skipped during aggregation.
type FailedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// ScanResult is the enhanced row set of a run.
type ScanResult struct {
	Profile     string       `json:"profile"`
	Files       []string     `json:"files"`
	Columns     []string     `json:"columns"`
	Rows        []field.Row  `json:"rows"`
	Failed      []FailedFile `json:"failed,omitempty"`
	ParseErrors int          `json:"parseErrors"`
}

// Scan selects the files for the request, aggregates them one at a time
// skipping failures, filters, enhances and optionally rolls up the rows.
// Missing reference data degrades the enhancement instead of failing the
// run.
func (s *Service) Scan(ctx context.Context, req ScanRequest, progress aggregate.ProgressFunc) (*ScanResult, error) {
	cfg, ok := s.profiles.Get(req.Profile)
	if !ok {
		return nil, eris.Wrapf(ErrUnknownProfile, "%q", req.Profile)
	}
	log := s.log().With(zap.String("profile", cfg.Name))

	names, err := s.transport.List(ctx, s.cfg.Bucket.URL, s.cfg.Bucket.DataPrefix)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list data files")
	}
	selected := filedate.Select(names, req.Window, cfg.FilePrefix)
	res := &ScanResult{Profile: cfg.Name, Files: selected, Rows: []field.Row{}}
	if len(selected) == 0 {
		log.Info("no files in window")
		return res, nil
	}

	urls := make([]string, len(selected))
	for i, name := range selected {
		urls[i] = s.objectURL(s.cfg.Bucket.DataPrefix + name)
	}

	agg := aggregate.New(s.transport, aggregate.WithProgress(progress))
	ar, err := agg.AggregateLenient(ctx, urls)
	if err != nil {
		return nil, err
	}
	res.ParseErrors = ar.ParseErrors
	for _, f := range ar.Failed {
		res.Failed = append(res.Failed, FailedFile{File: f.URL, Error: f.Err.Error()})
	}

	rows := csvmap.Apply(ar.Rows, cfg)
	columns := append([]string(nil), ar.Columns...)
	for _, name := range cfg.FieldNames() {
		columns = appendUnique(columns, name)
	}

	locations, err := s.Locations(ctx)
	if err != nil {
		log.Warn("location reference unavailable", zap.Error(err))
	}

	rows = s.filter.Apply(rows, recon.Criteria{
		LocationIDs: req.LocationIDs,
		DiscountIDs: req.DiscountIDs,
		Locations:   locations,
		MinUsage:    req.MinUsage,
	}, cfg)

	if len(locations) > 0 {
		rows = recon.EnhanceWithLocationNames(rows, locations, cfg)
		columns = appendUnique(columns, recon.LocationNameColumn)
	}

	if acc, ok := cfg.Employee.Get(); ok && len(acc.Sources) > 0 {
		dir, err := s.Directory(ctx)
		if err != nil {
			log.Warn("employee directory unavailable", zap.Error(err))
		} else {
			rows = recon.EnhanceWithEmployeeNames(rows, dir, cfg)
			target := recon.DefaultGuestColumn
			if g, ok := cfg.GuestName.Get(); ok && len(g.Sources) > 0 {
				target = g.Sources[0]
			}
			columns = appendUnique(columns, target)
		}
	}

	if cfg.RollUp {
		rows = recon.RollUp(rows, cfg)
		columns = append([]string(nil), recon.RollUpColumns...)
	}

	if rows == nil {
		rows = []field.Row{}
	}
	res.Rows = rows
	res.Columns = columns
	log.Info("scan complete",
		zap.Int("files", len(selected)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("rows", len(rows)),
	)
	return res, nil
}

func appendUnique(xs []string, s string) []string {
	for _, x := range xs {
		if x == s {
			return xs
		}
	}
	return append(xs, s)
}

func readAll(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	return data, eris.Wrap(err, "engine: read body")
}
