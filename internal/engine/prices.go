package engine

import (
	"context"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/csvmap"
	"github.com/sells-group/recon-cli/internal/field"
	"github.com/sells-group/recon-cli/internal/pricechange"
	"github.com/sells-group/recon-cli/internal/pricing"
	"github.com/sells-group/recon-cli/internal/store"
)

// Snapshot is a price model and the object it was built from.
type Snapshot struct {
	Source string         `json:"source"`
	Model  *pricing.Model `json:"model"`
}

// PriceModel builds the model from the newest .csv or .xlsx snapshot under
// the price prefix.
func (s *Service) PriceModel(ctx context.Context) (*Snapshot, error) {
	names, err := s.transport.List(ctx, s.cfg.Bucket.URL, s.cfg.Bucket.PricePrefix)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list price snapshots")
	}

	var source string
	for _, name := range names {
		switch strings.ToLower(path.Ext(name)) {
		case ".csv", ".xlsx":
			source = name
		}
		if source != "" {
			break
		}
	}
	if source == "" {
		return nil, ErrNoSnapshot
	}

	data, err := s.download(ctx, s.cfg.Bucket.PricePrefix+source)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: fetch snapshot %s", source)
	}

	var m *pricing.Model
	if strings.EqualFold(path.Ext(source), ".xlsx") {
		m, err = pricing.BuildFromXLSX(data)
	} else {
		m, err = pricing.BuildCrossLocationModel(ctx, string(data))
	}
	if err != nil {
		return nil, err
	}
	if len(s.mappings) > 0 {
		m.ApplyNameMappings(s.mappings)
	}

	s.log().Info("price model built",
		zap.String("source", source),
		zap.Int("items", len(m.Items)),
		zap.Int("locations", len(m.Locations)),
	)
	return &Snapshot{Source: source, Model: m}, nil
}

var (
	editItem     = field.From("Item Name", "item_name", "Item").As(field.TypeString)
	editLocation = field.From("Location ID", "location_id", "LocationId").As(field.TypeString)
	editPrice    = field.From("New Price", "new_price", "Price").As(field.TypeNumber)
)

// ParseEdits reads a price edit sheet with item name, location id and new
// price columns. A row with an unparseable price is an error; a later row
// for the same cell replaces an earlier one.
func ParseEdits(ctx context.Context, r io.Reader) (map[pricechange.EditKey]float64, error) {
	tbl, err := csvmap.Parse(ctx, r, csvmap.Options{HasHeader: true})
	if err != nil {
		return nil, eris.Wrap(err, "engine: parse edits")
	}
	if len(tbl.Errors) > 0 {
		return nil, eris.Wrap(tbl.Errors[0], "engine: malformed edits")
	}

	edits := make(map[pricechange.EditKey]float64, len(tbl.Rows))
	for i, row := range tbl.Rows {
		key := pricechange.EditKey{
			ItemName:   strings.TrimSpace(editItem.String(row)),
			LocationID: strings.TrimSpace(editLocation.String(row)),
		}
		if key.ItemName == "" || key.LocationID == "" {
			return nil, eris.Errorf("engine: edit row %d: item name and location id are required", i+1)
		}
		price, ok := editPrice.Number(row)
		if !ok {
			return nil, eris.Errorf("engine: edit row %d: invalid price", i+1)
		}
		edits[key] = price
	}
	return edits, nil
}

// SubmitRequest carries the edits of one price portal session.
type SubmitRequest struct {
	Edits       map[pricechange.EditKey]float64
	Submitter   pricechange.Submitter
	LocationIDs []string
	// Confirm acknowledges validation warnings.
	Confirm bool
	// Baseline is the model the edits were made against. When nil the
	// newest snapshot is loaded.
	Baseline *pricing.Model
}

// SubmitResult is the outcome of Submit. Report is nil until validation
// passes.
type SubmitResult struct {
	Changes    []pricechange.Change     `json:"changes"`
	Validation pricechange.Validation   `json:"validation"`
	Report     *pricechange.Report      `json:"report,omitempty"`
	Upload     pricechange.UploadResult `json:"upload"`
}

// Submit diffs the edits against the baseline, validates, builds the report
// and hands its CSV to the sink. A failed upload is reported in
// SubmitResult.Upload and the report is not recorded.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	baseline := req.Baseline
	if baseline == nil {
		snap, err := s.PriceModel(ctx)
		if err != nil {
			return nil, err
		}
		baseline = snap.Model
	}

	now := s.now().UTC()
	changes := pricechange.Diff(baseline.Items, req.Edits, baseline.Locations, now)
	res := &SubmitResult{
		Changes:    changes,
		Validation: pricechange.Validate(changes, s.limits),
	}
	if !res.Validation.IsValid {
		return res, eris.Wrap(ErrInvalidChanges, strings.Join(res.Validation.Errors, "; "))
	}
	if len(res.Validation.Warnings) > 0 && !req.Confirm {
		return res, ErrConfirmationRequired
	}

	locationIDs := req.LocationIDs
	if len(locationIDs) == 0 {
		locationIDs = changedLocations(changes)
	}
	report := pricechange.BuildReport(changes, req.Submitter, locationIDs, now)
	res.Report = report

	text, err := pricechange.ToCSV(report.Changes, report.Meta())
	if err != nil {
		return res, err
	}

	log := s.log().With(zap.String("report_id", report.ID))
	res.Upload = s.sink.Upload(ctx, text, report)
	if !res.Upload.Success {
		log.Warn("report not recorded: upload failed", zap.String("error", res.Upload.Error))
		return res, nil
	}

	if s.store != nil {
		if err := s.store.SaveReport(ctx, report, res.Upload.URL); err != nil {
			return res, eris.Wrap(err, "engine: record report")
		}
	}
	log.Info("report submitted", zap.Int("changes", report.TotalChanges), zap.Int("warnings", len(res.Validation.Warnings)))
	return res, nil
}

func changedLocations(changes []pricechange.Change) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range changes {
		if !seen[c.LocationID] {
			seen[c.LocationID] = true
			out = append(out, c.LocationID)
		}
	}
	sort.Strings(out)
	return out
}

// ReportFile is an uploaded report found under the report prefix.
type ReportFile struct {
	Name string `json:"name"`
	pricechange.FileInfo
}

// ReportFiles lists the uploaded reports, newest first. Objects whose names
// do not follow the report naming scheme are skipped.
func (s *Service) ReportFiles(ctx context.Context) ([]ReportFile, error) {
	names, err := s.transport.List(ctx, s.cfg.Bucket.URL, s.cfg.Bucket.ReportPrefix)
	if err != nil {
		return nil, eris.Wrap(err, "engine: list reports")
	}
	out := make([]ReportFile, 0, len(names))
	for _, name := range names {
		info, err := pricechange.ParseReportFilename(name)
		if err != nil {
			continue
		}
		out = append(out, ReportFile{Name: name, FileInfo: info})
	}
	return out, nil
}

// ReadReportFile downloads and parses an uploaded report.
func (s *Service) ReadReportFile(ctx context.Context, name string) (pricechange.Meta, []pricechange.Change, error) {
	data, err := s.download(ctx, s.cfg.Bucket.ReportPrefix+name)
	if err != nil {
		return pricechange.Meta{}, nil, eris.Wrapf(err, "engine: fetch report %s", name)
	}
	return pricechange.ParseCSV(ctx, string(data))
}

func (s *Service) ledger() (store.Store, error) {
	if s.store == nil {
		return nil, eris.New("engine: no report store configured")
	}
	return s.store, nil
}

// Report returns a recorded report.
func (s *Service) Report(ctx context.Context, id string) (*store.Record, error) {
	st, err := s.ledger()
	if err != nil {
		return nil, err
	}
	return st.GetReport(ctx, id)
}

// Reports lists recorded reports.
func (s *Service) Reports(ctx context.Context, filter store.ReportFilter) ([]store.Record, error) {
	st, err := s.ledger()
	if err != nil {
		return nil, err
	}
	return st.ListReports(ctx, filter)
}

// ReportCSV renders a recorded report in the upload format.
func (s *Service) ReportCSV(ctx context.Context, id string) (string, error) {
	rec, err := s.Report(ctx, id)
	if err != nil {
		return "", err
	}
	return pricechange.ToCSV(rec.Report.Changes, rec.Report.Meta())
}

// SetStatus moves a recorded report forward in its lifecycle.
func (s *Service) SetStatus(ctx context.Context, id string, to pricechange.Status) (*store.StatusEvent, error) {
	st, err := s.ledger()
	if err != nil {
		return nil, err
	}
	ev, err := st.UpdateStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}
	s.log().Info("report status changed",
		zap.String("report_id", id),
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)),
	)
	return ev, nil
}
