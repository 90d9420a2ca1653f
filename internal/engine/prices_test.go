package engine

import (
	"context"
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/fetcher"
	"github.com/sells-group/recon-cli/internal/pricechange"
	"github.com/sells-group/recon-cli/internal/pricing"
	"github.com/sells-group/recon-cli/internal/store"
)

const snapshotCSV = "Price ID,Item Name,Price,location_ids,Price Group Name\n" +
	"p1,Fries,2.49,4145,PG-Wildwood\n" +
	"p1,Fries,2.59,4146,PG-Ocala\n" +
	"p2,3 Piece Tender Meal,9.99,4145,PG-Wildwood\n"

const olderSnapshotCSV = "Price ID,Item Name,Price,location_ids,Price Group Name\n" +
	"p1,Fries,1.99,4145,PG-Wildwood\n"

func priceObjects() map[string]string {
	return map[string]string{
		"price-pool/prices_2025-01-10.csv": olderSnapshotCSV,
		"price-pool/prices_2025-01-14.csv": snapshotCSV,
		"price-pool/readme.txt":            "not a snapshot",
	}
}

func TestPriceModel_NewestSnapshot(t *testing.T) {
	s, _ := newTestService(t, priceObjects(), nil)

	snap, err := s.PriceModel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "prices_2025-01-14.csv", snap.Source)
	require.Len(t, snap.Model.Items, 2)

	fries, ok := snap.Model.ItemByName("Fries")
	require.True(t, ok)
	p, ok := fries.Price("4146")
	require.True(t, ok)
	assert.InDelta(t, 2.59, p, 1e-9)

	require.Len(t, snap.Model.Locations, 2)
	assert.Equal(t, "Wildwood", snap.Model.Locations[0].DisplayName)
}

func TestPriceModel_NameMappings(t *testing.T) {
	tr := newMemTransport(priceObjects())
	s := New(testConfig(), tr, nil, WithNameMappings([]pricing.NameMapping{
		{OriginalName: "Fries", FriendlyName: "Crinkle Fries"},
	}))

	snap, err := s.PriceModel(context.Background())
	require.NoError(t, err)
	fries, ok := snap.Model.ItemByName("Fries")
	require.True(t, ok)
	assert.Equal(t, "Crinkle Fries", fries.FriendlyName)
}

func TestPriceModel_NoSnapshot(t *testing.T) {
	s, _ := newTestService(t, map[string]string{"price-pool/readme.txt": "x"}, nil)
	_, err := s.PriceModel(context.Background())
	assert.True(t, errors.Is(err, ErrNoSnapshot))
}

func TestParseEdits(t *testing.T) {
	edits, err := ParseEdits(context.Background(), strings.NewReader(
		"Item Name,Location ID,New Price\nFries,4145,2.79\n3 Piece Tender Meal,4145,10.49\nFries,4145,2.89\n"))
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.InDelta(t, 2.89, edits[pricechange.EditKey{ItemName: "Fries", LocationID: "4145"}], 1e-9, "later row wins")

	tests := []struct {
		name string
		csv  string
	}{
		{"bad price", "Item Name,Location ID,New Price\nFries,4145,abc\n"},
		{"infinite price", "Item Name,Location ID,New Price\nFries,4145,Infinity\n"},
		{"missing location", "Item Name,Location ID,New Price\nFries,,2.00\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEdits(context.Background(), strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}

var submitter = pricechange.Submitter{ID: "u1", Username: "alice", GroupName: "Florida Ops"}

func isReportURL(u string) bool {
	return strings.HasPrefix(u, bucket+"/active-price-reports/") && strings.HasSuffix(u, ".csv")
}

func TestSubmit_Success(t *testing.T) {
	st := &mockStore{}
	st.On("SaveReport", mock.Anything, mock.AnythingOfType("*pricechange.Report"), mock.MatchedBy(isReportURL)).Return(nil)
	s, tr := newTestService(t, priceObjects(), st)

	res, err := s.Submit(context.Background(), SubmitRequest{
		Submitter: submitter,
		Edits: map[pricechange.EditKey]float64{
			{ItemName: "Fries", LocationID: "4145"}:               2.79,
			{ItemName: "Fries", LocationID: "4146"}:               2.59,
			{ItemName: "3 Piece Tender Meal", LocationID: "4145"}: 10.49,
			{ItemName: "Onion Rings", LocationID: "4145"}:         3.00,
		},
	})
	require.NoError(t, err)
	assert.True(t, res.Validation.IsValid)
	assert.True(t, res.Upload.Success)

	require.NotNil(t, res.Report)
	assert.Regexp(t, `^PRICE-1736951400123-u1-[0-9a-f]{8}$`, res.Report.ID)
	assert.Equal(t, pricechange.StatusPending, res.Report.Status)
	assert.Equal(t, []string{"4145"}, res.Report.LocationIDs)
	require.Len(t, res.Changes, 2, "unchanged and unknown edits are dropped")
	assert.Equal(t, "3 Piece Tender Meal", res.Changes[0].ItemName)
	assert.Equal(t, "Wildwood", res.Changes[1].LocationName)

	body, ok := tr.puts[res.Upload.URL]
	require.True(t, ok)
	meta, changes, err := pricechange.ParseCSV(context.Background(), body)
	require.NoError(t, err)
	assert.Equal(t, res.Report.ID, meta.ReportID)
	assert.Equal(t, "Florida Ops", meta.GroupName)
	require.Len(t, changes, 2)
	assert.InDelta(t, 2.79, changes[1].NewPrice, 1e-9)

	st.AssertExpectations(t)
}

func TestSubmit_WarningsNeedConfirmation(t *testing.T) {
	st := &mockStore{}
	s, tr := newTestService(t, priceObjects(), st)
	edits := map[pricechange.EditKey]float64{{ItemName: "3 Piece Tender Meal", LocationID: "4145"}: 69.99}

	res, err := s.Submit(context.Background(), SubmitRequest{Submitter: submitter, Edits: edits})
	require.ErrorIs(t, err, ErrConfirmationRequired)
	assert.True(t, res.Validation.IsValid)
	require.Len(t, res.Validation.Warnings, 1)
	assert.Contains(t, res.Validation.Warnings[0], "9.99 → 69.99")
	assert.Nil(t, res.Report)
	assert.Empty(t, tr.puts)
	st.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything, mock.Anything)

	st.On("SaveReport", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	res, err = s.Submit(context.Background(), SubmitRequest{Submitter: submitter, Edits: edits, Confirm: true})
	require.NoError(t, err)
	assert.True(t, res.Upload.Success)
	st.AssertExpectations(t)
}

func TestSubmit_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		edits map[pricechange.EditKey]float64
		want  string
	}{
		{"no changes", map[pricechange.EditKey]float64{{ItemName: "Fries", LocationID: "4145"}: 2.49}, "No price changes detected"},
		{"negative", map[pricechange.EditKey]float64{{ItemName: "Fries", LocationID: "4145"}: -1}, "Price cannot be negative"},
		{"ceiling", map[pricechange.EditKey]float64{{ItemName: "Fries", LocationID: "4145"}: 1000}, "Price too high (max $999.99)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, tr := newTestService(t, priceObjects(), nil)
			res, err := s.Submit(context.Background(), SubmitRequest{Submitter: submitter, Edits: tt.edits, Confirm: true})
			require.ErrorIs(t, err, ErrInvalidChanges)
			assert.False(t, res.Validation.IsValid)
			assert.Contains(t, strings.Join(res.Validation.Errors, "\n"), tt.want)
			assert.Empty(t, tr.puts)
		})
	}
}

func TestSubmit_UploadFailureNotRecorded(t *testing.T) {
	st := &mockStore{}
	s, tr := newTestService(t, priceObjects(), st)
	tr.putErr = &fetcher.StatusError{Code: 403, Text: "Forbidden"}

	res, err := s.Submit(context.Background(), SubmitRequest{
		Submitter: submitter,
		Edits:     map[pricechange.EditKey]float64{{ItemName: "Fries", LocationID: "4145"}: 2.79},
	})
	require.NoError(t, err)
	assert.False(t, res.Upload.Success)
	assert.Equal(t, "Upload failed: 403 Forbidden", res.Upload.Error)
	st.AssertNotCalled(t, "SaveReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_ExplicitBaseline(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	baseline := pricing.BuildFromRows(nil)
	baseline.Items = []pricing.Item{{Name: "Fries", LocationPrices: map[string]float64{"7": 1}}}

	res, err := s.Submit(context.Background(), SubmitRequest{
		Submitter: submitter,
		Baseline:  baseline,
		Edits:     map[pricechange.EditKey]float64{{ItemName: "Fries", LocationID: "7"}: 1.5},
	})
	require.NoError(t, err)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "Location 7", res.Changes[0].LocationName)
}

func TestReportFiles(t *testing.T) {
	s, tr := newTestService(t, priceObjects(), nil)
	res, err := s.Submit(context.Background(), SubmitRequest{
		Submitter: submitter,
		Edits:     map[pricechange.EditKey]float64{{ItemName: "Fries", LocationID: "4145"}: 2.79},
	})
	require.NoError(t, err)
	for u, body := range tr.puts {
		tr.objects[u] = body
	}
	tr.objects[fetcher.ObjectURL(bucket, "active-price-reports/notes.txt")] = "x"

	files, err := s.ReportFiles(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.NotNil(t, res.Report)
	assert.Equal(t, res.Report.ID, files[0].ReportID)
	assert.Equal(t, "Florida_Ops", files[0].GroupName)
	assert.Equal(t, "alice", files[0].Username)

	meta, changes, err := s.ReadReportFile(context.Background(), files[0].Name)
	require.NoError(t, err)
	assert.Equal(t, files[0].ReportID, meta.ReportID)
	assert.Len(t, changes, 1)
	assert.Equal(t, ".csv", path.Ext(files[0].Name))
}

func TestLedgerOperations(t *testing.T) {
	st := &mockStore{}
	s, _ := newTestService(t, nil, st)
	ctx := context.Background()

	report := pricechange.BuildReport([]pricechange.Change{
		{ItemName: "Fries", LocationID: "4145", LocationName: "Wildwood", OldPrice: 2.49, NewPrice: 2.79, Timestamp: fixedNow},
	}, submitter, []string{"4145"}, fixedNow)
	st.On("GetReport", mock.Anything, report.ID).Return(&store.Record{Report: *report}, nil)
	st.On("GetReport", mock.Anything, "missing").Return(nil, store.ErrNotFound)
	st.On("UpdateStatus", mock.Anything, report.ID, pricechange.StatusSent).
		Return(&store.StatusEvent{ReportID: report.ID, From: pricechange.StatusPending, To: pricechange.StatusSent}, nil)
	st.On("ListReports", mock.Anything, store.ReportFilter{UserID: "u1"}).Return([]store.Record{{Report: *report}}, nil)

	text, err := s.ReportCSV(ctx, report.ID)
	require.NoError(t, err)
	assert.Contains(t, text, "Fries,4145,Wildwood,2.49,2.79,0.30")

	_, err = s.Report(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	ev, err := s.SetStatus(ctx, report.ID, pricechange.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, pricechange.StatusSent, ev.To)

	recs, err := s.Reports(ctx, store.ReportFilter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	st.AssertExpectations(t)
}

func TestLedgerOperations_NoStore(t *testing.T) {
	s, _ := newTestService(t, nil, nil)
	_, err := s.Reports(context.Background(), store.ReportFilter{})
	assert.Error(t, err)
	_, err = s.SetStatus(context.Background(), "x", pricechange.StatusSent)
	assert.Error(t, err)
}
