package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/pricechange"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var reportCols = []string{
	"id", "user_id", "username", "group_name", "location_ids", "submitted_at",
	"status", "total_changes", "changes", "upload_url", "updated_at",
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS reports`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)
	r := testReport("u1", "Florida", at)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reports`).
		WithArgs(r.ID, "u1", "user-u1", "Florida", pgxmock.AnyArg(), at, "pending", 2, pgxmock.AnyArg(), "https://x/y.csv", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO report_events`).
		WithArgs(pgxmock.AnyArg(), r.ID, "", "pending", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveReport(context.Background(), r, "https://x/y.csv"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport_InsertFails(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	r := testReport("u1", "Florida", time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO reports`).WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := s.SaveReport(context.Background(), r, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert report")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM reports WHERE id = \$1`).
		WithArgs("PRICE-1-u1").
		WillReturnRows(pgxmock.NewRows(reportCols).AddRow(
			"PRICE-1-u1", "u1", "alice", "Florida", []byte(`["4145"]`), at,
			"sent", 1, []byte(`[{"itemName":"Fries","locationId":"4145","locationName":"Wildwood","oldPrice":2.49,"newPrice":2.79,"timestamp":"2025-01-15T14:30:00Z"}]`),
			"https://x/y.csv", at,
		))

	rec, err := s.GetReport(context.Background(), "PRICE-1-u1")
	require.NoError(t, err)
	assert.Equal(t, pricechange.StatusSent, rec.Report.Status)
	assert.Equal(t, []string{"4145"}, rec.Report.LocationIDs)
	require.Len(t, rec.Report.Changes, 1)
	assert.InDelta(t, 2.79, rec.Report.Changes[0].NewPrice, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM reports WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetReport(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReports_Filters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM reports WHERE true AND status = \$1 AND user_id = \$2 ORDER BY submitted_at DESC, id DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("pending", "u1", 10, 20).
		WillReturnRows(pgxmock.NewRows(reportCols))

	recs, err := s.ListReports(context.Background(), ReportFilter{
		Status: pricechange.StatusPending, UserID: "u1", Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM reports WHERE id = \$1 FOR UPDATE`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("pending"))
	mock.ExpectExec(`UPDATE reports SET status = \$1`).
		WithArgs("sent", pgxmock.AnyArg(), "r1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO report_events`).
		WithArgs(pgxmock.AnyArg(), "r1", "pending", "sent", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	ev, err := s.UpdateStatus(context.Background(), "r1", pricechange.StatusSent)
	require.NoError(t, err)
	assert.Equal(t, pricechange.StatusPending, ev.From)
	assert.Equal(t, pricechange.StatusSent, ev.To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus_InvalidTransition(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM reports WHERE id = \$1 FOR UPDATE`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("archived"))
	mock.ExpectRollback()

	_, err := s.UpdateStatus(context.Background(), "r1", pricechange.StatusSent)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricechange.ErrInvalidTransition))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateStatus_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM reports`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateStatus(context.Background(), "missing", pricechange.StatusSent)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StatusEvents(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, report_id, from_status, to_status, at FROM report_events WHERE report_id = \$1`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "report_id", "from_status", "to_status", "at"}).
			AddRow("e1", "r1", "", "pending", at).
			AddRow("e2", "r1", "pending", "sent", at.Add(time.Minute)))

	events, err := s.StatusEvents(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, pricechange.StatusSent, events[1].To)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}
