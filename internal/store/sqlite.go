package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/recon-cli/internal/pricechange"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id             TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	username       TEXT NOT NULL,
	group_name     TEXT NOT NULL,
	location_ids   TEXT NOT NULL,
	submitted_at   DATETIME NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	total_changes  INTEGER NOT NULL,
	changes        TEXT NOT NULL,
	upload_url     TEXT NOT NULL DEFAULT '',
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS report_events (
	id          TEXT PRIMARY KEY,
	report_id   TEXT NOT NULL REFERENCES reports(id),
	from_status TEXT NOT NULL,
	to_status   TEXT NOT NULL,
	at          DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports(user_id);
CREATE INDEX IF NOT EXISTS idx_report_events_report_id ON report_events(report_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r *pricechange.Report, uploadURL string) error {
	locJSON, changesJSON, err := marshalReport(r)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save report")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reports (id, user_id, username, group_name, location_ids, submitted_at, status, total_changes, changes, upload_url, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Username, r.GroupName, string(locJSON), r.SubmittedDate.UTC(), string(r.Status),
		r.TotalChanges, string(changesJSON), uploadURL, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert report %s", r.ID)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO report_events (id, report_id, from_status, to_status, at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), r.ID, "", string(r.Status), now,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert creation event %s", r.ID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit save report")
}

const sqliteReportColumns = `id, user_id, username, group_name, location_ids, submitted_at, status, total_changes, changes, upload_url, updated_at`

func (s *SQLiteStore) GetReport(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteReportColumns+` FROM reports WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", id)
	}
	return rec, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]Record, error) {
	query := `SELECT ` + sqliteReportColumns + ` FROM reports WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.GroupName != "" {
		query += ` AND group_name = ?`
		args = append(args, filter.GroupName)
	}
	query += ` ORDER BY submitted_at DESC, id DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close() //nolint:errcheck

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, to pricechange.Status) (*StatusEvent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin update status")
	}
	defer tx.Rollback() //nolint:errcheck

	var current string
	err = tx.QueryRowContext(ctx, `SELECT status FROM reports WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: read status %s", id)
	}

	from := pricechange.Status(current)
	if err := pricechange.Transition(from, to); err != nil {
		return nil, err
	}

	ev := &StatusEvent{ID: uuid.New().String(), ReportID: id, From: from, To: to, At: time.Now().UTC()}
	res, err := tx.ExecContext(ctx,
		`UPDATE reports SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), ev.At, id, current,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update status %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO report_events (id, report_id, from_status, to_status, at) VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.ReportID, string(ev.From), string(ev.To), ev.At,
	); err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert status event %s", id)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit update status")
	}
	return ev, nil
}

func (s *SQLiteStore) StatusEvents(ctx context.Context, id string) ([]StatusEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, from_status, to_status, at FROM report_events WHERE report_id = ? ORDER BY at, rowid`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list events %s", id)
	}
	defer rows.Close() //nolint:errcheck

	var out []StatusEvent
	for rows.Next() {
		var ev StatusEvent
		var from, to string
		if err := rows.Scan(&ev.ID, &ev.ReportID, &from, &to, &ev.At); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		ev.From, ev.To = pricechange.Status(from), pricechange.Status(to)
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(pricechange.ErrInvalidTransition, "report %s changed concurrently", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*Record, error) {
	var rec Record
	var status, locJSON, changesJSON string
	r := &rec.Report
	if err := row.Scan(&r.ID, &r.UserID, &r.Username, &r.GroupName, &locJSON, &r.SubmittedDate,
		&status, &r.TotalChanges, &changesJSON, &rec.UploadURL, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = pricechange.Status(status)
	if err := unmarshalReport(r, []byte(locJSON), []byte(changesJSON)); err != nil {
		return nil, err
	}
	return &rec, nil
}

func marshalReport(r *pricechange.Report) (locJSON, changesJSON []byte, err error) {
	ids := r.LocationIDs
	if ids == nil {
		ids = []string{}
	}
	if locJSON, err = json.Marshal(ids); err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal location ids")
	}
	changes := r.Changes
	if changes == nil {
		changes = []pricechange.Change{}
	}
	if changesJSON, err = json.Marshal(changes); err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal changes")
	}
	return locJSON, changesJSON, nil
}

func unmarshalReport(r *pricechange.Report, locJSON, changesJSON []byte) error {
	if err := json.Unmarshal(locJSON, &r.LocationIDs); err != nil {
		return eris.Wrap(err, "store: unmarshal location ids")
	}
	if err := json.Unmarshal(changesJSON, &r.Changes); err != nil {
		return eris.Wrap(err, "store: unmarshal changes")
	}
	return nil
}
