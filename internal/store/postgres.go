package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/pricechange"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	username      TEXT NOT NULL,
	group_name    TEXT NOT NULL,
	location_ids  JSONB NOT NULL,
	submitted_at  TIMESTAMPTZ NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	total_changes INTEGER NOT NULL,
	changes       JSONB NOT NULL,
	upload_url    TEXT NOT NULL DEFAULT '',
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS report_events (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	report_id   TEXT NOT NULL REFERENCES reports(id),
	from_status TEXT NOT NULL,
	to_status   TEXT NOT NULL,
	at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports(user_id);
CREATE INDEX IF NOT EXISTS idx_reports_submitted_at ON reports(submitted_at DESC);
CREATE INDEX IF NOT EXISTS idx_report_events_report_id ON report_events(report_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, r *pricechange.Report, uploadURL string) error {
	locJSON, changesJSON, err := marshalReport(r)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin save report")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO reports (id, user_id, username, group_name, location_ids, submitted_at, status, total_changes, changes, upload_url, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.UserID, r.Username, r.GroupName, locJSON, r.SubmittedDate.UTC(), string(r.Status),
		r.TotalChanges, changesJSON, uploadURL, now,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert report %s", r.ID)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO report_events (id, report_id, from_status, to_status, at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), r.ID, "", string(r.Status), now,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert creation event %s", r.ID)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit save report")
}

const postgresReportColumns = `id, user_id, username, group_name, location_ids, submitted_at, status, total_changes, changes, upload_url, updated_at`

func (s *PostgresStore) GetReport(ctx context.Context, id string) (*Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postgresReportColumns+` FROM reports WHERE id = $1`, id)
	rec, err := scanPgRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]Record, error) {
	query := `SELECT ` + postgresReportColumns + ` FROM reports WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	if filter.GroupName != "" {
		query += fmt.Sprintf(` AND group_name = $%d`, argIdx)
		args = append(args, filter.GroupName)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY submitted_at DESC, id DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, to pricechange.Status) (*StatusEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin update status")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM reports WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "report %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: read status %s", id)
	}

	from := pricechange.Status(current)
	if err := pricechange.Transition(from, to); err != nil {
		return nil, err
	}

	ev := &StatusEvent{ID: uuid.New().String(), ReportID: id, From: from, To: to, At: time.Now().UTC()}
	if _, err := tx.Exec(ctx,
		`UPDATE reports SET status = $1, updated_at = $2 WHERE id = $3`,
		string(to), ev.At, id,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: update status %s", id)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO report_events (id, report_id, from_status, to_status, at) VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.ReportID, string(ev.From), string(ev.To), ev.At,
	); err != nil {
		return nil, eris.Wrapf(err, "postgres: insert status event %s", id)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, eris.Wrap(err, "postgres: commit update status")
	}
	return ev, nil
}

func (s *PostgresStore) StatusEvents(ctx context.Context, id string) ([]StatusEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, report_id, from_status, to_status, at FROM report_events WHERE report_id = $1 ORDER BY at`,
		id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list events %s", id)
	}
	defer rows.Close()

	var out []StatusEvent
	for rows.Next() {
		var ev StatusEvent
		var from, to string
		if err := rows.Scan(&ev.ID, &ev.ReportID, &from, &to, &ev.At); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		ev.From, ev.To = pricechange.Status(from), pricechange.Status(to)
		out = append(out, ev)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list events iterate")
}

func scanPgRecord(row pgx.Row) (*Record, error) {
	var rec Record
	var status string
	var locJSON, changesJSON []byte
	r := &rec.Report
	if err := row.Scan(&r.ID, &r.UserID, &r.Username, &r.GroupName, &locJSON, &r.SubmittedDate,
		&status, &r.TotalChanges, &changesJSON, &rec.UploadURL, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	r.Status = pricechange.Status(status)
	if err := unmarshalReport(r, locJSON, changesJSON); err != nil {
		return nil, err
	}
	return &rec, nil
}
