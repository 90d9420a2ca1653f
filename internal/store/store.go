// Package store persists submitted price-change reports and the audit trail
// of their status transitions.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/pricechange"
)

// ErrNotFound is returned when a report does not exist.
var ErrNotFound = eris.New("store: not found")

// Record is a stored report plus the location it was uploaded to.
type Record struct {
	Report    pricechange.Report `json:"report"`
	UploadURL string             `json:"uploadUrl,omitempty"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// StatusEvent is one lifecycle transition. The creation of a report is
// recorded with an empty From.
type StatusEvent struct {
	ID       string             `json:"id"`
	ReportID string             `json:"reportId"`
	From     pricechange.Status `json:"from"`
	To       pricechange.Status `json:"to"`
	At       time.Time          `json:"at"`
}

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Status    pricechange.Status `json:"status,omitempty"`
	UserID    string             `json:"user_id,omitempty"`
	GroupName string             `json:"group_name,omitempty"`
	Limit     int                `json:"limit,omitempty"`
	Offset    int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for price-change reports.
type Store interface {
	// Reports
	SaveReport(ctx context.Context, r *pricechange.Report, uploadURL string) error
	GetReport(ctx context.Context, id string) (*Record, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]Record, error)

	// Lifecycle
	UpdateStatus(ctx context.Context, id string, to pricechange.Status) (*StatusEvent, error)
	StatusEvents(ctx context.Context, id string) ([]StatusEvent, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}
