package pricechange

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Status is a report's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusSent     Status = "sent"
	StatusArchived Status = "archived"
)

// ErrInvalidTransition is returned for a lifecycle move that is not allowed.
var ErrInvalidTransition = eris.New("pricechange: invalid status transition")

// ParseStatus validates a status string.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusSent, StatusArchived:
		return st, nil
	}
	return "", eris.Errorf("pricechange: unknown status %q", s)
}

var transitions = map[Status][]Status{
	StatusPending: {StatusSent, StatusArchived},
	StatusSent:    {StatusArchived},
}

// Transition checks that a report may move from one status to another.
// Moves only go forward.
func Transition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return eris.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
}

// Submitter identifies who submitted a report.
type Submitter struct {
	ID        string
	Username  string
	GroupName string
}

// Report is one submission of price changes.
type Report struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	GroupName     string    `json:"groupName"`
	LocationIDs   []string  `json:"locationIds"`
	SubmittedDate time.Time `json:"submittedDate"`
	Status        Status    `json:"status"`
	Changes       []Change  `json:"changes"`
	TotalChanges  int       `json:"totalChanges"`
}

// DefaultGroupName is used when the submitter has no group.
const DefaultGroupName = "Unknown Group"

// reportSuffix keeps two submissions by one user in the same millisecond
// apart.
var reportSuffix = func() string { return uuid.NewString()[:8] }

// ReportID derives a report id from the submission time and submitter:
// PRICE-<unix ms>-<user id>-<8 hex>. The user id is sanitized so the id is
// safe to embed in an object key.
func ReportID(now time.Time, userID string) string {
	return fmt.Sprintf("PRICE-%d-%s-%s", now.UnixMilli(), Sanitize(userID), reportSuffix())
}

// BuildReport creates a pending report.
func BuildReport(changes []Change, sub Submitter, locationIDs []string, now time.Time) *Report {
	group := sub.GroupName
	if group == "" {
		group = DefaultGroupName
	}
	return &Report{
		ID:            ReportID(now, sub.ID),
		UserID:        sub.ID,
		Username:      sub.Username,
		GroupName:     group,
		LocationIDs:   append([]string(nil), locationIDs...),
		SubmittedDate: now,
		Status:        StatusPending,
		Changes:       changes,
		TotalChanges:  len(changes),
	}
}

// Advance moves the report to status to.
func (r *Report) Advance(to Status) error {
	if err := Transition(r.Status, to); err != nil {
		return err
	}
	r.Status = to
	return nil
}

// Meta returns the header fields written to the report CSV.
func (r *Report) Meta() Meta {
	return Meta{ReportID: r.ID, GroupName: r.GroupName, SubmittedDate: r.SubmittedDate}
}
