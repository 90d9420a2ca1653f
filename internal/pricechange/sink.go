package pricechange

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/fetcher"
)

// UploadResult is the outcome of handing a report to a sink.
type UploadResult struct {
	Success bool   `json:"success"`
	URL     string `json:"url,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Sink stores a rendered report. Failures are reported in the result, not
// as an error, and are not retried.
type Sink interface {
	Upload(ctx context.Context, csvText string, r *Report) UploadResult
}

// HTTPSink writes reports as objects under a bucket prefix.
type HTTPSink struct {
	up        fetcher.Uploader
	bucketURL string
	prefix    string
	now       func() time.Time
}

// NewHTTPSink returns a sink that PUTs reports to bucketURL/prefix.
func NewHTTPSink(up fetcher.Uploader, bucketURL, prefix string) *HTTPSink {
	return &HTTPSink{up: up, bucketURL: bucketURL, prefix: prefix, now: time.Now}
}

// Upload implements Sink.
func (s *HTTPSink) Upload(ctx context.Context, csvText string, r *Report) UploadResult {
	name := ReportFilename(s.now(), r)
	url := fetcher.ObjectURL(s.bucketURL, s.prefix+name)
	log := zap.L().With(zap.String("component", "report_sink"), zap.String("report_id", r.ID))

	if err := s.up.Put(ctx, url, "text/csv", []byte(csvText)); err != nil {
		log.Warn("report upload failed", zap.String("url", url), zap.Error(err))
		var se *fetcher.StatusError
		if errors.As(err, &se) {
			return UploadResult{Error: fmt.Sprintf("Upload failed: %d %s", se.Code, se.Text)}
		}
		return UploadResult{Error: err.Error()}
	}
	log.Info("report uploaded", zap.String("url", url), zap.Int("changes", r.TotalChanges))
	return UploadResult{Success: true, URL: url}
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// Sanitize replaces every character outside [a-zA-Z0-9-_] with "_".
func Sanitize(s string) string {
	return unsafeName.ReplaceAllString(s, "_")
}

// ReportFilename names an uploaded report:
// <timestamp>_<group>_<username>_<userId>_<reportId>.csv, where the
// timestamp is ISO 8601 with ":" and "." replaced by "-".
func ReportFilename(now time.Time, r *Report) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(now.UTC().Format("2006-01-02T15:04:05.000Z"))
	return fmt.Sprintf("%s_%s_%s_%s_%s.csv", ts, Sanitize(r.GroupName), Sanitize(r.Username), Sanitize(r.UserID), Sanitize(r.ID))
}

// FileInfo is the metadata recovered from a report filename.
type FileInfo struct {
	UploadedAt time.Time `json:"uploadedAt"`
	GroupName  string    `json:"groupName"`
	Username   string    `json:"username"`
	UserID     string    `json:"userId"`
	ReportID   string    `json:"reportId"`
}

// Names without the hex suffix come from reports uploaded before ids were
// made unique.
var reportFileRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})T(\d{2})-(\d{2})-(\d{2})-(\d{3})Z_([a-zA-Z0-9_-]*)_(PRICE-\d+-([a-zA-Z0-9_-]*?)(?:-[0-9a-f]{8})?)\.csv$`)

// ParseReportFilename reverses ReportFilename. Group and username come back
// sanitized and are split on the last "_" once the user id is removed.
func ParseReportFilename(name string) (FileInfo, error) {
	m := reportFileRe.FindStringSubmatch(name)
	if m == nil {
		return FileInfo{}, eris.Errorf("pricechange: not a report filename: %q", name)
	}
	ts, err := time.Parse(time.RFC3339Nano, fmt.Sprintf("%sT%s:%s:%s.%sZ", m[1], m[2], m[3], m[4], m[5]))
	if err != nil {
		return FileInfo{}, eris.Wrap(err, "pricechange: report filename timestamp")
	}
	info := FileInfo{UploadedAt: ts, ReportID: m[7], UserID: m[8]}

	middle := strings.TrimSuffix(m[6], "_"+info.UserID)
	if i := strings.LastIndex(middle, "_"); i >= 0 {
		info.GroupName, info.Username = middle[:i], middle[i+1:]
	} else {
		info.GroupName = middle
	}
	return info, nil
}
