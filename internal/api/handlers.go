package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/engine"
	"github.com/sells-group/recon-cli/internal/export"
	"github.com/sells-group/recon-cli/internal/filedate"
	"github.com/sells-group/recon-cli/internal/pricechange"
	"github.com/sells-group/recon-cli/internal/pricing"
	"github.com/sells-group/recon-cli/internal/store"
)

func (s *Server) profiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"profiles": s.svc.Profiles()})
}

func (s *Server) files(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win, err := filedate.ResolveWindow(q.Get("start"), q.Get("end"), q.Get("preset"), s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	files, err := s.svc.Files(r.Context(), engine.FileQuery{Profile: q.Get("type"), Window: win})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": files})
}

type scanBody struct {
	Profile     string   `json:"profile"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Preset      string   `json:"preset"`
	LocationIDs []string `json:"locationIds"`
	DiscountIDs []string `json:"discountIds"`
	MinUsage    *float64 `json:"minUsage"`
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	var body scanBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Profile == "" {
		writeError(w, http.StatusBadRequest, "profile is required")
		return
	}
	format := export.FormatJSON
	if f := r.URL.Query().Get("format"); f != "" {
		var err error
		if format, err = export.ParseFormat(f); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	win, err := filedate.ResolveWindow(body.Start, body.End, body.Preset, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := s.svc.Scan(r.Context(), engine.ScanRequest{
		Profile:     body.Profile,
		Window:      win,
		LocationIDs: body.LocationIDs,
		DiscountIDs: body.DiscountIDs,
		MinUsage:    body.MinUsage,
	}, nil)
	switch {
	case errors.Is(err, engine.ErrUnknownProfile):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, res)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, format, res.Columns, res.Rows); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+res.Profile+"."+string(format)+`"`)
	_, _ = w.Write(buf.Bytes())
}

type pricesResponse struct {
	Source     string                   `json:"source"`
	Items      []pricing.Item           `json:"items"`
	Locations  []pricing.LocationInfo   `json:"locations"`
	Categories []pricing.CategoryOption `json:"categories"`
}

func (s *Server) prices(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.PriceModel(r.Context())
	switch {
	case errors.Is(err, engine.ErrNoSnapshot):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	items := snap.Model.ByCategory(r.URL.Query().Get("category"))
	if items == nil {
		items = []pricing.Item{}
	}
	writeJSON(w, http.StatusOK, pricesResponse{
		Source:     snap.Source,
		Items:      items,
		Locations:  snap.Model.Locations,
		Categories: pricing.Categories(snap.Model.Items),
	})
}

type submitBody struct {
	UserID      string             `json:"userId"`
	Username    string             `json:"username"`
	GroupName   string             `json:"groupName"`
	LocationIDs []string           `json:"locationIds"`
	Confirm     bool               `json:"confirm"`
	Edits       map[string]float64 `json:"edits"`
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	edits := make(map[pricechange.EditKey]float64, len(body.Edits))
	for k, v := range body.Edits {
		key, err := pricechange.ParseEditKey(k)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		edits[key] = v
	}

	res, err := s.svc.Submit(r.Context(), engine.SubmitRequest{
		Edits:       edits,
		Submitter:   pricechange.Submitter{ID: body.UserID, Username: body.Username, GroupName: body.GroupName},
		LocationIDs: body.LocationIDs,
		Confirm:     body.Confirm,
	})
	switch {
	case errors.Is(err, engine.ErrInvalidChanges):
		writeJSON(w, http.StatusUnprocessableEntity, res)
	case errors.Is(err, engine.ErrConfirmationRequired):
		writeJSON(w, http.StatusConflict, res)
	case errors.Is(err, engine.ErrNoSnapshot):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		zap.L().Error("submit failed", zap.String("component", "api"), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	case !res.Upload.Success:
		writeJSON(w, http.StatusBadGateway, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

func (s *Server) listReports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ReportFilter{UserID: q.Get("userId"), GroupName: q.Get("group")}
	if st := q.Get("status"); st != "" {
		status, err := pricechange.ParseStatus(st)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Status = status
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	recs, err := s.svc.Reports(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": recs})
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.Report(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) reportCSV(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := s.svc.ReportCSV(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pricechange.Sanitize(id)+`.csv"`)
	_, _ = w.Write([]byte(text))
}

func (s *Server) setStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to, err := pricechange.ParseStatus(body.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ev, err := s.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), to)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, pricechange.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func intParam(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil && n < 0 {
		return 0, strconv.ErrRange
	}
	return n, err
}
