package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wolfman30/clinic-occupancy-maps/internal/feegow"
	"github.com/wolfman30/clinic-occupancy-maps/internal/normalize"
	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/runlog"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

// MapService builds occupancy maps and appointment listings. *report.Service satisfies it.
type MapService interface {
	Weekly(ctx context.Context, unitID int64, start schedule.Date) (*report.Document, error)
	Daily(ctx context.Context, unitID int64, date schedule.Date) (*report.Document, error)
	Appointments(ctx context.Context, f report.AppointmentFilter) (*report.AppointmentList, error)
	Today() schedule.Date
}

// CatalogReader exposes the cached reference tables.
type CatalogReader interface {
	Snapshot(ctx context.Context) (*refcache.Snapshot, error)
}

// RunLister lists recorded job runs. Optional.
type RunLister interface {
	Recent(ctx context.Context, date schedule.Date, limit int) ([]runlog.Run, error)
}

// ReportsHandler serves units and on-demand maps.
type ReportsHandler struct {
	maps    MapService
	catalog CatalogReader
	runs    RunLister
	logger  *logging.Logger
}

func NewReportsHandler(maps MapService, catalog CatalogReader, runs RunLister, logger *logging.Logger) *ReportsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReportsHandler{maps: maps, catalog: catalog, runs: runs, logger: logger.With("reports_handler")}
}

type unitResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Rooms int    `json:"rooms"`
}

// ListUnits returns every unit with its room count.
// GET /v1/units
func (h *ReportsHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to load reference tables", "error", err)
		writeJSON(w, upstreamStatus(err), errorBody("failed to load units"))
		return
	}
	out := make([]unitResponse, 0, len(snap.Units))
	for _, u := range snap.Units {
		out = append(out, unitResponse{ID: u.ID, Name: u.Name, Rooms: len(snap.RoomsOfUnit(u.ID))})
	}
	writeJSON(w, http.StatusOK, map[string]any{"units": out})
}

// Weekly builds the weekly map.
// GET /v1/reports/weekly?unit=<id|name>&start=DD-MM-YYYY
func (h *ReportsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "start", h.maps.Weekly)
}

// Daily builds the daily map.
// GET /v1/reports/daily?unit=<id|name>&date=DD-MM-YYYY
func (h *ReportsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "date", h.maps.Daily)
}

type buildFunc func(ctx context.Context, unitID int64, date schedule.Date) (*report.Document, error)

func (h *ReportsHandler) serve(w http.ResponseWriter, r *http.Request, dateParam string, build buildFunc) {
	q := r.URL.Query()
	unitRef := strings.TrimSpace(q.Get("unit"))
	if unitRef == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("unit is required"))
		return
	}
	date := h.maps.Today()
	if raw := strings.TrimSpace(q.Get(dateParam)); raw != "" {
		parsed, ok := normalize.ParseDate(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid "+dateParam+", expected DD-MM-YYYY"))
			return
		}
		date = parsed
	}

	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.logger.Error("failed to load reference tables", "error", err)
		writeJSON(w, upstreamStatus(err), errorBody("failed to load units"))
		return
	}
	unit, ok := report.ResolveUnit(snap, unitRef)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("unknown unit "+unitRef))
		return
	}

	doc, err := build(r.Context(), unit.ID, date)
	if err != nil && !errors.Is(err, report.ErrNoData) {
		h.logger.Error("map generation failed", "unit_id", unit.ID, "date", date.ISO(), "error", err)
		writeJSON(w, upstreamStatus(err), errorBody("map generation failed"))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ListAppointments returns booked appointments with resolved names and status labels.
// GET /v1/appointments?unit=<id|name>&from=DD-MM-YYYY&to=DD-MM-YYYY&professional=&specialty=&room=&status=7,1
func (h *ReportsHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := report.AppointmentFilter{From: h.maps.Today(), To: h.maps.Today()}

	dates := []struct {
		name string
		dst  *schedule.Date
	}{{"from", &filter.From}, {"to", &filter.To}}
	for _, p := range dates {
		name, dst := p.name, p.dst
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		parsed, ok := normalize.ParseDate(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid "+name+", expected DD-MM-YYYY"))
			return
		}
		*dst = parsed
	}
	if filter.To.Before(filter.From) {
		writeJSON(w, http.StatusBadRequest, errorBody("from must not be after to"))
		return
	}

	ids := []struct {
		name string
		dst  *int64
	}{{"professional", &filter.ProfessionalID}, {"specialty", &filter.SpecialtyID}, {"room", &filter.RoomID}}
	for _, p := range ids {
		name, dst := p.name, p.dst
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid "+name))
			return
		}
		*dst = id
	}
	statuses, err := parseStatuses(q.Get("status"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	filter.Statuses = statuses

	if unitRef := strings.TrimSpace(q.Get("unit")); unitRef != "" {
		snap, err := h.catalog.Snapshot(r.Context())
		if err != nil {
			h.logger.Error("failed to load reference tables", "error", err)
			writeJSON(w, upstreamStatus(err), errorBody("failed to load units"))
			return
		}
		unit, ok := report.ResolveUnit(snap, unitRef)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody("unknown unit "+unitRef))
			return
		}
		filter.UnitID = unit.ID
	}

	list, err := h.maps.Appointments(r.Context(), filter)
	if err != nil {
		h.logger.Error("appointment listing failed", "unit_id", filter.UnitID, "from", filter.From.ISO(), "to", filter.To.ISO(), "error", err)
		writeJSON(w, upstreamStatus(err), errorBody("appointment listing failed"))
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// parseStatuses reads a comma separated list of status codes.
func parseStatuses(raw string) ([]schedule.Status, error) {
	var out []schedule.Status
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, errors.New("invalid status " + part)
		}
		out = append(out, schedule.Status(code))
	}
	return out, nil
}

// ListRuns returns the job runs recorded for a date.
// GET /v1/runs?date=DD-MM-YYYY&limit=N
func (h *ReportsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusNotImplemented, errorBody("run log not configured"))
		return
	}
	q := r.URL.Query()
	date := h.maps.Today()
	if raw := q.Get("date"); raw != "" {
		parsed, ok := normalize.ParseDate(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid date, expected DD-MM-YYYY"))
			return
		}
		date = parsed
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid limit"))
			return
		}
		limit = n
	}
	runs, err := h.runs.Recent(r.Context(), date, limit)
	if err != nil {
		h.logger.Error("failed to list runs", "date", date.ISO(), "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to list runs"))
		return
	}
	if runs == nil {
		runs = []runlog.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// upstreamStatus maps pipeline errors to a response code.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case feegow.IsTransient(err), feegow.IsValidation(err):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
