package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-occupancy-maps/internal/feegow"
	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/runlog"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

var today = schedule.Date{Year: 2025, Month: 12, Day: 3}

type stubMaps struct {
	doc       *report.Document
	list      *report.AppointmentList
	err       error
	gotUnit   int64
	gotDate   schedule.Date
	gotFilter report.AppointmentFilter
	lastKind  string
}

func (s *stubMaps) Weekly(_ context.Context, unitID int64, start schedule.Date) (*report.Document, error) {
	s.gotUnit, s.gotDate, s.lastKind = unitID, start, "weekly"
	return s.doc, s.err
}

func (s *stubMaps) Daily(_ context.Context, unitID int64, date schedule.Date) (*report.Document, error) {
	s.gotUnit, s.gotDate, s.lastKind = unitID, date, "daily"
	return s.doc, s.err
}

func (s *stubMaps) Appointments(_ context.Context, f report.AppointmentFilter) (*report.AppointmentList, error) {
	s.gotFilter, s.lastKind = f, "appointments"
	return s.list, s.err
}

func (s *stubMaps) Today() schedule.Date { return today }

type stubCatalog struct {
	snap *refcache.Snapshot
	err  error
}

func (s stubCatalog) Snapshot(context.Context) (*refcache.Snapshot, error) { return s.snap, s.err }

type stubRuns struct {
	runs    []runlog.Run
	gotDate schedule.Date
	gotLim  int
}

func (s *stubRuns) Recent(_ context.Context, date schedule.Date, limit int) ([]runlog.Run, error) {
	s.gotDate, s.gotLim = date, limit
	return s.runs, nil
}

func testSnapshot() *refcache.Snapshot {
	return &refcache.Snapshot{
		Units: []schedule.Unit{{ID: 1, Name: "Centro"}, {ID: 2, Name: "São José"}},
		Rooms: []schedule.Room{{ID: 10, Name: "Sala 1", UnitID: 2}, {ID: 11, Name: "Sala 2", UnitID: 2}},
	}
}

func newHandler(maps *stubMaps, runs RunLister) *ReportsHandler {
	return NewReportsHandler(maps, stubCatalog{snap: testSnapshot()}, runs, logging.Default())
}

func TestListUnits(t *testing.T) {
	h := newHandler(&stubMaps{}, nil)
	rr := httptest.NewRecorder()
	h.ListUnits(rr, httptest.NewRequest(http.MethodGet, "/v1/units", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Units []unitResponse `json:"units"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Units, 2)
	assert.Equal(t, 0, body.Units[0].Rooms)
	assert.Equal(t, 2, body.Units[1].Rooms)
}

func TestListUnitsUpstreamFailure(t *testing.T) {
	h := NewReportsHandler(&stubMaps{}, stubCatalog{err: &feegow.APIError{StatusCode: 503}}, nil, nil)
	rr := httptest.NewRecorder()
	h.ListUnits(rr, httptest.NewRequest(http.MethodGet, "/v1/units", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestDailyResolvesUnitByName(t *testing.T) {
	maps := &stubMaps{doc: &report.Document{Metadata: report.Metadata{Type: report.TypeDaily, UnitID: 2}}}
	h := newHandler(maps, nil)

	rr := httptest.NewRecorder()
	h.Daily(rr, httptest.NewRequest(http.MethodGet, "/v1/reports/daily?unit=sao+jose&date=05-12-2025", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "daily", maps.lastKind)
	assert.Equal(t, int64(2), maps.gotUnit)
	assert.Equal(t, schedule.Date{Year: 2025, Month: 12, Day: 5}, maps.gotDate)
}

func TestWeeklyDefaultsToToday(t *testing.T) {
	maps := &stubMaps{doc: &report.Document{}}
	h := newHandler(maps, nil)

	rr := httptest.NewRecorder()
	h.Weekly(rr, httptest.NewRequest(http.MethodGet, "/v1/reports/weekly?unit=1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "weekly", maps.lastKind)
	assert.Equal(t, today, maps.gotDate)
}

func TestReportNoDataReturnsWarningDocument(t *testing.T) {
	maps := &stubMaps{doc: &report.Document{Warning: "Nenhum agendamento"}, err: report.ErrNoData}
	h := newHandler(maps, nil)

	rr := httptest.NewRecorder()
	h.Daily(rr, httptest.NewRequest(http.MethodGet, "/v1/reports/daily?unit=1", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	assert.Equal(t, "Nenhum agendamento", body["warning"])
}

func TestReportErrors(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		err    error
		status int
	}{
		{"missing unit", "/v1/reports/daily", nil, http.StatusBadRequest},
		{"bad date", "/v1/reports/daily?unit=1&date=31-02-2025", nil, http.StatusBadRequest},
		{"unknown unit", "/v1/reports/daily?unit=Norte", nil, http.StatusNotFound},
		{"upstream", "/v1/reports/daily?unit=1", &feegow.APIError{StatusCode: 502}, http.StatusBadGateway},
		{"deadline", "/v1/reports/daily?unit=1", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"internal", "/v1/reports/daily?unit=1", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandler(&stubMaps{err: tc.err}, nil)
			rr := httptest.NewRecorder()
			h.Daily(rr, httptest.NewRequest(http.MethodGet, tc.url, nil))
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestListRuns(t *testing.T) {
	runs := &stubRuns{runs: []runlog.Run{{UnitID: 1, Status: report.StatusSuccess}}}
	h := newHandler(&stubMaps{}, runs)

	rr := httptest.NewRecorder()
	h.ListRuns(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?date=01-12-2025&limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, schedule.Date{Year: 2025, Month: 12, Day: 1}, runs.gotDate)
	assert.Equal(t, 5, runs.gotLim)
}

func TestListRunsWithoutRepository(t *testing.T) {
	h := newHandler(&stubMaps{}, nil)
	rr := httptest.NewRecorder()
	h.ListRuns(rr, httptest.NewRequest(http.MethodGet, "/v1/runs", nil))
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestListAppointmentsParsesFilters(t *testing.T) {
	maps := &stubMaps{list: &report.AppointmentList{Appointments: []report.Appointment{{
		AppointmentID: 99,
		Status:        schedule.StatusConfirmed,
		StatusLabel:   schedule.StatusConfirmed.Label(),
		PatientID:     4821,
		Room:          "Sala 1",
	}}}}
	h := newHandler(maps, nil)

	rr := httptest.NewRecorder()
	h.ListAppointments(rr, httptest.NewRequest(http.MethodGet,
		"/v1/appointments?unit=sao+jose&from=01-12-2025&to=05-12-2025&professional=5&specialty=30&room=10&status=7,+1", nil))

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "appointments", maps.lastKind)
	assert.Equal(t, report.AppointmentFilter{
		UnitID:         2,
		From:           schedule.Date{Year: 2025, Month: 12, Day: 1},
		To:             schedule.Date{Year: 2025, Month: 12, Day: 5},
		ProfessionalID: 5,
		SpecialtyID:    30,
		RoomID:         10,
		Statuses:       []schedule.Status{schedule.StatusConfirmed, schedule.StatusScheduled},
	}, maps.gotFilter)

	var body struct {
		Appointments []map[string]any `json:"appointments"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	require.Len(t, body.Appointments, 1)
	assert.Equal(t, "MARCADO - CONFIRMADO", body.Appointments[0]["status"])
	assert.Equal(t, float64(4821), body.Appointments[0]["paciente_id"])
}

func TestListAppointmentsDefaultsToTodayAcrossUnits(t *testing.T) {
	maps := &stubMaps{list: &report.AppointmentList{}}
	h := newHandler(maps, nil)

	rr := httptest.NewRecorder()
	h.ListAppointments(rr, httptest.NewRequest(http.MethodGet, "/v1/appointments", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, report.AppointmentFilter{From: today, To: today}, maps.gotFilter)
}

func TestListAppointmentsErrors(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		err    error
		status int
	}{
		{"inverted range", "/v1/appointments?from=05-12-2025&to=01-12-2025", nil, http.StatusBadRequest},
		{"bad date", "/v1/appointments?from=31-02-2025", nil, http.StatusBadRequest},
		{"bad professional", "/v1/appointments?professional=ana", nil, http.StatusBadRequest},
		{"bad status", "/v1/appointments?status=7,x", nil, http.StatusBadRequest},
		{"unknown unit", "/v1/appointments?unit=Norte", nil, http.StatusNotFound},
		{"upstream", "/v1/appointments?unit=1", &feegow.APIError{StatusCode: 503}, http.StatusBadGateway},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			maps := &stubMaps{err: tc.err}
			h := newHandler(maps, nil)
			rr := httptest.NewRecorder()
			h.ListAppointments(rr, httptest.NewRequest(http.MethodGet, tc.url, nil))
			assert.Equal(t, tc.status, rr.Code)
			if tc.status == http.StatusBadRequest || tc.status == http.StatusNotFound {
				assert.Empty(t, maps.lastKind)
			}
		})
	}
}
