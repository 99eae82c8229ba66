package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinic-occupancy-maps/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinic-occupancy-maps/internal/http/middleware"
	"github.com/wolfman30/clinic-occupancy-maps/internal/refcache"
	"github.com/wolfman30/clinic-occupancy-maps/internal/report"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

const testSecret = "router-secret"

type fakeMaps struct{}

func (fakeMaps) Weekly(context.Context, int64, schedule.Date) (*report.Document, error) {
	return &report.Document{Metadata: report.Metadata{Type: report.TypeWeekly}}, nil
}

func (fakeMaps) Daily(context.Context, int64, schedule.Date) (*report.Document, error) {
	return &report.Document{Metadata: report.Metadata{Type: report.TypeDaily}}, nil
}

func (fakeMaps) Appointments(_ context.Context, f report.AppointmentFilter) (*report.AppointmentList, error) {
	return &report.AppointmentList{From: f.From, To: f.To, Appointments: []report.Appointment{}}, nil
}

func (fakeMaps) Today() schedule.Date { return schedule.Date{Year: 2025, Month: 12, Day: 3} }

type fakeCatalog struct{}

func (fakeCatalog) Snapshot(context.Context) (*refcache.Snapshot, error) {
	return &refcache.Snapshot{Units: []schedule.Unit{{ID: 1, Name: "Centro"}}}, nil
}

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) http.Handler {
	t.Helper()
	logger := logging.Default()
	return New(&Config{
		Logger:         logger,
		Reports:        handlers.NewReportsHandler(fakeMaps{}, fakeCatalog{}, nil, logger),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		JWTSecret:      testSecret,
		RateLimiter:    limiter,
	})
}

func bearer(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterMetricsIsPublic(t *testing.T) {
	router := newTestRouter(t, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics to be served, got %d", rr.Code)
	}
}

func TestRouterRequiresToken(t *testing.T) {
	router := newTestRouter(t, nil)
	for _, path := range []string{"/v1/units", "/v1/appointments", "/v1/reports/daily?unit=1", "/v1/reports/weekly?unit=1"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rr.Code)
		}
	}
}

func TestRouterServesReports(t *testing.T) {
	router := newTestRouter(t, nil)
	token := bearer(t)

	for _, path := range []string{"/v1/units", "/v1/appointments?unit=Centro", "/v1/reports/daily?unit=1", "/v1/reports/weekly?unit=Centro"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d (%s)", path, rr.Code, rr.Body.String())
		}
	}
}

func TestRouterRateLimitsReports(t *testing.T) {
	router := newTestRouter(t, httpmiddleware.NewRateLimiter(1, 1))
	token := bearer(t)

	codes := make([]int, 0, 3)
	for _, path := range []string{"/v1/reports/daily?unit=1", "/v1/reports/daily?unit=1", "/v1/units"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests || codes[2] != http.StatusOK {
		t.Fatalf("unexpected status sequence %v", codes)
	}
}
