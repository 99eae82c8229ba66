package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

func TestBuildHandlerRequiresFeegowToken(t *testing.T) {
	_, cleanup, err := buildHandler(context.Background(), &appconfig.Config{}, logging.New("error"))
	defer cleanup()
	if err == nil {
		t.Fatalf("expected error without access token")
	}
}

func TestBuildHandlerServesHealthAndGuardsReports(t *testing.T) {
	cfg := &appconfig.Config{
		FeegowAccessToken:   "token",
		MapTimezone:         "America/Sao_Paulo",
		AdminJWTSecret:      "secret",
		ReportRatePerMinute: 30,
		ReportRateBurst:     5,
	}
	h, cleanup, err := buildHandler(context.Background(), cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/units", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
}
