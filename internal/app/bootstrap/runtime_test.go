package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	appconfig "github.com/wolfman30/clinic-occupancy-maps/internal/config"
	"github.com/wolfman30/clinic-occupancy-maps/internal/schedule"
	"github.com/wolfman30/clinic-occupancy-maps/pkg/logging"
)

func TestBuildRedisClientDisabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, nil, true); client != nil {
		t.Fatalf("expected nil client without address")
	}
}

func TestBuildRedisClientVerifies(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Default(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	defer client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.Default(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := BuildPostgresPool(context.Background(), "", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestBuildMetricsExposesPipelineMetrics(t *testing.T) {
	handler, m := BuildMetrics()
	m.ObserveReport("daily", "success", 0.5)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "occupancy_report_runs_total") {
		t.Fatalf("expected report counter to be exported")
	}
}

func TestBuildPipelineRequiresToken(t *testing.T) {
	if _, err := BuildPipeline(&appconfig.Config{}, nil, nil, nil); err == nil {
		t.Fatalf("expected error without access token")
	}
}

func TestBuildPipelineWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		FeegowAccessToken: "token",
		RedisAddr:         mr.Addr(),
		MapTimezone:       "America/Sao_Paulo",
		HistoryDays:       28,
	}
	client := BuildRedisClient(context.Background(), cfg, nil, false)
	defer client.Close()

	p, err := BuildPipeline(cfg, client, nil, logging.Default())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Feegow == nil || p.Catalog == nil || p.Reports == nil {
		t.Fatalf("expected all pipeline services, got %+v", p)
	}
	if p.Reports.Location().String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location %s", p.Reports.Location())
	}
}

func TestMatrixOptions(t *testing.T) {
	opts := MatrixOptions(&appconfig.Config{ActiveStatusIDs: []int64{1, 7}, ExcludedRooms: []string{"Sala X"}})
	if !opts.Active.Contains(schedule.Status(7)) || opts.Active.Contains(schedule.Status(2)) {
		t.Fatalf("unexpected active set %v", opts.Active.Sorted())
	}
	if len(opts.ExcludedRooms) != 1 || opts.ExcludedRooms[0] != "Sala X" {
		t.Fatalf("unexpected excluded rooms %v", opts.ExcludedRooms)
	}
	if len(opts.AdminRoomKeywords) == 0 {
		t.Fatalf("expected default admin keywords")
	}
}
