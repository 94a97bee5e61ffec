package sessionapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gbmwave/internal/barsource"
	"gbmwave/internal/domain"
	"gbmwave/internal/live"
	"gbmwave/internal/population"
	"gbmwave/internal/simulate"
	"gbmwave/internal/timeframestore"
	"gbmwave/internal/util"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	anchor := time.Date(2024, 1, 8, 9, 30, 0, 0, time.UTC)
	m := simulate.Generate(simulate.Request{StartingPrice: 100, HorizonMin: 5, NumPaths: 20, Seed: 1, AnchorTime: anchor})
	pop := population.New(m)
	store := timeframestore.New("QQQ")
	source := barsource.NewReplayBarSource()

	u := live.New(live.Config{Symbol: "QQQ", Tolerance: 0.01, UpdateInterval: time.Hour}, store, pop, source, util.NewLogger("error"))
	return NewServer("127.0.0.1:0", "127.0.0.1:0", u, util.NewLogger("error"))
}

func TestHandleHealthzBeforeFirstSnapshot(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandleSnapshotReturnsJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil)
	rec := httptest.NewRecorder()
	s.handleSnapshot(rec, req)

	var snap domain.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestHandleZonesEmptyArrayNotNull(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/zones", nil)
	rec := httptest.NewRecorder()
	s.handleZones(rec, req)

	body := rec.Body.String()
	if body == "null\n" || body == "null" {
		t.Errorf("expected empty array, got literal null: %q", body)
	}
}
