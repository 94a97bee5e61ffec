package gbmwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gbmwave/internal/domain"
)

func TestNewClient(t *testing.T) {
	baseURL := "http://localhost:8080"
	c := NewClient(baseURL)

	if c.baseURL != baseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestClientSnapshot(t *testing.T) {
	want := domain.Snapshot{SessionID: "abc", UpdateCount: 3, HasPrice: true, LatestPrice: 101.5}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/snapshot" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if got.SessionID != want.SessionID || got.UpdateCount != want.UpdateCount {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestClientHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	ok, err := c.Healthy(context.Background())
	if err != nil {
		t.Fatalf("Healthy() error = %v", err)
	}
	if ok {
		t.Error("Healthy() = true, want false for 503 response")
	}
}
