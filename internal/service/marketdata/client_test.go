package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"NetRisk/pkg/cache"
	applogger "NetRisk/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func scoresHandler(hits *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/api/v1/scores":
			hits.Add(1)
			_ = json.NewEncoder(w).Encode(scoresPayload{
				Tickers:   []string{"A", "B"},
				TotalDays: 90,
				DateRange: []string{"2026-01-01", "2026-03-31"},
				ModelType: "gbm",
				Horizons: []horizonPayload{{
					Obligations:     [][]float64{{0, 5}, {0, 0}},
					PredictedScores: []float64{0.5, 0.5},
					RiskFactors:     []float64{0.1, 0.1},
				}},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestFetchParsesUpstream(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(scoresHandler(&hits))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil, testLogger(t))
	input, err := client.Fetch(context.Background(), 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(input.Tickers) != 2 || input.TotalDays != 90 || input.ModelType != "gbm" {
		t.Errorf("input = %+v", input)
	}
	if len(input.Horizons) != 1 || input.Horizons[0].Obligations[0][1] != 5 {
		t.Errorf("horizons = %+v", input.Horizons)
	}
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(scoresHandler(&hits))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, CacheTTL: time.Minute}, cache.NewMemoryCache(), testLogger(t))
	for i := 0; i < 3; i++ {
		if _, err := client.Fetch(context.Background(), 1); err != nil {
			t.Fatalf("Fetch %d: %v", i, err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("upstream hits = %d, want 1 (cached)", got)
	}
}

func TestFetchRejectsEmptyUniverse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(scoresPayload{})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil, testLogger(t))
	if _, err := client.Fetch(context.Background(), 1); err == nil {
		t.Fatal("expected error for empty ticker universe")
	}
}

func TestHealthSurfacesUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil, testLogger(t))
	if err := client.Health(context.Background()); err == nil {
		t.Fatal("expected health error for 503 upstream")
	}
}
