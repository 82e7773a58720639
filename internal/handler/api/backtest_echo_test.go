package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"NetRisk/internal/domain/models"
	"NetRisk/internal/usecase"
	xlogger "NetRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeBacktestArchive struct {
	points  []models.BacktestPoint
	history []models.BacktestHistoryRow
}

func (a *fakeBacktestArchive) StabilitySeries(ctx context.Context, lastRuns int) ([]models.BacktestPoint, error) {
	return a.points, nil
}

func (a *fakeBacktestArchive) StoreBacktest(ctx context.Context, at time.Time, lookback int, agg models.BacktestAggregate) error {
	return nil
}

func (a *fakeBacktestArchive) RecentBacktests(ctx context.Context, limit int) ([]models.BacktestHistoryRow, error) {
	if limit > len(a.history) {
		limit = len(a.history)
	}
	return a.history[:limit], nil
}

func newBacktestEcho(t *testing.T, archive *fakeBacktestArchive) *echo.Echo {
	t.Helper()
	logger, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	var b *usecase.Backtester
	if archive != nil {
		b = usecase.NewBacktester(archive, nil, logger)
	} else {
		b = usecase.NewBacktester(nil, nil, logger)
	}
	e := echo.New()
	NewBacktestEchoHandler(logger, b).RegisterRoutes(e)
	return e
}

func TestBacktestEndpointEvaluatesArchive(t *testing.T) {
	// two runs, newest first: the older run's horizon-1 value predicts the
	// newer run's horizon-0 value
	archive := &fakeBacktestArchive{points: []models.BacktestPoint{
		{ComputedAt: "2026-08-02T00:00:00Z", Horizon: 0, Stability: 0.6},
		{ComputedAt: "2026-08-02T00:00:00Z", Horizon: 1, Stability: 0.7},
		{ComputedAt: "2026-08-01T00:00:00Z", Horizon: 0, Stability: 0.4},
		{ComputedAt: "2026-08-01T00:00:00Z", Horizon: 1, Stability: 0.5},
	}}
	e := newBacktestEcho(t, archive)

	rec := doRequest(e, http.MethodGet, "/api/backtest", "")
	status, data := decodeEnvelope(t, rec)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var report models.BacktestReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Aggregate.TotalRuns != 1 {
		t.Fatalf("total runs = %d, want 1", report.Aggregate.TotalRuns)
	}
	if got := report.Results[0]; got.Predicted != 0.5 || got.Actual != 0.6 {
		t.Errorf("pair = %.2f/%.2f, want 0.5/0.6", got.Predicted, got.Actual)
	}
}

func TestBacktestEndpointValidatesRuns(t *testing.T) {
	e := newBacktestEcho(t, &fakeBacktestArchive{})
	rec := doRequest(e, http.MethodGet, "/api/backtest?runs=9999", "")
	if status, _ := decodeEnvelope(t, rec); status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for out-of-range runs", status)
	}
}

func TestBacktestEndpointWithoutArchive(t *testing.T) {
	e := newBacktestEcho(t, nil)
	rec := doRequest(e, http.MethodGet, "/api/backtest", "")
	if status, _ := decodeEnvelope(t, rec); status != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without an archive", status)
	}
	rec = doRequest(e, http.MethodGet, "/api/backtest/history", "")
	if status, _ := decodeEnvelope(t, rec); status != http.StatusNotFound {
		t.Errorf("history status = %d, want 404 without an archive", status)
	}
}

func TestBacktestHistoryEndpoint(t *testing.T) {
	archive := &fakeBacktestArchive{history: []models.BacktestHistoryRow{
		{RunAt: "2026-08-02T00:00:00Z", Lookback: 30, TotalRuns: 12, AvgMAE: 0.05},
		{RunAt: "2026-08-01T00:00:00Z", Lookback: 30, TotalRuns: 11, AvgMAE: 0.06},
	}}
	e := newBacktestEcho(t, archive)

	rec := doRequest(e, http.MethodGet, "/api/backtest/history?limit=1", "")
	status, data := decodeEnvelope(t, rec)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var body struct {
		Rows  []models.BacktestHistoryRow `json:"rows"`
		Total int64                       `json:"total"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Rows) != 1 || body.Rows[0].TotalRuns != 12 {
		t.Errorf("rows = %+v, want the newest row only", body.Rows)
	}
}
