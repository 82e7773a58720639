package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"NetRisk/internal/domain/models"
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

type stubSource struct {
	mu       sync.Mutex
	input    *models.ForecastInput
	fetchErr error
	fetches  int
	block    chan struct{} // when set, Fetch blocks until closed
}

func (s *stubSource) Fetch(ctx context.Context, horizons int) (*models.ForecastInput, error) {
	s.mu.Lock()
	s.fetches++
	block, fetchErr, input := s.block, s.fetchErr, s.input
	s.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return input, nil
}

func (s *stubSource) Refresh(ctx context.Context) error { return nil }
func (s *stubSource) Health(ctx context.Context) error  { return nil }

type stubArchive struct {
	mu     sync.Mutex
	stored int
	err    error
}

func (a *stubArchive) Init(ctx context.Context) error { return nil }
func (a *stubArchive) StoreRun(ctx context.Context, at time.Time, snaps []models.HorizonSnapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stored++
	return a.err
}
func (a *stubArchive) RecentRuns(ctx context.Context, limit int) ([]models.HistoryRow, error) {
	return nil, nil
}
func (a *stubArchive) Health(ctx context.Context) error { return nil }
func (a *stubArchive) Close() error                     { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordTick(string)                              {}
func (nopMetrics) RecordError(string)                             {}
func (nopMetrics) RecordHorizon(int, float64, float64, float64)   {}
func (nopMetrics) RecordLatency(string, float64)                  {}
func (nopMetrics) RecordConvergenceMiss(string)                   {}

func defaultParams() EngineParams {
	return EngineParams{
		Horizons:           2,
		NettingMaxCycles:   10000,
		CentralityTol:      1e-9,
		CentralityMaxIters: 100,
		SeedHubThreshold:   0.7,
		StabilityThreshold: 1.0,
		ContagionMaxPasses: 1000,
		HighRiskThreshold:  0.7,
	}
}

func horizonInput(obl [][]float64, scores, risks []float64) models.HorizonInput {
	return models.HorizonInput{Obligations: obl, PredictedScores: scores, RiskFactors: risks}
}

func TestRunTickPublishesFullCycleCancellation(t *testing.T) {
	// A->B 10, B->C 10, C->A 10 cancels completely.
	obl := [][]float64{
		{0, 10, 0},
		{0, 0, 10},
		{10, 0, 0},
	}
	src := &stubSource{input: &models.ForecastInput{
		Tickers: []string{"A", "B", "C"},
		Horizons: []models.HorizonInput{
			horizonInput(obl, []float64{0.5, 0.5, 0.5}, []float64{0.1, 0.2, 0.3}),
		},
		TotalDays: 90,
		ModelType: "gbm",
	}}
	store := NewResultStore()
	orch := NewOrchestrator(src, store, nil, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	result, version := store.Current()
	if result == nil || version != 1 {
		t.Fatalf("expected published result at version 1, got %v/%d", result, version)
	}
	if len(result.Horizons) != 1 {
		t.Fatalf("horizons = %d, want 1", len(result.Horizons))
	}
	snap := result.Horizons[0]
	if snap.Horizon != 0 {
		t.Errorf("horizon index = %d, want 0", snap.Horizon)
	}
	if snap.RawLoad != 30 {
		t.Errorf("raw_load = %v, want 30", snap.RawLoad)
	}
	if snap.NetLoad != 0 {
		t.Errorf("net_load = %v, want 0", snap.NetLoad)
	}
	if snap.PayloadReduction != 100 {
		t.Errorf("payload_reduction = %v, want 100", snap.PayloadReduction)
	}
	if !snap.IsStable {
		t.Errorf("expected stable system after full cancellation")
	}
	if len(snap.EdgesBefore) != 3 {
		t.Errorf("edges_before = %d, want 3", len(snap.EdgesBefore))
	}
	if len(snap.EdgesAfter) != 0 {
		t.Errorf("edges_after = %d, want 0", len(snap.EdgesAfter))
	}
	if snap.EdgesBefore[0].Source != "A" || snap.EdgesBefore[0].Target != "B" {
		t.Errorf("first edge = %s->%s, want A->B", snap.EdgesBefore[0].Source, snap.EdgesBefore[0].Target)
	}
	if result.Metadata.NumBanks != 3 || result.Metadata.ModelType != "gbm" {
		t.Errorf("metadata = %+v", result.Metadata)
	}
}

func TestRunTickEmptyMatrix(t *testing.T) {
	obl := [][]float64{
		{0, 0},
		{0, 0},
	}
	src := &stubSource{input: &models.ForecastInput{
		Tickers: []string{"A", "B"},
		Horizons: []models.HorizonInput{
			horizonInput(obl, []float64{0.5, 0.5}, []float64{0.5, 0.5}),
		},
	}}
	store := NewResultStore()
	orch := NewOrchestrator(src, store, nil, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	result, _ := store.Current()
	snap := result.Horizons[0]
	if snap.RawLoad != 0 || snap.NetLoad != 0 {
		t.Errorf("loads = %v/%v, want 0/0", snap.RawLoad, snap.NetLoad)
	}
	if snap.PayloadReduction != 0 {
		t.Errorf("payload_reduction = %v, want 0 for empty matrix", snap.PayloadReduction)
	}
	if !snap.IsStable || snap.Stability != 0 {
		t.Errorf("empty system should be trivially stable, got stability=%v stable=%v", snap.Stability, snap.IsStable)
	}
}

func TestRunTickFetchFailureKeepsPreviousResult(t *testing.T) {
	obl := [][]float64{{0, 5}, {0, 0}}
	src := &stubSource{input: &models.ForecastInput{
		Tickers: []string{"A", "B"},
		Horizons: []models.HorizonInput{
			horizonInput(obl, []float64{0.5, 0.5}, []float64{0.1, 0.1}),
		},
	}}
	store := NewResultStore()
	orch := NewOrchestrator(src, store, nil, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err != nil {
		t.Fatalf("first RunTick: %v", err)
	}
	before, v1 := store.Current()

	src.mu.Lock()
	src.fetchErr = errors.New("connection refused")
	src.mu.Unlock()

	err := orch.RunTick(context.Background())
	if !errors.Is(err, ErrDataUnavailable) {
		t.Fatalf("err = %v, want ErrDataUnavailable", err)
	}
	after, v2 := store.Current()
	if after != before || v2 != v1 {
		t.Errorf("failed tick must not disturb the published result")
	}
}

func TestRunTickSkipsInvalidHorizon(t *testing.T) {
	good := horizonInput([][]float64{{0, 5}, {0, 0}}, []float64{0.5, 0.5}, []float64{0.1, 0.1})
	bad := horizonInput([][]float64{{0, -1}, {0, 0}}, []float64{0.5, 0.5}, []float64{0.1, 0.1})
	src := &stubSource{input: &models.ForecastInput{
		Tickers:  []string{"A", "B"},
		Horizons: []models.HorizonInput{bad, good},
	}}
	store := NewResultStore()
	orch := NewOrchestrator(src, store, nil, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	result, _ := store.Current()
	if len(result.Horizons) != 1 {
		t.Fatalf("horizons = %d, want 1 (invalid one skipped)", len(result.Horizons))
	}
	if result.Horizons[0].Horizon != 1 {
		t.Errorf("surviving horizon index = %d, want 1", result.Horizons[0].Horizon)
	}
}

func TestRunTickAllHorizonsInvalidErrors(t *testing.T) {
	bad := horizonInput([][]float64{{1, 0}, {0, 0}}, []float64{0.5, 0.5}, []float64{0.1, 0.1})
	src := &stubSource{input: &models.ForecastInput{
		Tickers:  []string{"A", "B"},
		Horizons: []models.HorizonInput{bad},
	}}
	store := NewResultStore()
	orch := NewOrchestrator(src, store, nil, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err == nil {
		t.Fatal("expected error when every horizon fails validation")
	}
	if result, _ := store.Current(); result != nil {
		t.Error("nothing should be published when every horizon fails")
	}
}

func TestRunTickBufferOrdering(t *testing.T) {
	obl := [][]float64{
		{0, 8, 3},
		{2, 0, 7},
		{5, 1, 0},
	}
	src := &stubSource{input: &models.ForecastInput{
		Tickers: []string{"A", "B", "C"},
		Horizons: []models.HorizonInput{
			horizonInput(obl, []float64{0.4, 0.6, 0.2}, []float64{0.6, 0.6, 0.6}),
		},
	}}
	store := NewResultStore()
	orch := NewOrchestrator(src, store, nil, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err != nil {
		t.Fatalf("RunTick: %v", err)
	}
	result, _ := store.Current()
	snap := result.Horizons[0]
	if snap.RiskAdjustedNetLoad < snap.NetLoad {
		t.Errorf("risk_adjusted_net_load %v < net_load %v", snap.RiskAdjustedNetLoad, snap.NetLoad)
	}
	if snap.WorstCaseNetLoad < snap.RiskAdjustedNetLoad {
		t.Errorf("worst_case_net_load %v < risk_adjusted_net_load %v", snap.WorstCaseNetLoad, snap.RiskAdjustedNetLoad)
	}
	if snap.WorstCasePayloadReduction > snap.RiskAdjustedPayloadReduction {
		t.Errorf("worst_case reduction %v > risk_adjusted reduction %v",
			snap.WorstCasePayloadReduction, snap.RiskAdjustedPayloadReduction)
	}
}

func TestRunTickArchivesBestEffort(t *testing.T) {
	obl := [][]float64{{0, 5}, {0, 0}}
	src := &stubSource{input: &models.ForecastInput{
		Tickers: []string{"A", "B"},
		Horizons: []models.HorizonInput{
			horizonInput(obl, []float64{0.5, 0.5}, []float64{0.1, 0.1}),
		},
	}}
	store := NewResultStore()
	archive := &stubArchive{err: errors.New("clickhouse down")}
	orch := NewOrchestrator(src, store, archive, nopMetrics{}, testLogger(t), defaultParams())

	if err := orch.RunTick(context.Background()); err != nil {
		t.Fatalf("archive failure must not fail the tick: %v", err)
	}
	archive.mu.Lock()
	stored := archive.stored
	archive.mu.Unlock()
	if stored != 1 {
		t.Errorf("archive writes = %d, want 1", stored)
	}
	if result, _ := store.Current(); result == nil {
		t.Error("result must publish even when archiving fails")
	}
}
