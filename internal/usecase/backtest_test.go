package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"NetRisk/internal/domain/models"
)

type memBacktestArchive struct {
	points  []models.BacktestPoint
	stored  []models.BacktestAggregate
	history []models.BacktestHistoryRow
}

func (a *memBacktestArchive) StabilitySeries(ctx context.Context, lastRuns int) ([]models.BacktestPoint, error) {
	n := 2 * lastRuns
	if n > len(a.points) {
		n = len(a.points)
	}
	return a.points[:n], nil
}

func (a *memBacktestArchive) StoreBacktest(ctx context.Context, at time.Time, lookback int, agg models.BacktestAggregate) error {
	a.stored = append(a.stored, agg)
	return nil
}

func (a *memBacktestArchive) RecentBacktests(ctx context.Context, limit int) ([]models.BacktestHistoryRow, error) {
	if limit > len(a.history) {
		limit = len(a.history)
	}
	return a.history[:limit], nil
}

// seriesFor builds the archive read shape: newest run first, horizons
// ascending within each run. stabilities[i] is {horizon0, horizon1} of the
// i-th run in chronological order.
func seriesFor(stabilities [][2]float64) []models.BacktestPoint {
	var points []models.BacktestPoint
	for i := len(stabilities) - 1; i >= 0; i-- {
		at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute).Format(time.RFC3339)
		points = append(points,
			models.BacktestPoint{ComputedAt: at, Horizon: 0, Stability: stabilities[i][0]},
			models.BacktestPoint{ComputedAt: at, Horizon: 1, Stability: stabilities[i][1]},
		)
	}
	return points
}

func TestBacktestPairsConsecutiveRuns(t *testing.T) {
	// run 0 predicts 0.5 for the next run, which measures 0.6
	// run 1 predicts 0.8 for the next run, which measures 0.8
	archive := &memBacktestArchive{points: seriesFor([][2]float64{
		{0.4, 0.5},
		{0.6, 0.8},
		{0.8, 0.9},
	})}
	b := NewBacktester(archive, nil, testLogger(t))

	report, err := b.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aggregate.TotalRuns != 2 {
		t.Fatalf("total runs = %d, want 2", report.Aggregate.TotalRuns)
	}
	first := report.Results[0]
	if first.Predicted != 0.5 || first.Actual != 0.6 {
		t.Errorf("first pair = %.2f/%.2f, want 0.5/0.6", first.Predicted, first.Actual)
	}
	if !first.DirectionHit {
		t.Error("run 0 predicted a rise and stability rose, direction should hit")
	}
	if report.Aggregate.AvgMAE == nil {
		t.Fatal("avg_mae should be set")
	}
	wantMAE := (math.Abs(0.5-0.6) + math.Abs(0.8-0.8)) / 2
	if math.Abs(*report.Aggregate.AvgMAE-wantMAE) > 1e-12 {
		t.Errorf("avg_mae = %v, want %v", *report.Aggregate.AvgMAE, wantMAE)
	}
	if report.Aggregate.AvgDirectionalAccuracy == nil || *report.Aggregate.AvgDirectionalAccuracy != 1.0 {
		t.Errorf("directional accuracy = %v, want 1.0", report.Aggregate.AvgDirectionalAccuracy)
	}
	if len(archive.stored) != 1 {
		t.Errorf("stored aggregates = %d, want 1", len(archive.stored))
	}
}

func TestBacktestDirectionMiss(t *testing.T) {
	// the run predicts a rise but stability falls
	archive := &memBacktestArchive{points: seriesFor([][2]float64{
		{0.6, 0.9},
		{0.3, 0.3},
	})}
	b := NewBacktester(archive, nil, testLogger(t))

	report, err := b.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aggregate.TotalRuns != 1 {
		t.Fatalf("total runs = %d, want 1", report.Aggregate.TotalRuns)
	}
	if report.Results[0].DirectionHit {
		t.Error("predicted rise against a measured fall should miss")
	}
	if *report.Aggregate.AvgDirectionalAccuracy != 0 {
		t.Errorf("directional accuracy = %v, want 0", *report.Aggregate.AvgDirectionalAccuracy)
	}
}

func TestBacktestEmptyArchive(t *testing.T) {
	b := NewBacktester(&memBacktestArchive{}, nil, testLogger(t))

	report, err := b.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aggregate.TotalRuns != 0 {
		t.Errorf("total runs = %d, want 0", report.Aggregate.TotalRuns)
	}
	if report.Aggregate.AvgMAE != nil || report.Aggregate.AvgDirectionalAccuracy != nil {
		t.Error("metrics should be nil with no run pairs")
	}
	if len(report.Results) != 0 {
		t.Errorf("results = %d, want 0", len(report.Results))
	}
}

func TestBacktestResultsCapped(t *testing.T) {
	stabilities := make([][2]float64, 20)
	for i := range stabilities {
		v := 0.5 + 0.01*float64(i)
		stabilities[i] = [2]float64{v, v + 0.02}
	}
	archive := &memBacktestArchive{points: seriesFor(stabilities)}
	b := NewBacktester(archive, nil, testLogger(t))

	report, err := b.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Aggregate.TotalRuns != 19 {
		t.Errorf("total runs = %d, want 19", report.Aggregate.TotalRuns)
	}
	if len(report.Results) != backtestMaxResults {
		t.Errorf("results = %d, want capped at %d", len(report.Results), backtestMaxResults)
	}
}

func TestCorrelationConstantSeriesIsZero(t *testing.T) {
	if got := correlation([]float64{1, 1, 1}, []float64{1, 2, 3}); got != 0 {
		t.Errorf("constant predictions: corr = %v, want 0", got)
	}
	got := correlation([]float64{1, 2, 3}, []float64{2, 4, 6})
	if math.Abs(got-1) > 1e-12 {
		t.Errorf("linear series: corr = %v, want 1", got)
	}
}
