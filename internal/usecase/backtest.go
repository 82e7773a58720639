package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	applogger "NetRisk/pkg/logger"
	xutil "NetRisk/pkg/util"
)

// backtestMaxResults bounds the per-run detail returned in a report; the
// aggregate still covers the whole evaluated window.
const backtestMaxResults = 10

// Backtester measures how well past forecasts predicted what the engine
// later measured: each archived run's horizon-1 stability is treated as the
// prediction for the horizon-0 stability of the run that followed it.
type Backtester struct {
	archive drepo.BacktestArchive
	metrics drepo.Metrics
	logger  *applogger.Logger
}

func NewBacktester(archive drepo.BacktestArchive, m drepo.Metrics, logger *applogger.Logger) *Backtester {
	return &Backtester{archive: archive, metrics: m, logger: logger}
}

// Available reports whether an archive backs this backtester.
func (b *Backtester) Available() bool { return b.archive != nil }

// Run evaluates prediction accuracy over the most recent lookback runs and
// persists the aggregate. An archive with fewer than two runs yields an
// empty report rather than an error.
func (b *Backtester) Run(ctx context.Context, lookback int) (*models.BacktestReport, error) {
	start := time.Now()
	points, err := b.archive.StabilitySeries(ctx, lookback)
	if err != nil {
		return nil, fmt.Errorf("backtest series: %w", err)
	}

	runs := groupRuns(points)
	report := evaluateRuns(runs)
	report.Timestamp = xutil.Timestamp()

	if report.Aggregate.TotalRuns > 0 {
		if err := b.archive.StoreBacktest(ctx, start.UTC(), lookback, report.Aggregate); err != nil {
			b.logger.Warn("persist backtest failed", applogger.Error(err))
		}
	}
	if b.metrics != nil {
		b.metrics.RecordLatency("backtest", time.Since(start).Seconds())
	}
	return report, nil
}

// History returns stored evaluation summaries, newest first.
func (b *Backtester) History(ctx context.Context, limit int) ([]models.BacktestHistoryRow, error) {
	rows, err := b.archive.RecentBacktests(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("backtest history: %w", err)
	}
	return rows, nil
}

// backtestRun holds one archived run's first two horizon stabilities.
type backtestRun struct {
	at         string
	current    float64 // horizon 0
	predicted  float64 // horizon 1
	hasForward bool
}

// groupRuns folds the per-(run, horizon) series into per-run records, oldest
// first. The series arrives newest first with horizons ascending within a
// run.
func groupRuns(points []models.BacktestPoint) []backtestRun {
	var runs []backtestRun
	for _, p := range points {
		if len(runs) == 0 || runs[len(runs)-1].at != p.ComputedAt {
			runs = append(runs, backtestRun{at: p.ComputedAt})
		}
		r := &runs[len(runs)-1]
		switch p.Horizon {
		case 0:
			r.current = p.Stability
		case 1:
			r.predicted = p.Stability
			r.hasForward = true
		}
	}
	for l, r := 0, len(runs)-1; l < r; l, r = l+1, r-1 {
		runs[l], runs[r] = runs[r], runs[l]
	}
	return runs
}

// evaluateRuns pairs each run's prediction with the next run's measurement
// and aggregates the errors.
func evaluateRuns(runs []backtestRun) *models.BacktestReport {
	var (
		results   []models.BacktestRunResult
		predicted []float64
		actual    []float64
		sumAbs    float64
		hits      int
	)
	for i := 0; i+1 < len(runs); i++ {
		prev, next := runs[i], runs[i+1]
		if !prev.hasForward {
			continue
		}
		absErr := math.Abs(prev.predicted - next.current)
		hit := sign(prev.predicted-prev.current) == sign(next.current-prev.current)
		results = append(results, models.BacktestRunResult{
			Date:         next.at,
			Predicted:    prev.predicted,
			Actual:       next.current,
			AbsError:     absErr,
			DirectionHit: hit,
		})
		predicted = append(predicted, prev.predicted)
		actual = append(actual, next.current)
		sumAbs += absErr
		if hit {
			hits++
		}
	}

	report := &models.BacktestReport{}
	n := len(results)
	report.Aggregate.TotalRuns = n
	if n == 0 {
		return report
	}

	mae := sumAbs / float64(n)
	dirAcc := float64(hits) / float64(n)
	corr := correlation(predicted, actual)
	report.Aggregate.AvgMAE = &mae
	report.Aggregate.AvgDirectionalAccuracy = &dirAcc
	report.Aggregate.Correlation = &corr

	best, worst := 0, 0
	for i, r := range results {
		if r.AbsError < results[best].AbsError {
			best = i
		}
		if r.AbsError > results[worst].AbsError {
			worst = i
		}
	}
	report.Aggregate.BestRun = results[best].Date
	report.Aggregate.WorstRun = results[worst].Date

	if n > backtestMaxResults {
		results = results[n-backtestMaxResults:]
	}
	report.Results = results
	return report
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// correlation is the Pearson coefficient, 0 when either series is constant.
func correlation(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}
