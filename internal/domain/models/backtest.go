package models

// BacktestPoint is one (run, horizon) stability sample read back from the
// archive.
type BacktestPoint struct {
	ComputedAt string
	Horizon    int
	Stability  float64
}

// BacktestRunResult compares one run's nearest-horizon prediction with the
// stability the following run actually measured.
type BacktestRunResult struct {
	Date         string  `json:"date"`
	Predicted    float64 `json:"predicted_stability"`
	Actual       float64 `json:"actual_stability"`
	AbsError     float64 `json:"abs_error"`
	DirectionHit bool    `json:"direction_hit"`
}

// BacktestAggregate summarizes accuracy over the evaluated window. The metric
// pointers are nil when fewer than two runs were available to compare.
type BacktestAggregate struct {
	TotalRuns              int      `json:"total_runs"`
	AvgMAE                 *float64 `json:"avg_mae"`
	AvgDirectionalAccuracy *float64 `json:"avg_directional_accuracy"`
	Correlation            *float64 `json:"correlation"`
	BestRun                string   `json:"best_run,omitempty"`
	WorstRun               string   `json:"worst_run,omitempty"`
}

// BacktestReport is the full evaluation served by /api/backtest.
type BacktestReport struct {
	Aggregate BacktestAggregate   `json:"aggregate"`
	Results   []BacktestRunResult `json:"results"`
	Timestamp string              `json:"timestamp"`
}

// BacktestHistoryRow is one stored evaluation served by /api/backtest/history.
type BacktestHistoryRow struct {
	RunAt                  string  `json:"run_at"`
	Lookback               int     `json:"lookback"`
	TotalRuns              int     `json:"total_runs"`
	AvgMAE                 float64 `json:"avg_mae"`
	AvgDirectionalAccuracy float64 `json:"avg_directional_accuracy"`
	Correlation            float64 `json:"correlation"`
}
