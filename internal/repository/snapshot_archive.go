package repository

import (
	"context"
	"fmt"
	"time"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	pkgch "NetRisk/pkg/clickhouse"
	xutil "NetRisk/pkg/util"
)

var archiveSchema = []string{
	"CREATE DATABASE IF NOT EXISTS netrisk",
	`CREATE TABLE IF NOT EXISTS netrisk.forecast_runs (
		computed_at       DateTime,
		horizon           UInt16,
		stability         Float64,
		is_stable         UInt8,
		raw_load          Float64,
		net_load          Float64,
		payload_reduction Float64,
		risk_buffer       Float64,
		worst_case_buffer Float64
	) ENGINE=MergeTree ORDER BY (computed_at, horizon)`,
	`CREATE TABLE IF NOT EXISTS netrisk.backtest_runs (
		run_at                   DateTime,
		lookback                 UInt16,
		total_runs               UInt16,
		avg_mae                  Float64,
		avg_directional_accuracy Float64,
		correlation              Float64
	) ENGINE=MergeTree ORDER BY run_at`,
}

// SnapshotArchive stores per-horizon run summaries in ClickHouse and serves
// them back for the history endpoint.
type SnapshotArchive struct {
	ch *pkgch.Client
}

func NewSnapshotArchive(ch *pkgch.Client) *SnapshotArchive {
	return &SnapshotArchive{ch: ch}
}

var (
	_ drepo.SnapshotArchive = (*SnapshotArchive)(nil)
	_ drepo.BacktestArchive = (*SnapshotArchive)(nil)
)

func (a *SnapshotArchive) Init(ctx context.Context) error {
	return a.ch.InitSchema(ctx, archiveSchema)
}

func (a *SnapshotArchive) StoreRun(ctx context.Context, computedAt time.Time, snaps []models.HorizonSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := a.ch.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive begin: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO netrisk.forecast_runs
		(computed_at, horizon, stability, is_stable, raw_load, net_load, payload_reduction, risk_buffer, worst_case_buffer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("archive prepare: %w", err)
	}
	defer stmt.Close()

	for _, s := range snaps {
		stable := uint8(0)
		if s.IsStable {
			stable = 1
		}
		if _, err := stmt.ExecContext(ctx, computedAt, uint16(s.Horizon), s.Stability, stable,
			s.RawLoad, s.NetLoad, s.PayloadReduction, s.RiskBuffer, s.WorstCaseBuffer); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("archive insert horizon %d: %w", s.Horizon, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive commit: %w", err)
	}
	return nil
}

func (a *SnapshotArchive) RecentRuns(ctx context.Context, limit int) ([]models.HistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.ch.DB().QueryContext(ctx, `SELECT
		computed_at, horizon, stability, is_stable, raw_load, net_load, payload_reduction, risk_buffer, worst_case_buffer
		FROM netrisk.forecast_runs ORDER BY computed_at DESC, horizon ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive query: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryRow
	for rows.Next() {
		var (
			at     time.Time
			h      uint16
			stable uint8
			r      models.HistoryRow
		)
		if err := rows.Scan(&at, &h, &r.Stability, &stable, &r.RawLoad, &r.NetLoad,
			&r.PayloadReduction, &r.RiskBuffer, &r.WorstCaseBuffer); err != nil {
			return nil, fmt.Errorf("archive scan: %w", err)
		}
		r.ComputedAt = xutil.FormatTimestamp(at)
		r.Horizon = int(h)
		r.IsStable = stable == 1
		out = append(out, r)
	}
	return out, rows.Err()
}

// StabilitySeries returns the stability of the first two horizons of the most
// recent lastRuns runs, newest first.
func (a *SnapshotArchive) StabilitySeries(ctx context.Context, lastRuns int) ([]models.BacktestPoint, error) {
	if lastRuns <= 0 {
		lastRuns = 30
	}
	rows, err := a.ch.DB().QueryContext(ctx, `SELECT computed_at, horizon, stability
		FROM netrisk.forecast_runs WHERE horizon <= 1
		ORDER BY computed_at DESC, horizon ASC LIMIT ?`, 2*lastRuns)
	if err != nil {
		return nil, fmt.Errorf("series query: %w", err)
	}
	defer rows.Close()

	var out []models.BacktestPoint
	for rows.Next() {
		var (
			at time.Time
			h  uint16
			p  models.BacktestPoint
		)
		if err := rows.Scan(&at, &h, &p.Stability); err != nil {
			return nil, fmt.Errorf("series scan: %w", err)
		}
		p.ComputedAt = xutil.FormatTimestamp(at)
		p.Horizon = int(h)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (a *SnapshotArchive) StoreBacktest(ctx context.Context, at time.Time, lookback int, agg models.BacktestAggregate) error {
	mae, dir, corr := 0.0, 0.0, 0.0
	if agg.AvgMAE != nil {
		mae = *agg.AvgMAE
	}
	if agg.AvgDirectionalAccuracy != nil {
		dir = *agg.AvgDirectionalAccuracy
	}
	if agg.Correlation != nil {
		corr = *agg.Correlation
	}
	_, err := a.ch.DB().ExecContext(ctx, `INSERT INTO netrisk.backtest_runs
		(run_at, lookback, total_runs, avg_mae, avg_directional_accuracy, correlation)
		VALUES (?, ?, ?, ?, ?, ?)`, at, uint16(lookback), uint16(agg.TotalRuns), mae, dir, corr)
	if err != nil {
		return fmt.Errorf("backtest insert: %w", err)
	}
	return nil
}

func (a *SnapshotArchive) RecentBacktests(ctx context.Context, limit int) ([]models.BacktestHistoryRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.ch.DB().QueryContext(ctx, `SELECT
		run_at, lookback, total_runs, avg_mae, avg_directional_accuracy, correlation
		FROM netrisk.backtest_runs ORDER BY run_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("backtest query: %w", err)
	}
	defer rows.Close()

	var out []models.BacktestHistoryRow
	for rows.Next() {
		var (
			at       time.Time
			lookback uint16
			total    uint16
			r        models.BacktestHistoryRow
		)
		if err := rows.Scan(&at, &lookback, &total, &r.AvgMAE, &r.AvgDirectionalAccuracy, &r.Correlation); err != nil {
			return nil, fmt.Errorf("backtest scan: %w", err)
		}
		r.RunAt = xutil.FormatTimestamp(at)
		r.Lookback = int(lookback)
		r.TotalRuns = int(total)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (a *SnapshotArchive) Health(ctx context.Context) error {
	return a.ch.Health(ctx)
}

func (a *SnapshotArchive) Close() error {
	return a.ch.Close()
}
