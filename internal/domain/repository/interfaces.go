package repository

import (
	"context"
	"time"

	"NetRisk/internal/domain/models"
)

// SnapshotArchive persists per-horizon summaries of published forecasts.
type SnapshotArchive interface {
	Init(ctx context.Context) error // ensure tables exist
	StoreRun(ctx context.Context, computedAt time.Time, snaps []models.HorizonSnapshot) error
	RecentRuns(ctx context.Context, limit int) ([]models.HistoryRow, error)
	Health(ctx context.Context) error
	Close() error
}

// BacktestArchive reads archived stability series back for accuracy
// evaluation and persists evaluation summaries.
type BacktestArchive interface {
	StabilitySeries(ctx context.Context, lastRuns int) ([]models.BacktestPoint, error)
	StoreBacktest(ctx context.Context, at time.Time, lookback int, agg models.BacktestAggregate) error
	RecentBacktests(ctx context.Context, limit int) ([]models.BacktestHistoryRow, error)
}

// AlertStore persists alert rule configuration.
type AlertStore interface {
	LoadAll(ctx context.Context) ([]models.AlertConfig, error)
	SaveAll(ctx context.Context, alerts []models.AlertConfig) error
}

// AlertPublisher ships triggered alert events to downstream consumers.
type AlertPublisher interface {
	PublishTriggered(ctx context.Context, events []models.AlertTriggered) error
	Close() error
}

// Metrics records operational measurements for the engine and its transports.
type Metrics interface {
	RecordTick(result string)
	RecordError(kind string)
	RecordHorizon(horizon int, stability, netLoad, payloadReduction float64)
	RecordLatency(op string, seconds float64)
	RecordConvergenceMiss(stage string)
}
