package service

import (
	"context"

	"NetRisk/internal/domain/models"
)

// ScoreSource is the external data/model collaborator. It supplies, per
// recomputation, the entity universe plus each horizon's gross obligation
// matrix and per-entity predicted/risk scores.
type ScoreSource interface {
	Fetch(ctx context.Context, horizons int) (*models.ForecastInput, error)
	Refresh(ctx context.Context) error // re-pull the underlying market data window
	Health(ctx context.Context) error
}
