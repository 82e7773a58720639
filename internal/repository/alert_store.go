package repository

import (
	"context"
	"fmt"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	"NetRisk/pkg/cache"
)

const alertConfigKey = "alerts:config"

// AlertStore persists alert rules as a single JSON document in Redis. Rules
// survive restarts; the set is small enough that whole-document writes win
// over per-rule keys.
type AlertStore struct {
	cache cache.Service
}

func NewAlertStore(cacheSvc cache.Service) drepo.AlertStore {
	return &AlertStore{cache: cacheSvc}
}

func (s *AlertStore) LoadAll(ctx context.Context) ([]models.AlertConfig, error) {
	var alerts []models.AlertConfig
	err := s.cache.Get(ctx, alertConfigKey, &alerts)
	if err == cache.ErrCacheMiss {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load alert config: %w", err)
	}
	return alerts, nil
}

func (s *AlertStore) SaveAll(ctx context.Context, alerts []models.AlertConfig) error {
	if err := s.cache.Set(ctx, alertConfigKey, alerts, 0); err != nil {
		return fmt.Errorf("save alert config: %w", err)
	}
	return nil
}
