package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	applogger "NetRisk/pkg/logger"
	xutil "NetRisk/pkg/util"
)

const (
	triggeredRingSize     = 50
	triggeredDefaultLimit = 10
)

// AlertManager owns alert rule configuration and evaluates rules against the
// nearest-horizon snapshot of each published forecast. Triggered events keep
// the last triggeredRingSize firings in memory and are shipped to the
// publisher best-effort.
type AlertManager struct {
	store     drepo.AlertStore
	publisher drepo.AlertPublisher
	logger    *applogger.Logger

	mu        sync.RWMutex
	alerts    []models.AlertConfig
	triggered []models.AlertTriggered

	// last observed values for change-based alert types
	lastPayloadReduction float64
	lastTopHub           string
	hasBaseline          bool
}

func NewAlertManager(store drepo.AlertStore, publisher drepo.AlertPublisher, logger *applogger.Logger) *AlertManager {
	return &AlertManager{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// Load restores persisted rules, seeding defaults when none exist yet.
func (m *AlertManager) Load(ctx context.Context) error {
	alerts, err := m.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}
	if len(alerts) == 0 {
		alerts = defaultAlerts()
		if err := m.store.SaveAll(ctx, alerts); err != nil {
			m.logger.Warn("persist default alerts failed", applogger.Error(err))
		}
	}
	m.mu.Lock()
	m.alerts = alerts
	m.mu.Unlock()
	return nil
}

func defaultAlerts() []models.AlertConfig {
	now := xutil.Timestamp()
	return []models.AlertConfig{
		{
			ID:          uuid.NewString(),
			Type:        models.AlertStabilityThreshold,
			Name:        "Stability breach",
			Description: "Fires when the stability index crosses the critical threshold",
			Threshold:   1.0,
			Enabled:     true,
			CreatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Type:        models.AlertPayloadChange,
			Name:        "Low netting efficiency",
			Description: "Fires when payload reduction drops below the threshold percentage",
			Threshold:   20.0,
			Enabled:     true,
			CreatedAt:   now,
		},
		{
			ID:          uuid.NewString(),
			Type:        models.AlertHubShift,
			Name:        "Hub rotation",
			Description: "Fires when the most central entity changes between runs",
			Threshold:   0,
			Enabled:     true,
			CreatedAt:   now,
		},
	}
}

// List returns a copy of the configured rules.
func (m *AlertManager) List() []models.AlertConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.AlertConfig, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Create adds a rule and persists the full set.
func (m *AlertManager) Create(ctx context.Context, req models.AlertCreateRequest) (models.AlertConfig, error) {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	alert := models.AlertConfig{
		ID:          uuid.NewString(),
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Threshold:   req.Threshold,
		Enabled:     enabled,
		CreatedAt:   xutil.Timestamp(),
	}
	m.mu.Lock()
	m.alerts = append(m.alerts, alert)
	snapshot := make([]models.AlertConfig, len(m.alerts))
	copy(snapshot, m.alerts)
	m.mu.Unlock()

	if err := m.store.SaveAll(ctx, snapshot); err != nil {
		return models.AlertConfig{}, fmt.Errorf("persist alerts: %w", err)
	}
	return alert, nil
}

// Delete removes a rule by id. Returns false when no rule matches.
func (m *AlertManager) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	idx := -1
	for i := range m.alerts {
		if m.alerts[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return false, nil
	}
	m.alerts = append(m.alerts[:idx], m.alerts[idx+1:]...)
	snapshot := make([]models.AlertConfig, len(m.alerts))
	copy(snapshot, m.alerts)
	m.mu.Unlock()

	if err := m.store.SaveAll(ctx, snapshot); err != nil {
		return true, fmt.Errorf("persist alerts: %w", err)
	}
	return true, nil
}

// Triggered returns firings at or after since, newest last. A zero since
// returns the most recent triggeredDefaultLimit events.
func (m *AlertManager) Triggered(since time.Time) []models.AlertTriggered {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if since.IsZero() {
		recent := m.triggered
		if len(recent) > triggeredDefaultLimit {
			recent = recent[len(recent)-triggeredDefaultLimit:]
		}
		out := make([]models.AlertTriggered, len(recent))
		copy(out, recent)
		return out
	}
	out := make([]models.AlertTriggered, 0, len(m.triggered))
	for _, ev := range m.triggered {
		at, err := time.Parse(time.RFC3339, ev.TriggeredAt)
		if err == nil && at.Before(since) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Check evaluates all enabled rules against the nearest-horizon snapshot and
// records any firings. Returns the events fired by this call.
func (m *AlertManager) Check(ctx context.Context, snap *models.HorizonSnapshot) []models.AlertTriggered {
	if snap == nil {
		return nil
	}

	topHub := topHubTicker(snap.Banks)
	now := xutil.Timestamp()

	m.mu.Lock()
	var fired []models.AlertTriggered
	for _, rule := range m.alerts {
		if !rule.Enabled {
			continue
		}
		switch rule.Type {
		case models.AlertStabilityThreshold:
			if snap.Stability >= rule.Threshold {
				fired = append(fired, models.AlertTriggered{
					ID:           rule.ID,
					Type:         rule.Type,
					Name:         rule.Name,
					Message:      fmt.Sprintf("stability index %.4f reached threshold %.4f", snap.Stability, rule.Threshold),
					TriggeredAt:  now,
					CurrentValue: snap.Stability,
				})
			}
		case models.AlertPayloadChange:
			if snap.PayloadReduction < rule.Threshold {
				fired = append(fired, models.AlertTriggered{
					ID:           rule.ID,
					Type:         rule.Type,
					Name:         rule.Name,
					Message:      fmt.Sprintf("payload reduction %.1f%% below threshold %.1f%%", snap.PayloadReduction, rule.Threshold),
					TriggeredAt:  now,
					CurrentValue: snap.PayloadReduction,
				})
			}
		case models.AlertPayloadDelta:
			if m.hasBaseline {
				delta := snap.PayloadReduction - m.lastPayloadReduction
				if delta < 0 {
					delta = -delta
				}
				if delta > rule.Threshold {
					fired = append(fired, models.AlertTriggered{
						ID:           rule.ID,
						Type:         rule.Type,
						Name:         rule.Name,
						Message:      fmt.Sprintf("payload reduction moved %.4f -> %.4f", m.lastPayloadReduction, snap.PayloadReduction),
						TriggeredAt:  now,
						CurrentValue: snap.PayloadReduction,
					})
				}
			}
		case models.AlertHubShift:
			if m.hasBaseline && topHub != "" && m.lastTopHub != "" && topHub != m.lastTopHub {
				fired = append(fired, models.AlertTriggered{
					ID:          rule.ID,
					Type:        rule.Type,
					Name:        rule.Name,
					Message:     fmt.Sprintf("top hub shifted %s -> %s", m.lastTopHub, topHub),
					TriggeredAt: now,
				})
			}
		}
	}

	m.lastPayloadReduction = snap.PayloadReduction
	if topHub != "" {
		m.lastTopHub = topHub
	}
	m.hasBaseline = true

	if len(fired) > 0 {
		m.triggered = append(m.triggered, fired...)
		if excess := len(m.triggered) - triggeredRingSize; excess > 0 {
			m.triggered = append(m.triggered[:0], m.triggered[excess:]...)
		}
	}
	m.mu.Unlock()

	if len(fired) > 0 && m.publisher != nil {
		if err := m.publisher.PublishTriggered(ctx, fired); err != nil {
			m.logger.Warn("publish triggered alerts failed", applogger.Error(err))
		}
	}
	return fired
}

func topHubTicker(banks []models.BankResult) string {
	best, score := "", -1.0
	for _, b := range banks {
		if b.HubScore > score {
			best, score = b.Name, b.HubScore
		}
	}
	return best
}
