package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"NetRisk/internal/domain/models"
)

type memAlertStore struct {
	mu     sync.Mutex
	alerts []models.AlertConfig
	saves  int
}

func (s *memAlertStore) LoadAll(ctx context.Context) ([]models.AlertConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AlertConfig, len(s.alerts))
	copy(out, s.alerts)
	return out, nil
}

func (s *memAlertStore) SaveAll(ctx context.Context, alerts []models.AlertConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = alerts
	s.saves++
	return nil
}

type memAlertPublisher struct {
	mu     sync.Mutex
	events []models.AlertTriggered
}

func (p *memAlertPublisher) PublishTriggered(ctx context.Context, events []models.AlertTriggered) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *memAlertPublisher) Close() error { return nil }

func newTestManager(t *testing.T) (*AlertManager, *memAlertStore, *memAlertPublisher) {
	t.Helper()
	store := &memAlertStore{}
	pub := &memAlertPublisher{}
	m := NewAlertManager(store, pub, testLogger(t))
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return m, store, pub
}

func snapWith(stability, payloadReduction float64, topHub string) *models.HorizonSnapshot {
	return &models.HorizonSnapshot{
		Stability:        stability,
		PayloadReduction: payloadReduction,
		Banks: []models.BankResult{
			{Name: topHub, HubScore: 1.0},
			{Name: "other", HubScore: 0.2},
		},
	}
}

func TestAlertManagerSeedsDefaults(t *testing.T) {
	m, store, _ := newTestManager(t)

	alerts := m.List()
	if len(alerts) != 3 {
		t.Fatalf("default alerts = %d, want 3", len(alerts))
	}
	types := map[string]bool{}
	for _, a := range alerts {
		if a.ID == "" {
			t.Errorf("alert %q has empty id", a.Name)
		}
		if !a.Enabled {
			t.Errorf("default alert %q should be enabled", a.Name)
		}
		types[a.Type] = true
	}
	for _, want := range []string{models.AlertStabilityThreshold, models.AlertPayloadChange, models.AlertHubShift} {
		if !types[want] {
			t.Errorf("missing default alert type %s", want)
		}
	}
	if store.saves != 1 {
		t.Errorf("defaults should be persisted once, saves = %d", store.saves)
	}
}

func TestAlertManagerCreateAndDelete(t *testing.T) {
	m, _, _ := newTestManager(t)

	created, err := m.Create(context.Background(), models.AlertCreateRequest{
		Type:      models.AlertStabilityThreshold,
		Name:      "Early warning",
		Threshold: 0.8,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || !created.Enabled {
		t.Errorf("created = %+v, want non-empty id and enabled", created)
	}
	if len(m.List()) != 4 {
		t.Fatalf("alerts = %d, want 4", len(m.List()))
	}

	ok, err := m.Delete(context.Background(), created.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v/%v, want true/nil", ok, err)
	}
	if len(m.List()) != 3 {
		t.Errorf("alerts = %d after delete, want 3", len(m.List()))
	}

	ok, err = m.Delete(context.Background(), "no-such-id")
	if err != nil || ok {
		t.Errorf("Delete unknown id = %v/%v, want false/nil", ok, err)
	}
}

func TestAlertStabilityThresholdFires(t *testing.T) {
	m, _, pub := newTestManager(t)

	fired := m.Check(context.Background(), snapWith(1.5, 40, "A"))
	found := false
	for _, ev := range fired {
		if ev.Type == models.AlertStabilityThreshold {
			found = true
			if ev.CurrentValue != 1.5 {
				t.Errorf("current_value = %v, want 1.5", ev.CurrentValue)
			}
		}
	}
	if !found {
		t.Fatal("stability alert should fire at stability 1.5")
	}

	pub.mu.Lock()
	published := len(pub.events)
	pub.mu.Unlock()
	if published == 0 {
		t.Error("triggered events should reach the publisher")
	}
}

func TestAlertStabilityBelowThresholdSilent(t *testing.T) {
	m, _, _ := newTestManager(t)

	for _, ev := range m.Check(context.Background(), snapWith(0.4, 40, "A")) {
		if ev.Type == models.AlertStabilityThreshold {
			t.Errorf("stability alert fired at 0.4: %+v", ev)
		}
	}
}

func TestAlertPayloadChangeFiresBelowThreshold(t *testing.T) {
	m, _, _ := newTestManager(t)

	// default threshold is 20%; a persistently low reduction fires every check
	for i := 0; i < 2; i++ {
		found := false
		for _, ev := range m.Check(context.Background(), snapWith(0.1, 5.0, "A")) {
			if ev.Type == models.AlertPayloadChange {
				found = true
				if ev.CurrentValue != 5.0 {
					t.Errorf("current_value = %v, want 5.0", ev.CurrentValue)
				}
			}
		}
		if !found {
			t.Fatalf("check %d: payload alert should fire at 5%% reduction", i)
		}
	}

	for _, ev := range m.Check(context.Background(), snapWith(0.1, 50, "A")) {
		if ev.Type == models.AlertPayloadChange {
			t.Errorf("payload alert fired at 50%% reduction: %+v", ev)
		}
	}
}

func TestAlertPayloadDeltaNeedsBaseline(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.Create(context.Background(), models.AlertCreateRequest{
		Type:      models.AlertPayloadDelta,
		Name:      "Efficiency swing",
		Threshold: 0.1,
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// first check establishes the baseline, nothing to compare against
	for _, ev := range m.Check(context.Background(), snapWith(0.1, 50, "A")) {
		if ev.Type == models.AlertPayloadDelta {
			t.Fatalf("delta alert fired without baseline: %+v", ev)
		}
	}

	fired := m.Check(context.Background(), snapWith(0.1, 70, "A"))
	found := false
	for _, ev := range fired {
		if ev.Type == models.AlertPayloadDelta {
			found = true
		}
	}
	if !found {
		t.Error("delta alert should fire on a 20-point reduction swing")
	}
}

func TestAlertHubShiftFires(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.Check(context.Background(), snapWith(0.1, 50, "A"))
	fired := m.Check(context.Background(), snapWith(0.1, 50, "B"))
	found := false
	for _, ev := range fired {
		if ev.Type == models.AlertHubShift {
			found = true
		}
	}
	if !found {
		t.Error("hub shift alert should fire when the top hub changes")
	}
}

func TestTriggeredRingCapped(t *testing.T) {
	m, _, _ := newTestManager(t)

	// every check alternates the top hub and swings payload, firing 2+ alerts
	for i := 0; i < 60; i++ {
		hub := "A"
		if i%2 == 1 {
			hub = "B"
		}
		m.Check(context.Background(), snapWith(2.0, float64(i*10%100), hub))
	}
	if got := len(m.Triggered(time.Now().UTC().Add(-time.Hour))); got != triggeredRingSize {
		t.Errorf("triggered ring = %d, want capped at %d", got, triggeredRingSize)
	}
	if got := len(m.Triggered(time.Time{})); got != triggeredDefaultLimit {
		t.Errorf("zero since = %d events, want last %d", got, triggeredDefaultLimit)
	}
}

func TestTriggeredSinceFilter(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.Check(context.Background(), snapWith(2.0, 50, "A"))
	all := m.Triggered(time.Time{})
	if len(all) == 0 {
		t.Fatal("expected at least one triggered event")
	}
	if got := m.Triggered(time.Now().UTC().Add(time.Hour)); len(got) != 0 {
		t.Errorf("future since should filter everything, got %d", len(got))
	}
	if got := m.Triggered(time.Now().UTC().Add(-time.Hour)); len(got) != len(all) {
		t.Errorf("past since should keep everything, got %d want %d", len(got), len(all))
	}
}
