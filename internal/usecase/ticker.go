package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"NetRisk/internal/domain/models"
	drepo "NetRisk/internal/domain/repository"
	dsvc "NetRisk/internal/domain/service"
	applogger "NetRisk/pkg/logger"
	xutil "NetRisk/pkg/util"
)

// TickerConfig holds the recompute scheduling knobs.
type TickerConfig struct {
	DataRefreshInterval       time.Duration
	ForecastRecomputeInterval time.Duration
	MaxTickErrors             int
	ErrorPause                time.Duration
}

// Ticker drives data refresh and forecast recomputation on a wall-clock
// heartbeat. Only one recomputation is ever in flight: ticks arriving while
// one runs are coalesced, not queued.
type Ticker struct {
	orch    *Orchestrator
	source  dsvc.ScoreSource
	alerts  *AlertManager
	metrics drepo.Metrics
	logger  *applogger.Logger
	cfg     TickerConfig

	inFlight  atomic.Bool
	tickCount atomic.Int64
	errCount  atomic.Int64
	reachable atomic.Bool

	mu               sync.RWMutex
	lastDataRefresh  string
	lastForecastTime string

	stop chan struct{}
	done chan struct{}
}

func NewTicker(
	orch *Orchestrator,
	source dsvc.ScoreSource,
	alerts *AlertManager,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	cfg TickerConfig,
) *Ticker {
	if cfg.DataRefreshInterval <= 0 {
		cfg.DataRefreshInterval = 60 * time.Second
	}
	if cfg.ForecastRecomputeInterval <= 0 {
		cfg.ForecastRecomputeInterval = 60 * time.Second
	}
	if cfg.MaxTickErrors <= 0 {
		cfg.MaxTickErrors = 5
	}
	if cfg.ErrorPause <= 0 {
		cfg.ErrorPause = 5 * time.Minute
	}
	return &Ticker{
		orch:    orch,
		source:  source,
		alerts:  alerts,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the heartbeat loop. The first forecast runs immediately;
// the first data refresh waits a full interval.
func (t *Ticker) Start(ctx context.Context) {
	go t.loop(ctx)
	t.logger.Info("ticker started",
		applogger.Duration("data_interval_ms", t.cfg.DataRefreshInterval),
		applogger.Duration("forecast_interval_ms", t.cfg.ForecastRecomputeInterval),
	)
}

// Stop shuts the loop down and waits for it to exit.
func (t *Ticker) Stop() {
	close(t.stop)
	<-t.done
}

// TriggerRecompute requests an immediate recomputation. Returns false when a
// tick is already running (the request is coalesced into it).
func (t *Ticker) TriggerRecompute(ctx context.Context) bool {
	return t.recompute(ctx)
}

// Status snapshots the run-status record served on /api/tick.
func (t *Ticker) Status() models.TickStatus {
	t.mu.RLock()
	refresh, forecast := t.lastDataRefresh, t.lastForecastTime
	t.mu.RUnlock()
	return models.TickStatus{
		TickCount:                 t.tickCount.Load(),
		LastDataRefresh:           refresh,
		LastForecastTime:          forecast,
		DataSourceReachable:       t.reachable.Load(),
		ConsecutiveErrors:         t.errCount.Load(),
		DataRefreshIntervalSec:    int(t.cfg.DataRefreshInterval / time.Second),
		ForecastRecomputeInterval: int(t.cfg.ForecastRecomputeInterval / time.Second),
	}
}

func (t *Ticker) loop(ctx context.Context) {
	defer close(t.done)

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	dataCountdown := t.cfg.DataRefreshInterval
	forecastCountdown := time.Duration(0) // first forecast immediately

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.stop:
			return
		case <-heartbeat.C:
			dataCountdown -= time.Second
			forecastCountdown -= time.Second

			if dataCountdown <= 0 {
				t.refreshData(ctx)
				dataCountdown = t.cfg.DataRefreshInterval
				forecastCountdown = 0 // force a forecast on fresh data
			}

			if forecastCountdown <= 0 {
				t.recompute(ctx)
				forecastCountdown = t.cfg.ForecastRecomputeInterval
			}

			if int(t.errCount.Load()) >= t.cfg.MaxTickErrors {
				t.logger.Warn("too many consecutive tick errors, pausing",
					applogger.Int64("errors", t.errCount.Load()),
					applogger.Duration("pause_ms", t.cfg.ErrorPause),
				)
				select {
				case <-ctx.Done():
					return
				case <-t.stop:
					return
				case <-time.After(t.cfg.ErrorPause):
					t.errCount.Store(0)
				}
			}
		}
	}
}

func (t *Ticker) refreshData(ctx context.Context) {
	if err := t.source.Refresh(ctx); err != nil {
		t.reachable.Store(false)
		t.errCount.Add(1)
		t.metrics.RecordError("refresh")
		t.logger.Error("data refresh failed", applogger.Error(err))
		return
	}
	t.reachable.Store(true)
	t.mu.Lock()
	t.lastDataRefresh = xutil.Timestamp()
	t.mu.Unlock()
}

func (t *Ticker) recompute(ctx context.Context) bool {
	if !t.inFlight.CompareAndSwap(false, true) {
		return false
	}
	defer t.inFlight.Store(false)

	if err := t.orch.RunTick(ctx); err != nil {
		t.errCount.Add(1)
		t.metrics.RecordTick("error")
		t.logger.Error("recompute failed", applogger.Error(err))
		return true
	}

	t.errCount.Store(0)
	t.reachable.Store(true)
	t.tickCount.Add(1)
	t.metrics.RecordTick("ok")
	t.mu.Lock()
	t.lastForecastTime = xutil.Timestamp()
	t.mu.Unlock()

	if t.alerts != nil {
		if result, _ := t.orch.Store().Current(); result != nil && len(result.Horizons) > 0 {
			t.alerts.Check(ctx, &result.Horizons[0])
		}
	}
	return true
}
