package api

import (
	"net/http"
	"strconv"

	models "NetRisk/internal/domain/models"
	domrepo "NetRisk/internal/domain/repository"
	dsvc "NetRisk/internal/domain/service"
	"NetRisk/internal/service/ratelimit"
	"NetRisk/internal/usecase"
	xhttp "NetRisk/pkg/http"
	xlogger "NetRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ConfigView is the read-only engine configuration served on /api/config.
type ConfigView struct {
	Horizons                  int     `json:"horizons"`
	DataRefreshIntervalSec    int     `json:"data_refresh_interval_s"`
	ForecastRecomputeInterval int     `json:"forecast_recompute_interval_s"`
	MaxTickErrors             int     `json:"max_tick_errors"`
	CentralityTolerance       float64 `json:"centrality_tolerance"`
	CentralityMaxIterations   int     `json:"centrality_max_iterations"`
	SeedHubThreshold          float64 `json:"seed_hub_threshold"`
	StabilityThreshold        float64 `json:"stability_threshold"`
	HighRiskThreshold         float64 `json:"high_risk_threshold"`
}

// ForecastEchoHandler serves the forecast read API and the manual run
// trigger.
type ForecastEchoHandler struct {
	logger  *xlogger.Logger
	ticker  *usecase.Ticker
	store   *usecase.ResultStore
	source  dsvc.ScoreSource
	archive domrepo.SnapshotArchive
	limiter *ratelimit.Limiter
	cfg     ConfigView
}

func NewForecastEchoHandler(
	logger *xlogger.Logger,
	ticker *usecase.Ticker,
	store *usecase.ResultStore,
	source dsvc.ScoreSource,
	archive domrepo.SnapshotArchive,
	limiter *ratelimit.Limiter,
	cfg ConfigView,
) *ForecastEchoHandler {
	return &ForecastEchoHandler{
		logger:  logger,
		ticker:  ticker,
		store:   store,
		source:  source,
		archive: archive,
		limiter: limiter,
		cfg:     cfg,
	}
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/forecast", h.Forecast)
	g.GET("/run", h.Run)
	g.POST("/recompute", h.Recompute)
	g.GET("/tick", h.Tick)
	g.GET("/config", h.Config)
	g.GET("/health", h.Health)
	g.GET("/history", h.History)
}

// Forecast returns the latest published result, optionally narrowed to one
// horizon via ?horizon=N.
func (h *ForecastEchoHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	result, version := h.store.Current()
	if result == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no forecast computed yet"))
	}

	if req.Horizon == nil {
		c.Response().Header().Set("X-Forecast-Version", strconv.FormatUint(version, 10))
		return xhttp.SuccessResponse(c, result)
	}
	for i := range result.Horizons {
		if result.Horizons[i].Horizon == *req.Horizon {
			c.Response().Header().Set("X-Forecast-Version", strconv.FormatUint(version, 10))
			return xhttp.SuccessResponse(c, &models.ForecastResult{
				Horizons: result.Horizons[i : i+1],
				Metadata: result.Metadata,
			})
		}
	}
	return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("horizon %d not available", *req.Horizon))
}

// Run is the single-snapshot endpoint kept for older dashboard clients: it
// serves the first horizon of the latest result without the multi-horizon
// wrapper.
func (h *ForecastEchoHandler) Run(c echo.Context) error {
	result, version := h.store.Current()
	if result == nil || len(result.Horizons) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no forecast computed yet"))
	}
	c.Response().Header().Set("X-Forecast-Version", strconv.FormatUint(version, 10))
	return xhttp.SuccessResponse(c, &result.Horizons[0])
}

// Recompute triggers an immediate recomputation. Requests arriving while one
// is in flight are coalesced into it.
func (h *ForecastEchoHandler) Recompute(c echo.Context) error {
	if !h.limiter.Allow("run:"+c.RealIP(), 3, 0.2) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}
	triggered := h.ticker.TriggerRecompute(c.Request().Context())
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"triggered": triggered,
		"coalesced": !triggered,
	})
}

// Tick returns the ticker run-status record.
func (h *ForecastEchoHandler) Tick(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.ticker.Status())
}

// Config returns the engine configuration in effect.
func (h *ForecastEchoHandler) Config(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.cfg)
}

// Health reports component reachability. Degraded components flip the
// top-level status but the endpoint itself still answers 200.
func (h *ForecastEchoHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	components := map[string]string{}
	healthy := true

	if err := h.source.Health(ctx); err != nil {
		components["score_source"] = err.Error()
		healthy = false
	} else {
		components["score_source"] = "ok"
	}
	if h.archive != nil {
		if err := h.archive.Health(ctx); err != nil {
			components["archive"] = err.Error()
			healthy = false
		} else {
			components["archive"] = "ok"
		}
	}

	status := "healthy"
	if !healthy {
		status = "degraded"
	}
	_, version := h.store.Current()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":           status,
		"components":       components,
		"forecast_version": version,
		"tick":             h.ticker.Status(),
	})
}

// History returns archived per-horizon run summaries, newest first.
func (h *ForecastEchoHandler) History(c echo.Context) error {
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("history archive not configured"))
	}
	rows, err := h.archive.RecentRuns(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("history query failed").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
