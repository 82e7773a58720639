package api

import (
	"net/http"
	"time"

	models "NetRisk/internal/domain/models"
	"NetRisk/internal/service/ratelimit"
	"NetRisk/internal/usecase"
	xhttp "NetRisk/pkg/http"
	xlogger "NetRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AlertsEchoHandler serves alert rule CRUD and the triggered-event feed.
type AlertsEchoHandler struct {
	logger  *xlogger.Logger
	alerts  *usecase.AlertManager
	store   *usecase.ResultStore
	limiter *ratelimit.Limiter
}

func NewAlertsEchoHandler(
	logger *xlogger.Logger,
	alerts *usecase.AlertManager,
	store *usecase.ResultStore,
	limiter *ratelimit.Limiter,
) *AlertsEchoHandler {
	return &AlertsEchoHandler{logger: logger, alerts: alerts, store: store, limiter: limiter}
}

func (h *AlertsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/alerts")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.DELETE("/:id", h.Delete)
	g.GET("/triggered", h.Triggered)
	g.POST("/check", h.Check)
}

func (h *AlertsEchoHandler) List(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.alerts.List())
}

func (h *AlertsEchoHandler) Create(c echo.Context) error {
	req := &models.AlertCreateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	alert, err := h.alerts.Create(c.Request().Context(), *req)
	if err != nil {
		h.logger.Error("alert create error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.CreatedResponse(c, alert)
}

func (h *AlertsEchoHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	ok, err := h.alerts.Delete(c.Request().Context(), id)
	if err != nil {
		h.logger.Error("alert delete error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("alert %s not found", id))
	}
	return xhttp.NoContentResponse(c)
}

// Triggered returns recent firings, optionally bounded by ?since= (RFC3339 or
// unix seconds).
func (h *AlertsEchoHandler) Triggered(c echo.Context) error {
	req := &models.TriggeredAlertsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var since time.Time
	if req.Since != "" {
		parsed, ok := xhttp.ParseTime(req.Since)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError("since must be RFC3339 or unix seconds"))
		}
		since = parsed
	}
	return xhttp.SuccessResponse(c, h.alerts.Triggered(since))
}

// Check evaluates all rules against the nearest horizon of the current
// forecast immediately.
func (h *AlertsEchoHandler) Check(c echo.Context) error {
	if !h.limiter.Allow("alerts-check:"+c.RealIP(), 5, 1) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
	}
	result, _ := h.store.Current()
	if result == nil || len(result.Horizons) == 0 {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no forecast computed yet"))
	}
	fired := h.alerts.Check(c.Request().Context(), &result.Horizons[0])
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"checked":   len(h.alerts.List()),
		"triggered": fired,
	})
}
