package api

import (
	models "NetRisk/internal/domain/models"
	"NetRisk/internal/usecase"
	xhttp "NetRisk/pkg/http"
	xlogger "NetRisk/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BacktestEchoHandler serves forecast-accuracy evaluations over the archived
// run history.
type BacktestEchoHandler struct {
	logger     *xlogger.Logger
	backtester *usecase.Backtester
}

func NewBacktestEchoHandler(logger *xlogger.Logger, backtester *usecase.Backtester) *BacktestEchoHandler {
	return &BacktestEchoHandler{logger: logger, backtester: backtester}
}

func (h *BacktestEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/backtest", h.Backtest)
	g.GET("/backtest/history", h.History)
}

// Backtest evaluates prediction accuracy over the last ?runs= archived runs.
func (h *BacktestEchoHandler) Backtest(c echo.Context) error {
	req := &models.BacktestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.backtester.Available() {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("history archive not configured"))
	}
	report, err := h.backtester.Run(c.Request().Context(), req.Runs)
	if err != nil {
		h.logger.Error("backtest error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("backtest failed").WithError(err))
	}
	return xhttp.SuccessResponse(c, report)
}

// History returns stored evaluation summaries, newest first.
func (h *BacktestEchoHandler) History(c echo.Context) error {
	req := &models.BacktestHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if !h.backtester.Available() {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("history archive not configured"))
	}
	rows, err := h.backtester.History(c.Request().Context(), req.Limit)
	if err != nil {
		h.logger.Error("backtest history error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("backtest history failed").WithError(err))
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}
