package api

import (
	"net/http"
	"time"

	"NetRisk/internal/usecase"
	xlogger "NetRisk/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

// streamEvent is one push frame: the new forecast version plus the ticker
// status at that moment.
type streamEvent struct {
	Version uint64      `json:"version"`
	Tick    interface{} `json:"tick"`
}

// StreamHandler pushes a frame to each websocket client whenever a new
// forecast is published.
type StreamHandler struct {
	logger   *xlogger.Logger
	store    *usecase.ResultStore
	ticker   *usecase.Ticker
	upgrader websocket.Upgrader
}

func NewStreamHandler(logger *xlogger.Logger, store *usecase.ResultStore, ticker *usecase.Ticker) *StreamHandler {
	return &StreamHandler{
		logger: logger,
		store:  store,
		ticker: ticker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *StreamHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/stream", h.Stream)
}

func (h *StreamHandler) Stream(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	notify, cancel := h.store.Subscribe()
	defer cancel()

	// drain client frames so close/pong handling works
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// initial frame with whatever is current
	if _, version := h.store.Current(); version > 0 {
		if err := h.push(conn, version); err != nil {
			return nil
		}
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case version, ok := <-notify:
			if !ok {
				return nil
			}
			if err := h.push(conn, version); err != nil {
				return nil
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

func (h *StreamHandler) push(conn *websocket.Conn, version uint64) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(streamEvent{Version: version, Tick: h.ticker.Status()})
}
