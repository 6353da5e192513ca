package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	domrepo "CoinSight/internal/domain/repository"
	"CoinSight/internal/usecase"
	xlogger "CoinSight/pkg/logger"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	logger    *xlogger.Logger
	store     domrepo.MarketHistoryStore
	collector *usecase.TickCollector
}

func NewHealthHandler(logger *xlogger.Logger, store domrepo.MarketHistoryStore, collector *usecase.TickCollector) *HealthHandler {
	return &HealthHandler{logger: logger, store: store, collector: collector}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Live)
	e.GET("/readyz", h.Ready)
}

func (h *HealthHandler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports storage and stream state. Storage failure makes the service
// not ready; a disconnected stream is reported but does not, since reads
// keep working from stored history.
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()

	body := map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.collector != nil {
		body["stream_connected"] = h.collector.IsConnected()
	}
	if h.store != nil {
		if err := h.store.Health(ctx); err != nil {
			h.logger.Warn("readiness storage check failed", xlogger.Error(err))
			body["status"] = "degraded"
			body["storage"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, body)
		}
		body["storage"] = "ok"
	}
	return c.JSON(http.StatusOK, body)
}
