package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	models "CoinSight/internal/domain/models"
	"CoinSight/internal/service/ratelimit"
	"CoinSight/internal/usecase"
	xhttp "CoinSight/pkg/http"
	xlogger "CoinSight/pkg/logger"
)

// PredictionsHandler exposes the forecast endpoints over Echo.
type PredictionsHandler struct {
	logger *xlogger.Logger
	uc     *usecase.PredictionsUseCase
	rl     *ratelimit.Limiter

	rps   float64
	burst float64
}

func NewPredictionsHandler(logger *xlogger.Logger, uc *usecase.PredictionsUseCase, rps, burst float64) *PredictionsHandler {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &PredictionsHandler{
		logger: logger,
		uc:     uc,
		rl:     ratelimit.New(),
		rps:    rps,
		burst:  burst,
	}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/predictions")
	g.GET("", h.Get)
	g.POST("/batch", h.Batch)
	g.GET("/history", h.History)
	g.POST("/refresh", h.Refresh)
}

func (h *PredictionsHandler) Get(c echo.Context) error {
	if !h.allow(c, "predictions") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}
	req := &models.PredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetPredictions(c.Request().Context(), usecase.GetPredictionsParams{
		Symbol:            req.Symbol,
		Horizons:          splitHorizons(req.Horizons),
		IncludeConfidence: req.IncludeConfidence,
		IncludeFactors:    req.IncludeFactors,
	})
	if err != nil {
		h.logger.Error("predictions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) Batch(c echo.Context) error {
	if !h.allow(c, "batch") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}
	req := &models.BatchPredictionsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetBatchPredictions(c.Request().Context(), req.Symbols, usecase.GetPredictionsParams{
		Horizons:          req.Horizons,
		IncludeConfidence: true,
	})
	if err != nil {
		h.logger.Error("batch predictions usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) History(c echo.Context) error {
	if !h.allow(c, "history") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}
	req := &models.PredictionHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	from, to, err := parseTimeRange(req.From, req.To)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	res, err := h.uc.History(c.Request().Context(), req.Symbol, from, to, req.Limit)
	if err != nil {
		h.logger.Error("prediction history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Refresh forces regeneration for the requested symbols.
func (h *PredictionsHandler) Refresh(c echo.Context) error {
	if !h.allow(c, "refresh") {
		return echo.NewHTTPError(http.StatusTooManyRequests, "rate limited")
	}
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if len(req.Symbols) == 0 {
		return xhttp.BadRequestResponse(c, "symbols required")
	}

	out := make([]*models.PredictionResponse, 0, len(req.Symbols))
	for _, s := range req.Symbols {
		res, err := h.uc.Refresh(c.Request().Context(), s)
		if err != nil {
			h.logger.Error("refresh usecase error",
				xlogger.String("symbol", s),
				xlogger.Error(err),
			)
			return xhttp.AppErrorResponse(c, err)
		}
		out = append(out, res)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *PredictionsHandler) allow(c echo.Context, endpoint string) bool {
	key := c.RealIP() + ":" + endpoint
	if h.rl.Allow(key, h.burst, h.rps) {
		return true
	}
	h.logger.Warn("rate limited",
		xlogger.String("endpoint", endpoint),
		xlogger.String("remote", c.RealIP()),
	)
	return false
}

func splitHorizons(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseTimeRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	if from != "" {
		v, ok := xhttp.ParseTime(from)
		if !ok {
			return f, t, fmt.Errorf("invalid from: %q", from)
		}
		f = v
	}
	if to != "" {
		v, ok := xhttp.ParseTime(to)
		if !ok {
			return f, t, fmt.Errorf("invalid to: %q", to)
		}
		t = v
	}
	return f, t, nil
}
