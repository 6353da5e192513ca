package api

import (
	"time"

	"github.com/labstack/echo/v4"

	models "CoinSight/internal/domain/models"
	"CoinSight/internal/usecase"
	xhttp "CoinSight/pkg/http"
	xlogger "CoinSight/pkg/logger"
)

// MarketHandler exposes raw market history over Echo.
type MarketHandler struct {
	logger *xlogger.Logger
	uc     *usecase.MarketUseCase
}

func NewMarketHandler(logger *xlogger.Logger, uc *usecase.MarketUseCase) *MarketHandler {
	return &MarketHandler{logger: logger, uc: uc}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/market")
	g.GET("/bars", h.Bars)
	g.GET("/price", h.Price)
}

func (h *MarketHandler) Bars(c echo.Context) error {
	req := &models.MarketBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	to := xhttp.ParseTimeDefault(req.To, time.Now().UTC())
	from := xhttp.ParseTimeDefault(req.From, to.Add(-time.Duration(req.Limit)*time.Hour))
	res, err := h.uc.GetBars(c.Request().Context(), usecase.GetBarsParams{
		Symbol: req.Symbol,
		From:   from,
		To:     to,
		Limit:  req.Limit,
	})
	if err != nil {
		h.logger.Error("market bars usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *MarketHandler) Price(c echo.Context) error {
	req := &models.MarketBarsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.GetPrice(c.Request().Context(), req.Symbol)
	if err != nil {
		h.logger.Error("market price usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=15")
	return xhttp.SuccessResponse(c, res)
}
