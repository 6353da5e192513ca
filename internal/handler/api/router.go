package api

import (
	"github.com/labstack/echo/v4"

	xhttp "CoinSight/pkg/http"
)

// Router bundles every API handler behind one route registrar.
type Router struct {
	predictions *PredictionsHandler
	market      *MarketHandler
	health      *HealthHandler
}

func NewRouter(predictions *PredictionsHandler, market *MarketHandler, health *HealthHandler) *Router {
	return &Router{predictions: predictions, market: market, health: health}
}

func (r *Router) RegisterRoutes(e *echo.Echo) {
	r.predictions.RegisterRoutes(e)
	r.market.RegisterRoutes(e)
	r.health.RegisterRoutes(e)
}

var _ xhttp.Handler = (*Router)(nil)
