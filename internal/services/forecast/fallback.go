package forecast

import (
	"math"

	"CoinSight/internal/services/features"
)

// MovingAverageForecast produces fallback rows when the seasonal model is
// unavailable. Each requested horizon gets its own trailing window, wider for
// longer horizons, so a 7-day horizon is not driven by the last day alone.
func MovingAverageForecast(frame TrainingFrame, horizons []int) []Point {
	prices := frame.Prices
	if len(prices) == 0 {
		return nil
	}
	current := frame.CurrentPrice()

	points := make([]Point, 0, len(horizons))
	for _, h := range horizons {
		window := h * 3
		if window < hoursPerDay {
			window = hoursPerDay
		}
		if window > len(prices) {
			window = len(prices)
		}
		tail := prices[len(prices)-window:]

		value := features.Mean(tail)
		std := features.StdDev(tail)
		if std == 0 || math.IsNaN(std) {
			std = math.Max(current*0.02, 1.0)
		}

		points = append(points, Point{
			HorizonHours: h,
			Value:        value,
			Lower:        value - std,
			Upper:        value + std,
		})
	}
	return points
}
