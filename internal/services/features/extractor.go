package features

import (
	"math"

	"CoinSight/internal/domain/models"
)

// Feature factors are pure functions over recent history and auxiliary
// signals. Every factor is normalized to [-1, 1] and degrades to 0.0
// (neutral) on missing or insufficient data; a broken upstream signal must
// never break forecast generation.

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation (n-1), or 0 when fewer than
// two values are given.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	sum2 := 0.0
	for _, x := range xs {
		d := x - m
		sum2 += d * d
	}
	return math.Sqrt(sum2 / float64(len(xs)-1))
}

// SentimentFactor normalizes an external 0-100 sentiment score into [-1, 1]
// with 50 as neutral. A nil score yields 0.0.
func SentimentFactor(score *float64) float64 {
	if score == nil {
		return 0.0
	}
	return Clamp((*score-50)/50, -1, 1)
}

// VolumeMomentum compares recent trading volume against the 24-observation
// baseline. It requires at least 10 non-zero volumes in the last 24 bars;
// below that the signal is too sparse to trust and the factor is neutral.
func VolumeMomentum(bars []models.MarketBar) float64 {
	start := len(bars) - 24
	if start < 0 {
		start = 0
	}
	volumes := make([]float64, 0, 24)
	for _, b := range bars[start:] {
		if b.Volume > 0 {
			volumes = append(volumes, b.Volume)
		}
	}
	if len(volumes) < 10 {
		return 0.0
	}

	recent := volumes
	if len(volumes) > 6 {
		recent = volumes[len(volumes)-6:]
	}
	recentAvg := Mean(recent)
	historicalAvg := Mean(volumes)
	if historicalAvg == 0 {
		return 0.0
	}

	momentum := (recentAvg - historicalAvg) / historicalAvg * 2
	return Clamp(momentum, -1, 1)
}

// MarketCorrelation derives a factor from the reference asset's trend over
// its last 24 observations. The reference asset itself gets 0.0, and the
// result is dampened by half: co-movement is a weaker signal than the
// asset's own history.
func MarketCorrelation(symbol, referenceSymbol string, referenceBars []models.MarketBar) float64 {
	if symbol == referenceSymbol {
		return 0.0
	}
	if len(referenceBars) < 24 {
		return 0.0
	}

	window := referenceBars[len(referenceBars)-24:]
	first := window[0].Close
	last := window[len(window)-1].Close
	if first == 0 {
		return 0.0
	}

	trend := (last - first) / first
	return Clamp(trend*5, -1, 1) * 0.5
}
