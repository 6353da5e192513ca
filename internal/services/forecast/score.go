package forecast

import (
	"math"

	"CoinSight/internal/services/features"
)

// ProbabilityUp combines the predicted move with sentiment and volume
// momentum into an upside probability. The price delta dominates, capped so
// no single forecast claims certainty.
func ProbabilityUp(predicted, current, sentimentFactor, volumeMomentum float64) float64 {
	if current <= 0 {
		return 0.5
	}
	delta := (predicted - current) / current
	p := 0.5 + features.Clamp(delta*0.75, -0.45, 0.45) + sentimentFactor*0.15 + volumeMomentum*0.10
	return features.Clamp(p, 0.02, 0.98)
}

// ConfidenceScore maps interval width relative to the baseline price onto
// [0.55, 0.95]. A tighter band means higher confidence. Non-positive
// baselines get a neutral 0.6.
func ConfidenceScore(lower, upper, baseline float64) float64 {
	if baseline <= 0 {
		return 0.6
	}
	ratio := features.Clamp(math.Abs(upper-lower)/baseline, 0, 1)
	return features.Clamp(1-ratio, 0.55, 0.95)
}
