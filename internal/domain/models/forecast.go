package models

import "time"

// Model version tags identifying which estimation path produced a record.
const (
	ModelVersionSeasonal  = "seasonal-hw-1.0"
	ModelVersionFallback  = "ma-fallback"
	ModelVersionSimulated = "simulated"
)

// ForecastRecord is one persisted price forecast for a (symbol, horizon)
// pair. Records are append-only; "latest" is a query over GeneratedAt, not a
// field on the record.
type ForecastRecord struct {
	Symbol          string             `json:"symbol"`
	GeneratedAt     time.Time          `json:"generated_at"`
	HorizonHours    int                `json:"horizon_hours"`
	PredictedPrice  float64            `json:"predicted_price"`
	ConfidenceLower float64            `json:"confidence_lower"`
	ConfidenceUpper float64            `json:"confidence_upper"`
	ConfidenceScore float64            `json:"confidence_score"`
	ProbabilityUp   float64            `json:"probability_up"`
	ModelVersion    string             `json:"model_version"`
	Features        map[string]float64 `json:"features"`
}

// FeatureSnapshot holds the auxiliary factors computed for one generation
// pass, each in [-1, 1]. It is embedded into every record of the pass so the
// factors that shaped a forecast stay auditable.
type FeatureSnapshot struct {
	Sentiment         float64 `json:"sentiment"`
	VolumeMomentum    float64 `json:"volume_momentum"`
	MarketCorrelation float64 `json:"market_correlation"`
}

// Map returns the snapshot as named feature values.
func (s FeatureSnapshot) Map() map[string]float64 {
	return map[string]float64{
		"sentiment":          s.Sentiment,
		"volume_momentum":    s.VolumeMomentum,
		"market_correlation": s.MarketCorrelation,
	}
}
