package models

import "time"

// ConfidenceInterval bounds a prediction with its confidence score.
type ConfidenceInterval struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// PredictionFactor names one feature and its impact on a prediction.
type PredictionFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"`
}

// Probability is the up/down split for a prediction.
type Probability struct {
	Up   float64 `json:"up"`
	Down float64 `json:"down"`
}

// PredictionItem is one horizon's prediction within a response.
type PredictionItem struct {
	Horizon            string              `json:"horizon"`
	PredictedPrice     float64             `json:"predicted_price"`
	ConfidenceInterval *ConfidenceInterval `json:"confidence_interval,omitempty"`
	Probability        *Probability        `json:"probability,omitempty"`
	Factors            []PredictionFactor  `json:"factors,omitempty"`
	ModelVersion       string              `json:"model_version"`
	GeneratedAt        time.Time           `json:"generated_at"`
}

// PredictionResponse is the full answer for one symbol.
type PredictionResponse struct {
	Symbol       string           `json:"symbol"`
	CurrentPrice float64          `json:"current_price"`
	Predictions  []PredictionItem `json:"predictions"`
}

// PredictionHistoryItem is one archived forecast with its realized outcome
// when known.
type PredictionHistoryItem struct {
	PredictionTime time.Time `json:"prediction_time"`
	Horizon        string    `json:"horizon"`
	PredictedPrice float64   `json:"predicted_price"`
	ProbabilityUp  *float64  `json:"probability_up,omitempty"`
}

// PredictionHistoryResponse lists archived forecasts for a symbol.
type PredictionHistoryResponse struct {
	Symbol string                  `json:"symbol"`
	Items  []PredictionHistoryItem `json:"items"`
}
