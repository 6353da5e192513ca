package models

// Requests for the predictions HTTP endpoints. Defined in domain for
// consistency and reuse.

type PredictionsRequest struct {
	Symbol            string `query:"symbol" json:"symbol" validate:"required,alphanum,max=16"`
	Horizons          string `query:"horizons" json:"horizons"` // comma-separated labels, empty = default set
	IncludeConfidence bool   `query:"include_confidence" json:"include_confidence" default:"true"`
	IncludeFactors    bool   `query:"include_factors" json:"include_factors"`
}

type BatchPredictionsRequest struct {
	Symbols  []string `json:"symbols" validate:"required,min=1,max=25,dive,alphanum,max=16"`
	Horizons []string `json:"horizons" validate:"omitempty,max=8,dive,oneof=1h 4h 24h 1d 7d"`
}

type PredictionHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,alphanum,max=16"`
	From   string `query:"from" json:"from"`
	To     string `query:"to" json:"to"`
	Limit  int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type MarketBarsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required,alphanum,max=16"`
	Limit  int    `query:"limit" json:"limit" default:"168" validate:"gte=1,lte=5000"`
	From   string `query:"from" json:"from" validate:"omitempty,max=40"`
	To     string `query:"to" json:"to" validate:"omitempty,max=40"`
}

type RefreshRequest struct {
	Symbols  []string `json:"symbols" validate:"omitempty,max=25,dive,alphanum,max=16"`
	Horizons []string `json:"horizons" validate:"omitempty,max=8,dive,oneof=1h 4h 24h 1d 7d"`
}
