package service

import (
	"context"

	"CoinSight/internal/domain/models"
)

// SentimentProvider exposes an external community/market sentiment score on
// a 0-100 scale. A nil score means the service had nothing for the symbol;
// callers degrade to a neutral factor.
type SentimentProvider interface {
	GetSentimentScore(ctx context.Context, symbol string) (*float64, error)
}

// HistoryProvider backfills hourly bars from an external market data API.
type HistoryProvider interface {
	FetchHourlyBars(ctx context.Context, symbol string, days int) ([]models.MarketBar, error)
}
