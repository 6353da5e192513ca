package repository

import (
	"context"
	"time"

	"CoinSight/internal/domain/models"
)

// MarketHistoryStore owns MarketBar time series. Bars are appended by
// ingestion and upserted by timestamp; they are never mutated otherwise.
type MarketHistoryStore interface {
	// GetRecentBars returns bars for symbol since the given time, ascending.
	GetRecentBars(ctx context.Context, symbol string, since time.Time) ([]models.MarketBar, error)
	// GetLatestNBars returns the most recent n bars, ascending.
	GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.MarketBar, error)
	UpsertBar(ctx context.Context, bar models.MarketBar) error
	UpsertBars(ctx context.Context, bars []models.MarketBar) error
	Health(ctx context.Context) error
}

// ForecastStore owns ForecastRecord rows. Records are append-only; the
// latest record per horizon is resolved by the store, not by the caller
// scanning history.
type ForecastStore interface {
	// GetLatest returns the most recent record per requested horizon.
	// Horizons with no record are absent from the result.
	GetLatest(ctx context.Context, symbol string, horizons []Horizon) (map[Horizon]models.ForecastRecord, error)
	Append(ctx context.Context, records []models.ForecastRecord) error
	// History lists records for a symbol, newest first, within [from, to].
	History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.ForecastRecord, error)
}

// MarketStream is a live exchange feed of trades to aggregate into bars.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.Tick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarPublisher publishes bars onto the ingestion bus.
type BarPublisher interface {
	Publish(ctx context.Context, bar *models.MarketBar) error
	PublishBatch(ctx context.Context, bars []*models.MarketBar) error
	Close() error
}

// Metrics records operational metrics for the pipeline.
type Metrics interface {
	RecordForecastGenerated(symbol, modelVersion string)
	RecordBarIngested(backend, symbol string)
	RecordCacheLookup(hit bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
