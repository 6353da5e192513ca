package usecase

import (
	"context"
	"fmt"
	"time"

	"CoinSight/internal/domain/models"
	drepo "CoinSight/internal/domain/repository"
)

// BarProcessor routes completed bars to the configured backend: the Kafka
// bus for decoupled ingestion, or ClickHouse directly.
type BarProcessor struct {
	pub     drepo.BarPublisher
	store   drepo.MarketHistoryStore
	metrics drepo.Metrics
	backend string
}

// NewBarProcessor creates a new BarProcessor instance.
func NewBarProcessor(pub drepo.BarPublisher, store drepo.MarketHistoryStore, metrics drepo.Metrics, backend string) *BarProcessor {
	return &BarProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process routes a single bar to the configured backend.
func (p *BarProcessor) Process(ctx context.Context, b *models.MarketBar) error {
	if b == nil {
		return fmt.Errorf("bar is nil")
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, b)
	case "clickhouse":
		err = p.store.UpsertBar(ctx, *b)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_bar")
		return fmt.Errorf("process bar: %w", err)
	}

	p.metrics.RecordBarIngested(p.backend, b.Symbol)
	p.metrics.RecordLatency("process_bar", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple bars in one call.
func (p *BarProcessor) ProcessBatch(ctx context.Context, bars []*models.MarketBar) error {
	if len(bars) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, bars)
	case "clickhouse":
		vals := make([]models.MarketBar, len(bars))
		for i, b := range bars {
			vals[i] = *b
		}
		err = p.store.UpsertBars(ctx, vals)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("process_bar_batch")
		return fmt.Errorf("process bar batch: %w", err)
	}

	for _, b := range bars {
		p.metrics.RecordBarIngested(p.backend, b.Symbol)
	}
	p.metrics.RecordLatency("process_bar_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *BarProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
