package usecase

import (
	"context"
	"sync"
	"time"

	"CoinSight/internal/domain/models"
	drepo "CoinSight/internal/domain/repository"
)

const streamSource = "stream"

// BarAggregator folds live ticks into hourly bars. Partial bars are flushed
// periodically; the store's upsert-by-timestamp semantics make repeated
// flushes of the same hour safe.
type BarAggregator struct {
	proc       *BarProcessor
	metrics    drepo.Metrics
	flushEvery time.Duration

	mu   sync.Mutex
	open map[string]*models.MarketBar

	stopCh chan struct{}
	once   sync.Once
}

func NewBarAggregator(proc *BarProcessor, metrics drepo.Metrics, flushEvery time.Duration) *BarAggregator {
	if flushEvery <= 0 {
		flushEvery = time.Minute
	}
	return &BarAggregator{
		proc:       proc,
		metrics:    metrics,
		flushEvery: flushEvery,
		open:       make(map[string]*models.MarketBar),
		stopCh:     make(chan struct{}),
	}
}

// Process folds one tick into its symbol's current hourly bar. A tick in a
// new hour closes the previous bar and sends it downstream.
func (a *BarAggregator) Process(ctx context.Context, t *models.Tick) error {
	hour := time.Unix(t.Timestamp, 0).UTC().Truncate(time.Hour)

	var completed *models.MarketBar
	a.mu.Lock()
	b := a.open[t.Symbol]
	if b == nil || !b.Timestamp.Equal(hour) {
		if b != nil && hour.After(b.Timestamp) {
			completed = b
		}
		b = &models.MarketBar{
			Symbol:    t.Symbol,
			Timestamp: hour,
			Open:      t.Price,
			High:      t.Price,
			Low:       t.Price,
			Close:     t.Price,
			Volume:    t.Volume,
			Source:    streamSource,
		}
		a.open[t.Symbol] = b
	} else {
		if t.Price > b.High {
			b.High = t.Price
		}
		if t.Price < b.Low {
			b.Low = t.Price
		}
		b.Close = t.Price
		b.Volume += t.Volume
	}
	a.mu.Unlock()

	if completed != nil {
		return a.proc.Process(ctx, completed)
	}
	return nil
}

// Start flushes partial bars on an interval so readers see the current hour
// without waiting for it to close.
func (a *BarAggregator) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(a.flushEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-a.stopCh:
				return
			case <-ticker.C:
				if err := a.Flush(ctx); err != nil {
					a.metrics.RecordError("aggregator_flush")
				}
			}
		}
	}()
}

// Flush sends a snapshot of every open bar downstream.
func (a *BarAggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	snapshot := make([]*models.MarketBar, 0, len(a.open))
	for _, b := range a.open {
		copied := *b
		snapshot = append(snapshot, &copied)
	}
	a.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}
	return a.proc.ProcessBatch(ctx, snapshot)
}

// Stop halts the periodic flush and performs a final one.
func (a *BarAggregator) Stop(ctx context.Context) error {
	a.once.Do(func() { close(a.stopCh) })
	return a.Flush(ctx)
}
