package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSight/internal/domain/models"
)

func newClickHouseAggregator(store *fakeBarStore) *BarAggregator {
	proc := NewBarProcessor(nil, store, noopMetrics{}, "clickhouse")
	return NewBarAggregator(proc, noopMetrics{}, time.Minute)
}

func tickAt(symbol string, ts time.Time, price, vol float64) *models.Tick {
	return &models.Tick{Symbol: symbol, Timestamp: ts.Unix(), Price: price, Volume: vol}
}

func TestAggregatorFoldsTicksIntoHourlyBar(t *testing.T) {
	store := &fakeBarStore{}
	agg := newClickHouseAggregator(store)
	ctx := context.Background()

	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(5*time.Minute), 100, 1)))
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(20*time.Minute), 120, 2)))
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(40*time.Minute), 90, 3)))

	// nothing emitted while the hour is open
	assert.Empty(t, store.bars["BTC"])

	require.NoError(t, agg.Flush(ctx))
	require.Len(t, store.bars["BTC"], 1)
	bar := store.bars["BTC"][0]
	assert.Equal(t, hour, bar.Timestamp)
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 120.0, bar.High)
	assert.Equal(t, 90.0, bar.Low)
	assert.Equal(t, 90.0, bar.Close)
	assert.Equal(t, 6.0, bar.Volume)
	assert.Equal(t, "stream", bar.Source)
}

func TestAggregatorRolloverEmitsCompletedBar(t *testing.T) {
	store := &fakeBarStore{}
	agg := newClickHouseAggregator(store)
	ctx := context.Background()

	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(30*time.Minute), 100, 1)))
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(65*time.Minute), 105, 1)))

	require.Len(t, store.bars["BTC"], 1)
	assert.Equal(t, hour, store.bars["BTC"][0].Timestamp)
	assert.Equal(t, 100.0, store.bars["BTC"][0].Close)

	// the new hour's bar is still open
	require.NoError(t, agg.Stop(ctx))
	require.Len(t, store.bars["BTC"], 2)
	assert.Equal(t, hour.Add(time.Hour), store.bars["BTC"][1].Timestamp)
	assert.Equal(t, 105.0, store.bars["BTC"][1].Open)
}

func TestAggregatorLateTickDoesNotRollBack(t *testing.T) {
	store := &fakeBarStore{}
	agg := newClickHouseAggregator(store)
	ctx := context.Background()

	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(61*time.Minute), 105, 1)))
	// out of order tick from the previous hour replaces the open bar but
	// must not emit the newer one as completed
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(30*time.Minute), 100, 1)))

	assert.Empty(t, store.bars["BTC"])
}

func TestAggregatorTracksSymbolsIndependently(t *testing.T) {
	store := &fakeBarStore{}
	agg := newClickHouseAggregator(store)
	ctx := context.Background()

	hour := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, agg.Process(ctx, tickAt("BTC", hour.Add(time.Minute), 50000, 1)))
	require.NoError(t, agg.Process(ctx, tickAt("ETH", hour.Add(2*time.Minute), 3000, 1)))

	require.NoError(t, agg.Flush(ctx))
	assert.Len(t, store.bars["BTC"], 1)
	assert.Len(t, store.bars["ETH"], 1)
}
