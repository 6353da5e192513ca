package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSight/internal/domain/models"
	domrepo "CoinSight/internal/domain/repository"
	domsvc "CoinSight/internal/domain/service"
	pkgcache "CoinSight/pkg/cache"
	"CoinSight/pkg/config"
)

type fakeBarStore struct {
	bars    map[string][]models.MarketBar
	getErr  error
	upserts int
}

func (s *fakeBarStore) GetRecentBars(_ context.Context, symbol string, since time.Time) ([]models.MarketBar, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	var out []models.MarketBar
	for _, b := range s.bars[symbol] {
		if !b.Timestamp.Before(since) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *fakeBarStore) GetLatestNBars(_ context.Context, symbol string, n int) ([]models.MarketBar, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	bars := s.bars[symbol]
	if len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}

func (s *fakeBarStore) UpsertBar(ctx context.Context, bar models.MarketBar) error {
	return s.UpsertBars(ctx, []models.MarketBar{bar})
}

func (s *fakeBarStore) UpsertBars(_ context.Context, bars []models.MarketBar) error {
	if s.bars == nil {
		s.bars = map[string][]models.MarketBar{}
	}
	for _, b := range bars {
		s.bars[b.Symbol] = append(s.bars[b.Symbol], b)
	}
	s.upserts += len(bars)
	return nil
}

func (s *fakeBarStore) Health(context.Context) error { return nil }

type fakeForecastStore struct {
	records   []models.ForecastRecord
	appendErr error
	appends   int
}

func (s *fakeForecastStore) GetLatest(_ context.Context, symbol string, horizons []domrepo.Horizon) (map[domrepo.Horizon]models.ForecastRecord, error) {
	out := map[domrepo.Horizon]models.ForecastRecord{}
	for _, r := range s.records {
		if r.Symbol != symbol {
			continue
		}
		h := domrepo.Horizon(r.HorizonHours)
		if cur, ok := out[h]; !ok || r.GeneratedAt.After(cur.GeneratedAt) {
			out[h] = r
		}
	}
	return out, nil
}

func (s *fakeForecastStore) Append(_ context.Context, records []models.ForecastRecord) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.records = append(s.records, records...)
	s.appends++
	return nil
}

func (s *fakeForecastStore) History(_ context.Context, symbol string, from, to time.Time, limit int) ([]models.ForecastRecord, error) {
	var out []models.ForecastRecord
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		r := s.records[i]
		if r.Symbol == symbol && !r.GeneratedAt.Before(from) && !r.GeneratedAt.After(to) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSentiment struct {
	score *float64
	err   error
	calls int
}

func (f *fakeSentiment) GetSentimentScore(context.Context, string) (*float64, error) {
	f.calls++
	return f.score, f.err
}

type fakeHistory struct {
	bars  []models.MarketBar
	calls int
}

func (f *fakeHistory) FetchHourlyBars(_ context.Context, symbol string, _ int) ([]models.MarketBar, error) {
	f.calls++
	out := make([]models.MarketBar, len(f.bars))
	copy(out, f.bars)
	for i := range out {
		out[i].Symbol = symbol
	}
	return out, nil
}

type noopMetrics struct{}

func (noopMetrics) RecordForecastGenerated(string, string) {}
func (noopMetrics) RecordBarIngested(string, string)       {}
func (noopMetrics) RecordCacheLookup(bool)                 {}
func (noopMetrics) RecordError(string)                     {}
func (noopMetrics) RecordLastPrice(string, float64)        {}
func (noopMetrics) RecordLatency(string, float64)          {}

func testForecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		StalenessWindow: 45 * time.Minute,
		MinHistory:      48,
		CacheTTL:        time.Hour,
		IntervalWidth:   0.8,
		Horizons:        []string{"1h", "4h", "24h", "7d"},
	}
}

func recentBars(symbol string, n int, base float64) []models.MarketBar {
	start := time.Now().UTC().Truncate(time.Hour).Add(-time.Duration(n) * time.Hour)
	bars := make([]models.MarketBar, 0, n)
	for i := 0; i < n; i++ {
		price := base + float64(i)
		bars = append(bars, models.MarketBar{
			Symbol:    symbol,
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price,
			Volume:    1000 + float64(i%24)*10,
			Source:    "test",
		})
	}
	return bars
}

func newTestUseCase(bars *fakeBarStore, forecasts *fakeForecastStore, sentiment *fakeSentiment, history *fakeHistory) *PredictionsUseCase {
	// A nil *fakeHistory must become a nil interface, not a typed nil.
	var hp domsvc.HistoryProvider
	if history != nil {
		hp = history
	}
	return NewPredictionsUseCase(
		bars,
		forecasts,
		pkgcache.NewMemoryCache(),
		sentiment,
		hp,
		noopMetrics{},
		testForecastConfig(),
		"BTC",
		30,
	)
}

func TestGetPredictionsGeneratesAndPersists(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	forecasts := &fakeForecastStore{}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{
		Symbol:            "btc",
		Horizons:          []string{"1h", "24h"},
		IncludeConfidence: true,
		IncludeFactors:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "BTC", resp.Symbol)
	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, "1h", resp.Predictions[0].Horizon)
	assert.Equal(t, "24h", resp.Predictions[1].Horizon)
	for _, p := range resp.Predictions {
		assert.Equal(t, models.ModelVersionSeasonal, p.ModelVersion)
		require.NotNil(t, p.ConfidenceInterval)
		assert.LessOrEqual(t, p.ConfidenceInterval.Lower, p.PredictedPrice)
		assert.GreaterOrEqual(t, p.ConfidenceInterval.Upper, p.PredictedPrice)
		require.NotNil(t, p.Probability)
		assert.InDelta(t, 1.0, p.Probability.Up+p.Probability.Down, 1e-9)
		assert.Len(t, p.Factors, 3)
	}
	assert.Equal(t, 1, forecasts.appends)
}

func TestGetPredictionsServedFromCache(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	forecasts := &fakeForecastStore{}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	p := GetPredictionsParams{Symbol: "BTC", Horizons: []string{"4h"}}
	first, err := uc.GetPredictions(context.Background(), p)
	require.NoError(t, err)
	second, err := uc.GetPredictions(context.Background(), p)
	require.NoError(t, err)

	// Second call answers from cache: no new store write.
	assert.Equal(t, 1, forecasts.appends)
	assert.Equal(t, first.Predictions[0].GeneratedAt.Unix(), second.Predictions[0].GeneratedAt.Unix())
}

func TestGetPredictionsReusesFreshStoredForecasts(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	generated := time.Now().UTC().Add(-10 * time.Minute)
	forecasts := &fakeForecastStore{records: []models.ForecastRecord{{
		Symbol:         "BTC",
		GeneratedAt:    generated,
		HorizonHours:   24,
		PredictedPrice: 21000,
		ProbabilityUp:  0.6,
		ModelVersion:   models.ModelVersionSeasonal,
	}}}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "BTC", Horizons: []string{"24h"}})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, 21000.0, resp.Predictions[0].PredictedPrice)
	assert.Equal(t, 0, forecasts.appends, "fresh stored records must not trigger generation")
}

func TestGetPredictionsRegeneratesWhenStale(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	forecasts := &fakeForecastStore{records: []models.ForecastRecord{{
		Symbol:       "BTC",
		GeneratedAt:  time.Now().UTC().Add(-2 * time.Hour),
		HorizonHours: 24,
		ModelVersion: models.ModelVersionSeasonal,
	}}}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	_, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "BTC", Horizons: []string{"24h"}})
	require.NoError(t, err)
	assert.Equal(t, 1, forecasts.appends)
}

func TestGetPredictionsBackfillsShortHistory(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"ETH": recentBars("ETH", 5, 3000)}}
	history := &fakeHistory{bars: recentBars("ETH", 120, 3000)}
	forecasts := &fakeForecastStore{}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, history)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "ETH", Horizons: []string{"1h"}})
	require.NoError(t, err)

	assert.Equal(t, 1, history.calls)
	assert.GreaterOrEqual(t, bars.upserts, 120)
	require.Len(t, resp.Predictions, 1)
	assert.NotEqual(t, models.ModelVersionSimulated, resp.Predictions[0].ModelVersion)
}

func TestGetPredictionsFallsBackToMovingAverage(t *testing.T) {
	// 30 bars pass the minimum history gate but not the seasonal one.
	fcfg := testForecastConfig()
	fcfg.MinHistory = 10
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 30, 20000)}}
	forecasts := &fakeForecastStore{}
	uc := NewPredictionsUseCase(bars, forecasts, pkgcache.NewMemoryCache(), &fakeSentiment{}, nil, noopMetrics{}, fcfg, "BTC", 30)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "BTC", Horizons: []string{"1h"}})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, models.ModelVersionFallback, resp.Predictions[0].ModelVersion)
}

func TestGetPredictionsSimulatedWhenHistoryTooShort(t *testing.T) {
	// 30 bars, no backfill source: below the 48-bar minimum nothing is
	// generated or persisted and the simulated response is served.
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 30, 20000)}}
	forecasts := &fakeForecastStore{}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "BTC", Horizons: []string{"24h"}})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, models.ModelVersionSimulated, resp.Predictions[0].ModelVersion)
	assert.Equal(t, 0, forecasts.appends, "short history must not persist fallback rows")
}

func TestGetPredictionsFreshnessUsesNewestGeneration(t *testing.T) {
	// The 1h record is past the window on its own, but the 24h record was
	// generated 10 minutes ago. The newest generation decides, so the
	// stored set is reused without regenerating.
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	now := time.Now().UTC()
	forecasts := &fakeForecastStore{records: []models.ForecastRecord{
		{Symbol: "BTC", GeneratedAt: now.Add(-60 * time.Minute), HorizonHours: 1, PredictedPrice: 20050, ProbabilityUp: 0.52, ModelVersion: models.ModelVersionSeasonal},
		{Symbol: "BTC", GeneratedAt: now.Add(-10 * time.Minute), HorizonHours: 24, PredictedPrice: 21000, ProbabilityUp: 0.6, ModelVersion: models.ModelVersionSeasonal},
	}}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "BTC", Horizons: []string{"1h", "24h"}})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, 20050.0, resp.Predictions[0].PredictedPrice)
	assert.Equal(t, 21000.0, resp.Predictions[1].PredictedPrice)
	assert.Equal(t, 0, forecasts.appends)
}

func TestGetPredictionsSimulatedDefaultsAndFactors(t *testing.T) {
	bars := &fakeBarStore{getErr: errors.New("clickhouse down")}
	uc := newTestUseCase(bars, &fakeForecastStore{}, &fakeSentiment{}, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{
		Symbol:         "BTC",
		IncludeFactors: true,
	})
	require.NoError(t, err)

	// No explicit horizons: a single 24h item, with placeholder factors.
	require.Len(t, resp.Predictions, 1)
	assert.Equal(t, "24h", resp.Predictions[0].Horizon)
	assert.Equal(t, models.ModelVersionSimulated, resp.Predictions[0].ModelVersion)
	require.Len(t, resp.Predictions[0].Factors, 2)
	assert.Equal(t, models.PredictionFactor{Name: "momentum", Impact: 0.25}, resp.Predictions[0].Factors[0])
	assert.Equal(t, models.PredictionFactor{Name: "volatility", Impact: 0.15}, resp.Predictions[0].Factors[1])
}

func TestGetPredictionsSimulatedWhenHistoryUnavailable(t *testing.T) {
	bars := &fakeBarStore{getErr: errors.New("clickhouse down")}
	uc := newTestUseCase(bars, &fakeForecastStore{}, &fakeSentiment{}, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{
		Symbol:            "BTC",
		Horizons:          []string{"1h", "4h"},
		IncludeConfidence: true,
	})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, 20000.0, resp.Predictions[0].PredictedPrice)
	assert.Equal(t, 20075.0, resp.Predictions[1].PredictedPrice)
	for _, p := range resp.Predictions {
		assert.Equal(t, models.ModelVersionSimulated, p.ModelVersion)
		assert.Equal(t, 0.55, p.Probability.Up)
		assert.Equal(t, 0.45, p.Probability.Down)
	}
}

func TestGetPredictionsStoreWriteFailureIsFatal(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	forecasts := &fakeForecastStore{appendErr: fmt.Errorf("insert rejected")}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	_, err := uc.GetPredictions(context.Background(), GetPredictionsParams{Symbol: "BTC", Horizons: []string{"1h"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errPersist)
}

func TestGetPredictionsSentimentFailureDegrades(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	forecasts := &fakeForecastStore{}
	sentiment := &fakeSentiment{err: errors.New("timeout")}
	uc := newTestUseCase(bars, forecasts, sentiment, nil)

	resp, err := uc.GetPredictions(context.Background(), GetPredictionsParams{
		Symbol:         "BTC",
		Horizons:       []string{"1h"},
		IncludeFactors: true,
	})
	require.NoError(t, err)

	require.Len(t, resp.Predictions, 1)
	assert.NotEqual(t, models.ModelVersionSimulated, resp.Predictions[0].ModelVersion)
	for _, f := range resp.Predictions[0].Factors {
		if f.Name == "sentiment" {
			assert.Zero(t, f.Impact)
		}
	}
}

func TestGetBatchPredictions(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{
		"BTC": recentBars("BTC", 120, 20000),
		"ETH": recentBars("ETH", 120, 3000),
	}}
	uc := newTestUseCase(bars, &fakeForecastStore{}, &fakeSentiment{}, nil)

	out, err := uc.GetBatchPredictions(context.Background(), []string{"BTC", "ETH"}, GetPredictionsParams{Horizons: []string{"1h"}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "BTC", out[0].Symbol)
	assert.Equal(t, "ETH", out[1].Symbol)
}

func TestRefreshInvalidatesCachedResponses(t *testing.T) {
	bars := &fakeBarStore{bars: map[string][]models.MarketBar{"BTC": recentBars("BTC", 120, 20000)}}
	forecasts := &fakeForecastStore{}
	uc := newTestUseCase(bars, forecasts, &fakeSentiment{}, nil)

	p := GetPredictionsParams{Symbol: "BTC", Horizons: []string{"1h"}}
	_, err := uc.GetPredictions(context.Background(), p)
	require.NoError(t, err)

	_, err = uc.Refresh(context.Background(), "BTC")
	require.NoError(t, err)
	appendsAfterRefresh := forecasts.appends

	// Cached variant was dropped, so the next read regenerates or re-reads
	// stored rows instead of replaying the stale cached body.
	_, err = uc.GetPredictions(context.Background(), p)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, forecasts.appends, appendsAfterRefresh)
	assert.Equal(t, 2, appendsAfterRefresh)
}

func TestHistoryListsArchivedForecasts(t *testing.T) {
	now := time.Now().UTC()
	forecasts := &fakeForecastStore{records: []models.ForecastRecord{
		{Symbol: "BTC", GeneratedAt: now.Add(-2 * time.Hour), HorizonHours: 24, PredictedPrice: 20500, ProbabilityUp: 0.6},
		{Symbol: "BTC", GeneratedAt: now.Add(-1 * time.Hour), HorizonHours: 1, PredictedPrice: 20100, ProbabilityUp: 0.52},
		{Symbol: "ETH", GeneratedAt: now, HorizonHours: 1, PredictedPrice: 3000, ProbabilityUp: 0.5},
	}}
	uc := newTestUseCase(&fakeBarStore{}, forecasts, &fakeSentiment{}, nil)

	resp, err := uc.History(context.Background(), "btc", time.Time{}, time.Time{}, 10)
	require.NoError(t, err)

	assert.Equal(t, "BTC", resp.Symbol)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "1h", resp.Items[0].Horizon)
	assert.Equal(t, "24h", resp.Items[1].Horizon)
	require.NotNil(t, resp.Items[0].ProbabilityUp)
	assert.InDelta(t, 0.52, *resp.Items[0].ProbabilityUp, 1e-9)
}

func TestPredictionsCacheKeyShape(t *testing.T) {
	key := predictionsCacheKey("BTC", []string{"24h", "1h"}, true, false)
	assert.Equal(t, "predictions:BTC:1h,24h:1:0", key)

	assert.Equal(t, "predictions:BTC:default:0:0", predictionsCacheKey("BTC", nil, false, false))
}
