package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSight/internal/domain/models"
)

func hourlyBars(n int, base, hourlyDrift float64) []models.MarketBar {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.MarketBar, 0, n)
	for i := 0; i < n; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		// Deterministic intraday wave so residuals are non-zero.
		price := base + hourlyDrift*float64(i) + base*0.01*math.Sin(float64(i%24)/24*2*math.Pi)
		bars = append(bars, models.MarketBar{
			Symbol:    "BTC",
			Timestamp: ts,
			Close:     price,
			Volume:    1000,
		})
	}
	return bars
}

func TestFitSeasonalIsDeterministic(t *testing.T) {
	frame := BuildTrainingFrame(hourlyBars(120, 20000, 5))

	first, reason := FitSeasonal(frame, 0.8)
	require.Equal(t, FallbackNone, reason)
	second, reason := FitSeasonal(frame, 0.8)
	require.Equal(t, FallbackNone, reason)

	a := first.Forecast(24)
	b := second.Forecast(24)
	require.Equal(t, a, b)
}

func TestFitSeasonalShortHistory(t *testing.T) {
	frame := BuildTrainingFrame(hourlyBars(47, 20000, 5))

	fit, reason := FitSeasonal(frame, 0.8)
	assert.Nil(t, fit)
	assert.Equal(t, FallbackShortHistory, reason)
}

func TestFitSeasonalRejectsNonPositivePrices(t *testing.T) {
	bars := hourlyBars(120, 20000, 5)
	bars[60].Close = 0

	fit, reason := FitSeasonal(BuildTrainingFrame(bars), 0.8)
	assert.Nil(t, fit)
	assert.Equal(t, FallbackDegenerateFrame, reason)
}

func TestForecastFollowsTrend(t *testing.T) {
	frame := BuildTrainingFrame(hourlyBars(120, 20000, 10))
	fit, reason := FitSeasonal(frame, 0.8)
	require.Equal(t, FallbackNone, reason)

	points := fit.Forecast(24)
	require.Len(t, points, 24)

	last, ok := LookupHorizon(points, 24)
	require.True(t, ok)
	assert.Greater(t, last.Value, frame.CurrentPrice()*0.99,
		"a rising series should not forecast a collapse")
}

func TestForecastIntervalsWidenWithHorizon(t *testing.T) {
	frame := BuildTrainingFrame(hourlyBars(120, 20000, 5))
	fit, reason := FitSeasonal(frame, 0.8)
	require.Equal(t, FallbackNone, reason)

	points := fit.Forecast(24)
	near, _ := LookupHorizon(points, 1)
	far, _ := LookupHorizon(points, 24)

	assert.Greater(t, far.Upper-far.Lower, near.Upper-near.Lower)
	for _, p := range points {
		assert.LessOrEqual(t, p.Lower, p.Value)
		assert.GreaterOrEqual(t, p.Upper, p.Value)
	}
}

func TestBuildTrainingFrameDeduplicatesByTimestamp(t *testing.T) {
	bars := hourlyBars(50, 20000, 5)
	// A later bar for an existing timestamp replaces the earlier one.
	dup := bars[10]
	dup.Close = 99999
	bars = append(bars, dup)

	frame := BuildTrainingFrame(bars)
	assert.Equal(t, 50, frame.Len())
	assert.Equal(t, 99999.0, frame.Prices[10])
}

func TestMovingAverageFallbackWindows(t *testing.T) {
	frame := BuildTrainingFrame(hourlyBars(120, 20000, 5))

	points := MovingAverageForecast(frame, []int{1, 168})
	require.Len(t, points, 2)

	short, ok := LookupHorizon(points, 1)
	require.True(t, ok)
	long, ok := LookupHorizon(points, 168)
	require.True(t, ok)

	// h=1 averages the trailing day; h=168 uses everything available.
	// With a rising series the wider window sits further below the tail.
	assert.Less(t, long.Value, short.Value)
	assert.Greater(t, short.Upper, short.Value)
	assert.Less(t, short.Lower, short.Value)
}

func TestMovingAverageFallbackFlatSeriesSpread(t *testing.T) {
	bars := hourlyBars(48, 100, 0)
	for i := range bars {
		bars[i].Close = 100
	}
	frame := BuildTrainingFrame(bars)

	points := MovingAverageForecast(frame, []int{1})
	require.Len(t, points, 1)

	// Zero variance falls back to a 2% floor on the spread.
	assert.InDelta(t, 100.0, points[0].Value, 1e-9)
	assert.InDelta(t, 98.0, points[0].Lower, 1e-9)
	assert.InDelta(t, 102.0, points[0].Upper, 1e-9)
}

func TestMovingAverageFallbackAllowsNegativeLower(t *testing.T) {
	// A cheap asset with huge swings: the one-std band around the mean
	// extends below zero and the bound is reported as-is.
	bars := hourlyBars(48, 100, 0)
	for i := range bars {
		if i%2 == 0 {
			bars[i].Close = 1
		} else {
			bars[i].Close = 1000
		}
	}
	frame := BuildTrainingFrame(bars)

	points := MovingAverageForecast(frame, []int{1})
	require.Len(t, points, 1)
	assert.Negative(t, points[0].Lower)
	assert.InDelta(t, points[0].Value-points[0].Lower, points[0].Upper-points[0].Value, 1e-9)
}

func TestLookupHorizonSkipsMissingRows(t *testing.T) {
	points := []Point{{HorizonHours: 1}, {HorizonHours: 4}}

	_, ok := LookupHorizon(points, 24)
	assert.False(t, ok)

	p, ok := LookupHorizon(points, 4)
	assert.True(t, ok)
	assert.Equal(t, 4, p.HorizonHours)
}

func TestProbabilityUp(t *testing.T) {
	assert.Equal(t, 0.5, ProbabilityUp(105, 0, 0, 0))

	up := ProbabilityUp(105, 100, 0, 0)
	down := ProbabilityUp(95, 100, 0, 0)
	assert.InDelta(t, 0.5375, up, 1e-9)
	assert.InDelta(t, 0.4625, down, 1e-9)

	// Sentiment and momentum shift the estimate but stay bounded.
	boosted := ProbabilityUp(105, 100, 1, 1)
	assert.Greater(t, boosted, up)
	assert.LessOrEqual(t, boosted, 0.98)
	assert.GreaterOrEqual(t, ProbabilityUp(1, 100, -1, -1), 0.02)
}

func TestConfidenceScore(t *testing.T) {
	assert.Equal(t, 0.6, ConfidenceScore(95, 105, 0))
	assert.InDelta(t, 0.9, ConfidenceScore(95, 105, 100), 1e-9)

	// Very wide and very tight bands clamp to the score range.
	assert.Equal(t, 0.55, ConfidenceScore(0, 500, 100))
	assert.Equal(t, 0.95, ConfidenceScore(99.9, 100.1, 100))
}
