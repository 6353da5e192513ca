package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"CoinSight/internal/domain/models"
)

func barsWithVolumes(volumes []float64) []models.MarketBar {
	now := time.Now()
	bars := make([]models.MarketBar, len(volumes))
	for i, v := range volumes {
		bars[i] = models.MarketBar{
			Symbol:    "ETH",
			Timestamp: now.Add(time.Duration(i-len(volumes)) * time.Hour),
			Close:     1000,
			Volume:    v,
		}
	}
	return bars
}

func barsWithCloses(closes []float64) []models.MarketBar {
	now := time.Now()
	bars := make([]models.MarketBar, len(closes))
	for i, c := range closes {
		bars[i] = models.MarketBar{
			Symbol:    "BTC",
			Timestamp: now.Add(time.Duration(i-len(closes)) * time.Hour),
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestSentimentFactor(t *testing.T) {
	bullish := 75.0
	bearish := 25.0

	high := SentimentFactor(&bullish)
	low := SentimentFactor(&bearish)
	missing := SentimentFactor(nil)

	assert.Greater(t, high, low)
	assert.Greater(t, low, missing-1) // low is -0.5, missing is 0.0
	assert.Equal(t, 0.0, missing)
	assert.InDelta(t, 0.5, high, 1e-9)
	assert.InDelta(t, -0.5, low, 1e-9)
}

func TestSentimentFactorClamped(t *testing.T) {
	extreme := 500.0
	assert.Equal(t, 1.0, SentimentFactor(&extreme))
	negative := -100.0
	assert.Equal(t, -1.0, SentimentFactor(&negative))
}

func TestVolumeMomentumDirection(t *testing.T) {
	rising := make([]float64, 24)
	falling := make([]float64, 24)
	for i := 0; i < 24; i++ {
		rising[i] = float64(100 + i*50)
		falling[i] = float64(100 + (23-i)*50)
	}

	up := VolumeMomentum(barsWithVolumes(rising))
	down := VolumeMomentum(barsWithVolumes(falling))

	assert.Greater(t, up, down)
	assert.GreaterOrEqual(t, up, -1.0)
	assert.LessOrEqual(t, up, 1.0)
	assert.GreaterOrEqual(t, down, -1.0)
	assert.LessOrEqual(t, down, 1.0)
	assert.Positive(t, up)
	assert.Negative(t, down)
}

func TestVolumeMomentumSparseData(t *testing.T) {
	// Only 9 non-zero volumes in the window: below the trust threshold.
	volumes := make([]float64, 24)
	for i := 0; i < 9; i++ {
		volumes[i] = 500
	}
	assert.Equal(t, 0.0, VolumeMomentum(barsWithVolumes(volumes)))
}

func TestVolumeMomentumNoBars(t *testing.T) {
	assert.Equal(t, 0.0, VolumeMomentum(nil))
}

func TestMarketCorrelationReferenceAsset(t *testing.T) {
	bars := barsWithCloses([]float64{100, 101, 102})
	assert.Equal(t, 0.0, MarketCorrelation("BTC", "BTC", bars))
}

func TestMarketCorrelationNeedsFullWindow(t *testing.T) {
	bars := barsWithCloses(make([]float64, 23))
	assert.Equal(t, 0.0, MarketCorrelation("ETH", "BTC", bars))
}

func TestMarketCorrelationDampened(t *testing.T) {
	closes := make([]float64, 24)
	for i := range closes {
		closes[i] = 100 * (1 + 0.002*float64(i)) // ~4.6% trend over the window
	}
	got := MarketCorrelation("ETH", "BTC", barsWithCloses(closes))

	assert.Positive(t, got)
	assert.LessOrEqual(t, got, 0.5, "dampening caps the factor at half")
}

func TestMarketCorrelationClampedTrend(t *testing.T) {
	closes := make([]float64, 24)
	for i := range closes {
		closes[i] = 100 + float64(i)*100 // explosive trend, clamps to 1.0 before damping
	}
	got := MarketCorrelation("ETH", "BTC", barsWithCloses(closes))
	assert.InDelta(t, 0.5, got, 1e-9)
}

func TestStdDevDegenerate(t *testing.T) {
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, StdDev([]float64{5}))
	assert.Equal(t, 0.0, StdDev([]float64{5, 5, 5}))
}
