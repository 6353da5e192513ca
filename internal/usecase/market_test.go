package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSight/internal/domain/models"
	xhttp "CoinSight/pkg/http"
)

func TestMarketGetBarsDefaultWindow(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.MarketBar{
		"BTC": recentBars("BTC", 300, 50000),
	}}
	uc := NewMarketUseCase(store)

	res, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "btc"})
	require.NoError(t, err)
	assert.Equal(t, "BTC", res.Symbol)
	assert.Equal(t, res.Count, len(res.Bars))
	// default window is a week of hourly bars
	assert.InDelta(t, 168, res.Count, 2)
	for _, b := range res.Bars {
		assert.False(t, b.Timestamp.After(res.To))
		assert.False(t, b.Timestamp.Before(res.From))
	}
}

func TestMarketGetBarsLimitKeepsNewest(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.MarketBar{
		"BTC": recentBars("BTC", 100, 50000),
	}}
	uc := NewMarketUseCase(store)

	res, err := uc.GetBars(context.Background(), GetBarsParams{
		Symbol: "BTC",
		From:   time.Now().UTC().Add(-100 * time.Hour),
		Limit:  10,
	})
	require.NoError(t, err)
	require.Equal(t, 10, res.Count)
	// newest bars survive the trim
	last := res.Bars[len(res.Bars)-1]
	assert.InDelta(t, 50099, last.Close, 0.001)
}

func TestMarketGetBarsValidation(t *testing.T) {
	uc := NewMarketUseCase(&fakeBarStore{})

	_, err := uc.GetBars(context.Background(), GetBarsParams{Symbol: "  "})
	var appErr *xhttp.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)

	now := time.Now().UTC()
	_, err = uc.GetBars(context.Background(), GetBarsParams{
		Symbol: "BTC",
		From:   now,
		To:     now.Add(-time.Hour),
	})
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
}

func TestMarketGetPriceWithDayChange(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.MarketBar{
		"BTC": recentBars("BTC", 30, 50000),
	}}
	uc := NewMarketUseCase(store)

	price, err := uc.GetPrice(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, "BTC", price.Symbol)
	assert.InDelta(t, 50029, price.Price, 0.001)
	require.NotNil(t, price.Change24h)
	assert.InDelta(t, 24.0/50005.0*100, *price.Change24h, 1e-9)
	assert.Greater(t, price.Volume24h, 0.0)
}

func TestMarketGetPriceShortHistoryOmitsChange(t *testing.T) {
	store := &fakeBarStore{bars: map[string][]models.MarketBar{
		"ETH": recentBars("ETH", 5, 3000),
	}}
	uc := NewMarketUseCase(store)

	price, err := uc.GetPrice(context.Background(), "ETH")
	require.NoError(t, err)
	assert.Nil(t, price.Change24h)
}

func TestMarketGetPriceUnknownSymbol(t *testing.T) {
	uc := NewMarketUseCase(&fakeBarStore{})

	_, err := uc.GetPrice(context.Background(), "DOGE")
	var appErr *xhttp.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusNotFound, appErr.Status)
}
