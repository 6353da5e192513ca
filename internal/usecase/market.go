package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"CoinSight/internal/domain/models"
	domrepo "CoinSight/internal/domain/repository"
	xhttp "CoinSight/pkg/http"
	"CoinSight/pkg/util"
)

// MarketUseCase provides business logic for reading market history.
type MarketUseCase struct {
	store domrepo.MarketHistoryStore
}

func NewMarketUseCase(store domrepo.MarketHistoryStore) *MarketUseCase {
	return &MarketUseCase{store: store}
}

type GetBarsParams struct {
	Symbol string
	From   time.Time
	To     time.Time
	Limit  int
}

type GetBarsResult struct {
	Symbol string
	From   time.Time
	To     time.Time
	Count  int
	Bars   []models.MarketBar
}

func (uc *MarketUseCase) GetBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	if p.To.IsZero() {
		p.To = time.Now().UTC()
	}
	if p.From.IsZero() {
		p.From = p.To.AddDate(0, 0, -7)
	}
	if p.From.After(p.To) {
		return nil, xhttp.BadRequestError("from must be <= to")
	}
	p.From, p.To = util.AlignHourRange(p.From, p.To)
	if p.Limit <= 0 {
		p.Limit = 10000
	}
	if p.Limit > 50000 {
		p.Limit = 50000
	}

	bars, err := uc.store.GetRecentBars(ctx, symbol, p.From)
	if err != nil {
		return nil, fmt.Errorf("get bars: %w", err)
	}
	trimmed := bars[:0]
	for _, b := range bars {
		if !b.Timestamp.After(p.To) {
			trimmed = append(trimmed, b)
		}
	}
	if len(trimmed) > p.Limit {
		trimmed = trimmed[len(trimmed)-p.Limit:]
	}

	return &GetBarsResult{
		Symbol: symbol,
		From:   p.From,
		To:     p.To,
		Count:  len(trimmed),
		Bars:   trimmed,
	}, nil
}

// GetPrice returns the latest close plus a 24h change when a bar roughly a
// day old is available.
func (uc *MarketUseCase) GetPrice(ctx context.Context, symbol string) (*models.MarketPrice, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	bars, err := uc.store.GetLatestNBars(ctx, symbol, 25)
	if err != nil {
		return nil, fmt.Errorf("get price: %w", err)
	}
	if len(bars) == 0 {
		return nil, xhttp.NotFoundErrorf("no bars for %s", symbol)
	}

	last := bars[len(bars)-1]
	price := &models.MarketPrice{
		Symbol:    symbol,
		Price:     last.Close,
		Volume24h: sumVolume(bars),
		Timestamp: last.Timestamp,
	}
	if len(bars) == 25 && bars[0].Close > 0 {
		change := (last.Close - bars[0].Close) / bars[0].Close * 100
		price.Change24h = &change
	}
	return price, nil
}

func sumVolume(bars []models.MarketBar) float64 {
	var total float64
	for _, b := range bars {
		total += b.Volume
	}
	return total
}
