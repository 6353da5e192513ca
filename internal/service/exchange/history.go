package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"CoinSight/internal/domain/models"
	domsvc "CoinSight/internal/domain/service"
	xhttp "CoinSight/pkg/http"
)

const (
	historySource = "exchange_rest"
	maxKlines     = 1000
)

// HistoryClient backfills hourly bars from the exchange kline REST endpoint.
type HistoryClient struct {
	baseURL string
	client  *xhttp.Client
}

// NewHistoryClient creates a HistoryProvider over the exchange REST API.
func NewHistoryClient(baseURL string, timeout time.Duration) domsvc.HistoryProvider {
	return &HistoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// FetchHourlyBars fetches up to days*24 hourly klines, newest last. The
// endpoint caps a single request at 1000 rows, enough for the default
// 30-day lookback.
func (c *HistoryClient) FetchHourlyBars(ctx context.Context, symbol string, days int) ([]models.MarketBar, error) {
	limit := days * 24
	if limit <= 0 || limit > maxKlines {
		limit = maxKlines
	}

	// Each kline row is a mixed-type array:
	// [openTimeMs, "open", "high", "low", "close", "volume", ...]
	var rows [][]json.RawMessage
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {strings.ToUpper(symbol) + quoteAsset},
			"interval": {"1h"},
			"limit":    {strconv.Itoa(limit)},
		},
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
	}

	bars := make([]models.MarketBar, 0, len(rows))
	for _, row := range rows {
		bar, perr := parseKline(symbol, row)
		if perr != nil {
			return nil, fmt.Errorf("parse kline %s: %w", symbol, perr)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseKline(symbol string, row []json.RawMessage) (models.MarketBar, error) {
	var bar models.MarketBar
	if len(row) < 6 {
		return bar, fmt.Errorf("short row: %d fields", len(row))
	}

	var openMs int64
	if err := json.Unmarshal(row[0], &openMs); err != nil {
		return bar, fmt.Errorf("open time: %w", err)
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(row[i], &s); err != nil {
			return bar, fmt.Errorf("field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return bar, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i-1] = v
	}

	return models.MarketBar{
		Symbol:    strings.ToUpper(symbol),
		Timestamp: time.UnixMilli(openMs).UTC(),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
		Source:    historySource,
	}, nil
}
