package sentiment

import (
	"context"
	"fmt"
	"strings"
	"time"

	domsvc "CoinSight/internal/domain/service"
	xhttp "CoinSight/pkg/http"
)

// Client fetches community sentiment scores on a 0-100 scale from an
// external service. A missing score is a nil pointer, not an error.
type Client struct {
	baseURL string
	client  *xhttp.Client
}

// New creates a SentimentProvider. An empty baseURL yields a disabled
// client that always reports no score.
func New(baseURL string, timeout time.Duration) domsvc.SentimentProvider {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type scoreResponse struct {
	Symbol string   `json:"symbol"`
	Score  *float64 `json:"score"`
}

func (c *Client) GetSentimentScore(ctx context.Context, symbol string) (*float64, error) {
	if c.baseURL == "" {
		return nil, nil
	}
	var res scoreResponse
	err := c.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/api/v1/sentiment",
		QueryParams: map[string][]string{
			"symbol": {strings.ToUpper(symbol)},
		},
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("sentiment %s: %w", symbol, err)
	}
	return res.Score, nil
}
