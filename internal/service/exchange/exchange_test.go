package exchange

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTickParsesTradeFrame(t *testing.T) {
	s := &Stream{}
	tick, ok := s.toTick(wsTrade{
		Event:    "trade",
		Pair:     "BTCUSDT",
		Price:    "51234.50",
		Quantity: "0.25",
		TradeTS:  1750000000123,
	})
	require.True(t, ok)
	assert.Equal(t, "BTC", tick.Symbol)
	assert.Equal(t, int64(1750000000), tick.Timestamp)
	assert.Equal(t, 51234.50, tick.Price)
	assert.Equal(t, 0.25, tick.Volume)
}

func TestToTickRejectsMalformedFrames(t *testing.T) {
	s := &Stream{}

	_, ok := s.toTick(wsTrade{Pair: "BTCUSDT", Price: "abc", Quantity: "1"})
	assert.False(t, ok)

	_, ok = s.toTick(wsTrade{Pair: "BTCUSDT", Price: "1", Quantity: "abc"})
	assert.False(t, ok)

	_, ok = s.toTick(wsTrade{Pair: "USDT", Price: "1", Quantity: "1"})
	assert.False(t, ok, "pair with only the quote asset has no base symbol")
}

func TestParseKline(t *testing.T) {
	raw := `[1750000000000, "100.5", "110.0", "99.0", "105.25", "1234.5", 1750003599999, "0", 10, "0", "0", "0"]`
	var row []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &row))

	bar, err := parseKline("btc", row)
	require.NoError(t, err)
	assert.Equal(t, "BTC", bar.Symbol)
	assert.Equal(t, time.UnixMilli(1750000000000).UTC(), bar.Timestamp)
	assert.Equal(t, 100.5, bar.Open)
	assert.Equal(t, 110.0, bar.High)
	assert.Equal(t, 99.0, bar.Low)
	assert.Equal(t, 105.25, bar.Close)
	assert.Equal(t, 1234.5, bar.Volume)
	assert.Equal(t, "exchange_rest", bar.Source)
}

func TestParseKlineShortRow(t *testing.T) {
	var row []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[1750000000000, "1"]`), &row))

	_, err := parseKline("BTC", row)
	assert.Error(t, err)
}

func TestParseKlineBadNumber(t *testing.T) {
	var row []json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(`[1750000000000, "x", "1", "1", "1", "1"]`), &row))

	_, err := parseKline("BTC", row)
	assert.Error(t, err)
}
