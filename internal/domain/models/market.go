package models

import "time"

// MarketBar is one OHLCV observation for a symbol. Bars are unique per
// (symbol, timestamp); the close is the canonical price signal.
type MarketBar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	MarketCap float64   `json:"market_cap,omitempty"`
	Source    string    `json:"source"`
}

// Tick is a single live trade observation from the exchange stream.
type Tick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"t"` // unix seconds
	Price     float64 `json:"p"`
	Volume    float64 `json:"v"`
}

// MarketPrice is the latest known price view for a symbol.
type MarketPrice struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Change24h *float64  `json:"change_24h,omitempty"`
	Volume24h float64   `json:"volume_24h"`
	Timestamp time.Time `json:"timestamp"`
}
