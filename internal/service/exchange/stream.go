package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"CoinSight/internal/domain/models"
	drepo "CoinSight/internal/domain/repository"
	applogger "CoinSight/pkg/logger"

	"github.com/gorilla/websocket"
)

const quoteAsset = "USDT"

// Stream implements a MarketStream over the exchange trade WebSocket.
// Configured symbols are bare base assets ("BTC"); the stream subscribes to
// their USDT markets and maps pairs back on read.
type Stream struct {
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
	l         *applogger.Logger
}

// NewStream creates a new exchange MarketStream.
func NewStream(websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	return &Stream{
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// SetLogger injects a structured logger.
func (s *Stream) SetLogger(l *applogger.Logger) { s.l = l }

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("exchange connect: %w", err)
	}
	s.conn = conn
	s.connected = true
	if s.l != nil {
		s.l.Info("exchange stream connected", applogger.String("url", s.websocketURL))
	}
	return nil
}

// Subscribe subscribes to the trade stream of every configured symbol.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.conn == nil || !s.connected {
		return fmt.Errorf("exchange not connected")
	}
	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(sym+quoteAsset)+"@trade")
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     1,
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if s.l != nil {
		s.l.Info("exchange stream subscribed", applogger.Strings("streams", params))
	}
	return nil
}

// trade event; price and quantity arrive as decimal strings.
type wsTrade struct {
	Event    string `json:"e"`
	Pair     string `json:"s"`
	Price    string `json:"p"`
	Quantity string `json:"q"`
	TradeTS  int64  `json:"T"` // ms
}

// Read streams Tick events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if s.conn != nil {
					_ = s.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if s.conn == nil {
					errs <- fmt.Errorf("exchange conn nil")
					return
				}
				_, b, err := s.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("exchange read: %w", err)
					return
				}
				var m wsTrade
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore non-trade frames
					continue
				}
				if m.Event != "trade" {
					continue
				}
				tick, ok := s.toTick(m)
				if !ok {
					continue
				}
				select {
				case ticks <- tick:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

func (s *Stream) toTick(m wsTrade) (*models.Tick, bool) {
	price, err := strconv.ParseFloat(m.Price, 64)
	if err != nil {
		return nil, false
	}
	volume, err := strconv.ParseFloat(m.Quantity, 64)
	if err != nil {
		return nil, false
	}
	symbol := strings.TrimSuffix(strings.ToUpper(m.Pair), quoteAsset)
	if symbol == "" {
		return nil, false
	}
	return &models.Tick{
		Symbol:    symbol,
		Timestamp: m.TradeTS / 1000,
		Price:     price,
		Volume:    volume,
	}, true
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.connected = false
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool { return s.connected }
