package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"CoinSight/internal/domain/models"
	pkgch "CoinSight/pkg/clickhouse"
	applogger "CoinSight/pkg/logger"
)

const marketBarsTable = "coinsight.market_bars"

// CHMarketStore implements MarketHistoryStore backed by ClickHouse.
type CHMarketStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHMarketStore(ch *pkgch.Client) *CHMarketStore {
	return &CHMarketStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHMarketStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHMarketStore) GetRecentBars(ctx context.Context, symbol string, since time.Time) ([]models.MarketBar, error) {
	start := time.Now()
	const q = `
        SELECT symbol, ts, open, high, low, close, volume, market_cap, source
        FROM ` + marketBarsTable + ` FINAL
        WHERE symbol = ? AND ts >= ?
        ORDER BY ts ASC
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, since)
	if err != nil {
		s.logErr("recent_bars query error", symbol, err)
		return nil, fmt.Errorf("get recent bars: %w", err)
	}
	defer rows.Close()

	out := make([]models.MarketBar, 0, 1024)
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			s.logErr("recent_bars scan error", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("recent_bars rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse recent_bars ok",
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHMarketStore) GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.MarketBar, error) {
	const q = `
        SELECT symbol, ts, open, high, low, close, volume, market_cap, source
        FROM ` + marketBarsTable + ` FINAL
        WHERE symbol = ?
        ORDER BY ts DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, n)
	if err != nil {
		s.logErr("latest_bars query error", symbol, err)
		return nil, fmt.Errorf("get latest bars: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.MarketBar, 0, n)
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			s.logErr("latest_bars scan error", symbol, err)
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		tmp = append(tmp, b)
	}
	if err := rows.Err(); err != nil {
		s.logErr("latest_bars rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}

func (s *CHMarketStore) UpsertBar(ctx context.Context, bar models.MarketBar) error {
	return s.UpsertBars(ctx, []models.MarketBar{bar})
}

func (s *CHMarketStore) UpsertBars(ctx context.Context, bars []models.MarketBar) error {
	if len(bars) == 0 {
		return nil
	}
	// Multi-row VALUES insert, chunked to keep statements bounded.
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, b := range bars[start:end] {
			if b.Symbol == "" || b.Timestamp.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				b.Symbol,
				b.Timestamp,
				b.Open,
				b.High,
				b.Low,
				b.Close,
				b.Volume,
				b.MarketCap,
				b.Source,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := "INSERT INTO " + marketBarsTable +
			" (symbol, ts, open, high, low, close, volume, market_cap, source) VALUES " +
			strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logErr("upsert_bars exec error", bars[start].Symbol, err)
			return fmt.Errorf("upsert bars: %w", err)
		}
	}
	return nil
}

func (s *CHMarketStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHMarketStore) logErr(msg, symbol string, err error) {
	if s.l != nil {
		s.l.Error(msg,
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

func scanBar(rows *sql.Rows) (models.MarketBar, error) {
	var b models.MarketBar
	err := rows.Scan(&b.Symbol, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.MarketCap, &b.Source)
	return b, err
}
