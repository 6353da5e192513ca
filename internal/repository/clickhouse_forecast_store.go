package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"CoinSight/internal/domain/models"
	domrepo "CoinSight/internal/domain/repository"
	pkgch "CoinSight/pkg/clickhouse"
	applogger "CoinSight/pkg/logger"
)

const forecastTable = "coinsight.forecast_records"

// CHForecastStore implements ForecastStore backed by ClickHouse.
type CHForecastStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHForecastStore(ch *pkgch.Client) *CHForecastStore {
	return &CHForecastStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHForecastStore) SetLogger(l *applogger.Logger) { s.l = l }

// GetLatest resolves the newest record per horizon in a single query using
// LIMIT 1 BY, so callers never scan history to find the current forecast.
func (s *CHForecastStore) GetLatest(ctx context.Context, symbol string, horizons []domrepo.Horizon) (map[domrepo.Horizon]models.ForecastRecord, error) {
	if len(horizons) == 0 {
		horizons = domrepo.DefaultHorizons()
	}
	placeholders := make([]string, len(horizons))
	args := make([]interface{}, 0, len(horizons)+1)
	args = append(args, symbol)
	for i, h := range horizons {
		placeholders[i] = "?"
		args = append(args, h.Hours())
	}

	q := `
        SELECT symbol, generated_at, horizon_hours, predicted_price,
               confidence_lower, confidence_upper, confidence_score,
               probability_up, model_version, features
        FROM ` + forecastTable + `
        WHERE symbol = ? AND horizon_hours IN (` + strings.Join(placeholders, ",") + `)
        ORDER BY generated_at DESC
        LIMIT 1 BY horizon_hours
    `
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.logErr("latest_forecasts query error", symbol, err)
		return nil, fmt.Errorf("get latest forecasts: %w", err)
	}
	defer rows.Close()

	out := make(map[domrepo.Horizon]models.ForecastRecord, len(horizons))
	for rows.Next() {
		rec, err := scanForecast(rows)
		if err != nil {
			s.logErr("latest_forecasts scan error", symbol, err)
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		out[domrepo.Horizon(rec.HorizonHours)] = rec
	}
	if err := rows.Err(); err != nil {
		s.logErr("latest_forecasts rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHForecastStore) Append(ctx context.Context, records []models.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*10)
	for _, r := range records {
		features, err := json.Marshal(r.Features)
		if err != nil {
			return fmt.Errorf("encode features: %w", err)
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			r.Symbol,
			r.GeneratedAt,
			uint32(r.HorizonHours),
			r.PredictedPrice,
			r.ConfidenceLower,
			r.ConfidenceUpper,
			r.ConfidenceScore,
			r.ProbabilityUp,
			r.ModelVersion,
			string(features),
		)
	}
	q := "INSERT INTO " + forecastTable +
		" (symbol, generated_at, horizon_hours, predicted_price, confidence_lower, confidence_upper, confidence_score, probability_up, model_version, features) VALUES " +
		strings.Join(values, ",")
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		s.logErr("append_forecasts exec error", records[0].Symbol, err)
		return fmt.Errorf("append forecasts: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse forecasts appended",
			applogger.String("symbol", records[0].Symbol),
			applogger.Int("rows", len(records)),
		)
	}
	return nil
}

func (s *CHForecastStore) History(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.ForecastRecord, error) {
	const q = `
        SELECT symbol, generated_at, horizon_hours, predicted_price,
               confidence_lower, confidence_upper, confidence_score,
               probability_up, model_version, features
        FROM ` + forecastTable + `
        WHERE symbol = ? AND generated_at >= ? AND generated_at <= ?
        ORDER BY generated_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, q, symbol, from, to, limit)
	if err != nil {
		s.logErr("forecast_history query error", symbol, err)
		return nil, fmt.Errorf("get forecast history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ForecastRecord, 0, limit)
	for rows.Next() {
		rec, err := scanForecast(rows)
		if err != nil {
			s.logErr("forecast_history scan error", symbol, err)
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *CHForecastStore) logErr(msg, symbol string, err error) {
	if s.l != nil {
		s.l.Error(msg,
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

func scanForecast(rows *sql.Rows) (models.ForecastRecord, error) {
	var (
		rec      models.ForecastRecord
		horizon  uint32
		features string
	)
	if err := rows.Scan(
		&rec.Symbol,
		&rec.GeneratedAt,
		&horizon,
		&rec.PredictedPrice,
		&rec.ConfidenceLower,
		&rec.ConfidenceUpper,
		&rec.ConfidenceScore,
		&rec.ProbabilityUp,
		&rec.ModelVersion,
		&features,
	); err != nil {
		return rec, err
	}
	rec.HorizonHours = int(horizon)
	if features != "" {
		if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
			return rec, fmt.Errorf("decode features: %w", err)
		}
	}
	return rec, nil
}
