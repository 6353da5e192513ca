package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"CoinSight/internal/domain/models"
	domrepo "CoinSight/internal/domain/repository"
	domsvc "CoinSight/internal/domain/service"
	"CoinSight/internal/services/features"
	"CoinSight/internal/services/forecast"
	pkgcache "CoinSight/pkg/cache"
	"CoinSight/pkg/config"
	xhttp "CoinSight/pkg/http"
	applogger "CoinSight/pkg/logger"
)

// errPersist marks a store-write failure during generation. Unlike other
// generation failures it is surfaced to the caller instead of degrading to a
// simulated response, so forecasts are never served unbacked by storage.
var errPersist = errors.New("forecast persist failed")

const predictionsKeyPrefix = "predictions"

// PredictionsUseCase owns forecast generation, staleness policy and the
// read-through response cache.
type PredictionsUseCase struct {
	bars      domrepo.MarketHistoryStore
	forecasts domrepo.ForecastStore
	cache     pkgcache.Service
	sentiment domsvc.SentimentProvider
	history   domsvc.HistoryProvider
	metrics   domrepo.Metrics

	fcfg         config.ForecastConfig
	refSymbol    string
	lookbackDays int

	l *applogger.Logger
}

func NewPredictionsUseCase(
	bars domrepo.MarketHistoryStore,
	forecasts domrepo.ForecastStore,
	cache pkgcache.Service,
	sentiment domsvc.SentimentProvider,
	history domsvc.HistoryProvider,
	metrics domrepo.Metrics,
	fcfg config.ForecastConfig,
	refSymbol string,
	lookbackDays int,
) *PredictionsUseCase {
	return &PredictionsUseCase{
		bars:         bars,
		forecasts:    forecasts,
		cache:        cache,
		sentiment:    sentiment,
		history:      history,
		metrics:      metrics,
		fcfg:         fcfg,
		refSymbol:    refSymbol,
		lookbackDays: lookbackDays,
	}
}

// SetLogger injects a structured logger.
func (uc *PredictionsUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// GetPredictionsParams selects the symbol, the horizons and the response
// shape. Empty Horizons means the default set.
type GetPredictionsParams struct {
	Symbol            string
	Horizons          []string
	IncludeConfidence bool
	IncludeFactors    bool
}

// GetPredictions answers from the response cache when possible, otherwise
// reuses fresh stored forecasts or generates new ones. Generation failures
// degrade to a simulated response; a failed store write does not.
func (uc *PredictionsUseCase) GetPredictions(ctx context.Context, p GetPredictionsParams) (*models.PredictionResponse, error) {
	symbol := strings.ToUpper(strings.TrimSpace(p.Symbol))
	if symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	horizons := domrepo.ParseHorizons(p.Horizons)

	key := predictionsCacheKey(symbol, p.Horizons, p.IncludeConfidence, p.IncludeFactors)
	loaded := false
	resp, err := pkgcache.GetOrLoad(ctx, uc.cache, key, uc.fcfg.CacheTTL, func() (*models.PredictionResponse, error) {
		loaded = true
		return uc.resolve(ctx, symbol, horizons, p.IncludeConfidence, p.IncludeFactors)
	})
	uc.metrics.RecordCacheLookup(!loaded)
	if err != nil {
		if errors.Is(err, errPersist) {
			return nil, err
		}
		if uc.l != nil {
			uc.l.Warn("prediction generation degraded to simulated",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
		uc.metrics.RecordError("prediction_generate")
		simHorizons := horizons
		if len(p.Horizons) == 0 {
			simHorizons = []domrepo.Horizon{domrepo.Horizon24h}
		}
		return uc.simulated(symbol, simHorizons, p.IncludeConfidence, p.IncludeFactors), nil
	}
	return resp, nil
}

// GetBatchPredictions resolves several symbols with one call. Symbols keep
// their per-symbol degradation behavior; one bad symbol does not fail the
// batch unless its store write failed.
func (uc *PredictionsUseCase) GetBatchPredictions(ctx context.Context, symbols []string, p GetPredictionsParams) ([]*models.PredictionResponse, error) {
	out := make([]*models.PredictionResponse, 0, len(symbols))
	for _, s := range symbols {
		sp := p
		sp.Symbol = s
		resp, err := uc.GetPredictions(ctx, sp)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// Refresh regenerates forecasts for a symbol regardless of staleness and
// drops every cached response variant for it.
func (uc *PredictionsUseCase) Refresh(ctx context.Context, symbol string) (*models.PredictionResponse, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	horizons := domrepo.ParseHorizons(uc.fcfg.Horizons)
	resp, err := uc.generate(ctx, symbol, horizons, true, true)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// History lists archived forecasts for a symbol, newest first.
func (uc *PredictionsUseCase) History(ctx context.Context, symbol string, from, to time.Time, limit int) (*models.PredictionHistoryResponse, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, xhttp.BadRequestError("symbol required")
	}
	if limit <= 0 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	records, err := uc.forecasts.History(ctx, symbol, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("prediction history: %w", err)
	}
	items := make([]models.PredictionHistoryItem, 0, len(records))
	for _, r := range records {
		prob := r.ProbabilityUp
		items = append(items, models.PredictionHistoryItem{
			PredictionTime: r.GeneratedAt,
			Horizon:        domrepo.Horizon(r.HorizonHours).Label(),
			PredictedPrice: r.PredictedPrice,
			ProbabilityUp:  &prob,
		})
	}
	return &models.PredictionHistoryResponse{Symbol: symbol, Items: items}, nil
}

// resolve reuses fresh stored forecasts or generates new ones.
func (uc *PredictionsUseCase) resolve(ctx context.Context, symbol string, horizons []domrepo.Horizon, withConfidence, withFactors bool) (*models.PredictionResponse, error) {
	latest, err := uc.forecasts.GetLatest(ctx, symbol, horizons)
	if err == nil && uc.isFresh(latest, horizons, time.Now().UTC()) {
		current, cerr := uc.currentPrice(ctx, symbol)
		if cerr == nil {
			return uc.assembleStored(symbol, current, horizons, latest, withConfidence, withFactors), nil
		}
	}
	return uc.generate(ctx, symbol, horizons, withConfidence, withFactors)
}

// isFresh requires every requested horizon to be present and the most
// recent generation across them to be inside the staleness window.
func (uc *PredictionsUseCase) isFresh(latest map[domrepo.Horizon]models.ForecastRecord, horizons []domrepo.Horizon, now time.Time) bool {
	var newest time.Time
	for _, h := range horizons {
		rec, ok := latest[h]
		if !ok {
			return false
		}
		if rec.GeneratedAt.After(newest) {
			newest = rec.GeneratedAt
		}
	}
	return now.Sub(newest) <= uc.fcfg.StalenessWindow
}

// generate runs one full generation pass: history, features, model, persist,
// cache invalidation.
func (uc *PredictionsUseCase) generate(ctx context.Context, symbol string, horizons []domrepo.Horizon, withConfidence, withFactors bool) (*models.PredictionResponse, error) {
	start := time.Now()

	frame, err := uc.trainingFrame(ctx, symbol)
	if err != nil {
		return nil, err
	}
	// Below the minimum even after backfill: no records are produced, the
	// caller serves the simulated response.
	if frame.Len() < uc.fcfg.MinHistory {
		return nil, fmt.Errorf("insufficient history for %s: %d bars", symbol, frame.Len())
	}
	current := frame.CurrentPrice()
	snapshot := uc.featureSnapshot(ctx, symbol, frame)

	points, version := uc.runModel(symbol, frame, horizons)

	generatedAt := time.Now().UTC()
	records := make([]models.ForecastRecord, 0, len(horizons))
	for _, h := range horizons {
		pt, ok := forecast.LookupHorizon(points, h.Hours())
		if !ok {
			// Horizons past the model's output are skipped, not interpolated.
			continue
		}
		records = append(records, models.ForecastRecord{
			Symbol:          symbol,
			GeneratedAt:     generatedAt,
			HorizonHours:    h.Hours(),
			PredictedPrice:  pt.Value,
			ConfidenceLower: pt.Lower,
			ConfidenceUpper: pt.Upper,
			ConfidenceScore: forecast.ConfidenceScore(pt.Lower, pt.Upper, current),
			ProbabilityUp:   forecast.ProbabilityUp(pt.Value, current, snapshot.Sentiment, snapshot.VolumeMomentum),
			ModelVersion:    version,
			Features:        snapshot.Map(),
		})
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("model produced no rows for %s", symbol)
	}

	if err := uc.forecasts.Append(ctx, records); err != nil {
		uc.metrics.RecordError("forecast_persist")
		return nil, fmt.Errorf("%w: %v", errPersist, err)
	}
	for _, r := range records {
		uc.metrics.RecordForecastGenerated(symbol, r.ModelVersion)
	}
	uc.metrics.RecordLastPrice(symbol, current)
	uc.metrics.RecordLatency("forecast_generate", time.Since(start).Seconds())

	// Stored variants for other horizon/flag combinations are now stale.
	uc.invalidate(ctx, symbol)

	if uc.l != nil {
		uc.l.Info("forecasts generated",
			applogger.String("symbol", symbol),
			applogger.String("model_version", version),
			applogger.Int("horizons", len(records)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return uc.assemble(symbol, current, records, withConfidence, withFactors), nil
}

// runModel fits the seasonal model unless bootstrap mode or a fit fallback
// routes the pass to the moving-average estimator.
func (uc *PredictionsUseCase) runModel(symbol string, frame forecast.TrainingFrame, horizons []domrepo.Horizon) ([]forecast.Point, string) {
	hours := make([]int, len(horizons))
	maxHours := 0
	for i, h := range horizons {
		hours[i] = h.Hours()
		if h.Hours() > maxHours {
			maxHours = h.Hours()
		}
	}

	if !uc.fcfg.SimpleBootstrap {
		fit, reason := forecast.FitSeasonal(frame, uc.fcfg.IntervalWidth)
		if reason == forecast.FallbackNone {
			return fit.Forecast(maxHours), models.ModelVersionSeasonal
		}
		if uc.l != nil {
			uc.l.Debug("seasonal fit unavailable, using moving average",
				applogger.String("symbol", symbol),
				applogger.String("reason", string(reason)),
			)
		}
	}
	return forecast.MovingAverageForecast(frame, hours), models.ModelVersionFallback
}

// trainingFrame loads recent bars, backfilling from the external history
// provider when the store holds too little to model on.
func (uc *PredictionsUseCase) trainingFrame(ctx context.Context, symbol string) (forecast.TrainingFrame, error) {
	since := time.Now().UTC().AddDate(0, 0, -uc.lookbackDays)
	bars, err := uc.bars.GetRecentBars(ctx, symbol, since)
	if err != nil {
		return forecast.TrainingFrame{}, fmt.Errorf("load history: %w", err)
	}
	if len(bars) < uc.fcfg.MinHistory && uc.history != nil {
		fetched, ferr := uc.history.FetchHourlyBars(ctx, symbol, uc.lookbackDays)
		if ferr != nil {
			if uc.l != nil {
				uc.l.Warn("history backfill failed",
					applogger.String("symbol", symbol),
					applogger.Error(ferr),
				)
			}
		} else if len(fetched) > 0 {
			if uerr := uc.bars.UpsertBars(ctx, fetched); uerr != nil {
				return forecast.TrainingFrame{}, fmt.Errorf("backfill store: %w", uerr)
			}
			bars, err = uc.bars.GetRecentBars(ctx, symbol, since)
			if err != nil {
				return forecast.TrainingFrame{}, fmt.Errorf("reload history: %w", err)
			}
		}
	}
	return forecast.BuildTrainingFrame(bars), nil
}

// featureSnapshot computes the auxiliary factors. Every source degrades to a
// neutral zero on error; features never block a generation pass.
func (uc *PredictionsUseCase) featureSnapshot(ctx context.Context, symbol string, frame forecast.TrainingFrame) models.FeatureSnapshot {
	var snap models.FeatureSnapshot

	if uc.sentiment != nil {
		score, err := uc.sentiment.GetSentimentScore(ctx, symbol)
		if err != nil {
			score = nil
		}
		snap.Sentiment = features.SentimentFactor(score)
	}

	since := time.Now().UTC().AddDate(0, 0, -uc.lookbackDays)
	bars, err := uc.bars.GetRecentBars(ctx, symbol, since)
	if err == nil {
		snap.VolumeMomentum = features.VolumeMomentum(bars)
	}

	if symbol != uc.refSymbol {
		refBars, rerr := uc.bars.GetRecentBars(ctx, uc.refSymbol, since)
		if rerr == nil {
			snap.MarketCorrelation = features.MarketCorrelation(symbol, uc.refSymbol, refBars)
		}
	}
	return snap
}

func (uc *PredictionsUseCase) currentPrice(ctx context.Context, symbol string) (float64, error) {
	bars, err := uc.bars.GetLatestNBars(ctx, symbol, 1)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		return 0, fmt.Errorf("no bars for %s", symbol)
	}
	return bars[len(bars)-1].Close, nil
}

func (uc *PredictionsUseCase) invalidate(ctx context.Context, symbol string) {
	if uc.cache == nil {
		return
	}
	pattern := pkgcache.BuildPattern(pkgcache.GenerateKey(predictionsKeyPrefix, symbol))
	if err := uc.cache.DeleteByPattern(ctx, pattern); err != nil && !errors.Is(err, pkgcache.ErrCacheMiss) {
		if uc.l != nil {
			uc.l.Warn("prediction cache invalidation failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}
}

func (uc *PredictionsUseCase) assemble(symbol string, current float64, records []models.ForecastRecord, withConfidence, withFactors bool) *models.PredictionResponse {
	items := make([]models.PredictionItem, 0, len(records))
	for _, r := range records {
		items = append(items, predictionItem(r, withConfidence, withFactors))
	}
	return &models.PredictionResponse{
		Symbol:       symbol,
		CurrentPrice: current,
		Predictions:  items,
	}
}

func (uc *PredictionsUseCase) assembleStored(symbol string, current float64, horizons []domrepo.Horizon, latest map[domrepo.Horizon]models.ForecastRecord, withConfidence, withFactors bool) *models.PredictionResponse {
	items := make([]models.PredictionItem, 0, len(horizons))
	for _, h := range horizons {
		rec, ok := latest[h]
		if !ok {
			continue
		}
		items = append(items, predictionItem(rec, withConfidence, withFactors))
	}
	return &models.PredictionResponse{
		Symbol:       symbol,
		CurrentPrice: current,
		Predictions:  items,
	}
}

func predictionItem(r models.ForecastRecord, withConfidence, withFactors bool) models.PredictionItem {
	item := models.PredictionItem{
		Horizon:        domrepo.Horizon(r.HorizonHours).Label(),
		PredictedPrice: r.PredictedPrice,
		ModelVersion:   r.ModelVersion,
		GeneratedAt:    r.GeneratedAt,
	}
	if withConfidence {
		item.ConfidenceInterval = &models.ConfidenceInterval{
			Lower:      r.ConfidenceLower,
			Upper:      r.ConfidenceUpper,
			Confidence: r.ConfidenceScore,
		}
	}
	item.Probability = &models.Probability{
		Up:   r.ProbabilityUp,
		Down: 1 - r.ProbabilityUp,
	}
	if withFactors && len(r.Features) > 0 {
		names := make([]string, 0, len(r.Features))
		for name := range r.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		factors := make([]models.PredictionFactor, 0, len(names))
		for _, name := range names {
			factors = append(factors, models.PredictionFactor{Name: name, Impact: r.Features[name]})
		}
		item.Factors = factors
	}
	return item
}

// simulated is the last-resort response when no real forecast can be made.
// It is neither persisted nor cached. A request without explicit horizons
// gets a single 24h item.
func (uc *PredictionsUseCase) simulated(symbol string, horizons []domrepo.Horizon, withConfidence, withFactors bool) *models.PredictionResponse {
	now := time.Now().UTC()
	items := make([]models.PredictionItem, 0, len(horizons))
	for idx, h := range horizons {
		price := 20000 + float64(idx)*75
		item := models.PredictionItem{
			Horizon:        h.Label(),
			PredictedPrice: price,
			Probability:    &models.Probability{Up: 0.55, Down: 0.45},
			ModelVersion:   models.ModelVersionSimulated,
			GeneratedAt:    now,
		}
		if withConfidence {
			item.ConfidenceInterval = &models.ConfidenceInterval{
				Lower:      price * 0.98,
				Upper:      price * 1.02,
				Confidence: 0.6,
			}
		}
		if withFactors {
			item.Factors = []models.PredictionFactor{
				{Name: "momentum", Impact: 0.25},
				{Name: "volatility", Impact: 0.15},
			}
		}
		items = append(items, item)
	}
	return &models.PredictionResponse{
		Symbol:       symbol,
		CurrentPrice: 20000,
		Predictions:  items,
	}
}

// predictionsCacheKey keys the response cache on the symbol, the sorted
// horizon labels and the response shape flags.
func predictionsCacheKey(symbol string, horizons []string, withConfidence, withFactors bool) string {
	segment := "default"
	if len(horizons) > 0 {
		sorted := make([]string, len(horizons))
		copy(sorted, horizons)
		sort.Strings(sorted)
		segment = strings.Join(sorted, ",")
	}
	return pkgcache.GenerateKeyWithParams(
		pkgcache.GenerateKey(predictionsKeyPrefix, symbol),
		segment,
		boolBit(withConfidence),
		boolBit(withFactors),
	)
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}
