package usecase

import (
	"context"
	"time"

	applogger "CoinSight/pkg/logger"
	"CoinSight/pkg/queue"
)

const refreshMessageType = "forecast.refresh"

// RefreshPayload names the symbol a queued regeneration targets.
type RefreshPayload struct {
	Symbol string `json:"symbol"`
}

// RefreshJob regenerates forecasts for queued symbols. Keeping regeneration
// on the queue spreads the model work of a multi-symbol deployment over the
// workers instead of bursting it on one request path.
type RefreshJob struct {
	uc *PredictionsUseCase
	l  *applogger.Logger
}

func NewRefreshJob(uc *PredictionsUseCase, l *applogger.Logger) *RefreshJob {
	return &RefreshJob{uc: uc, l: l}
}

func (j *RefreshJob) Name() string { return "forecast_refresh" }
func (j *RefreshJob) Type() string { return refreshMessageType }

func (j *RefreshJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[RefreshPayload](payload)
	if err != nil {
		return err
	}
	if _, err := j.uc.Refresh(ctx, p.Symbol); err != nil {
		return err
	}
	j.l.Debug("scheduled forecast refresh done", applogger.String("symbol", p.Symbol))
	return nil
}

var _ queue.Job = (*RefreshJob)(nil)

// RefreshScheduler enqueues a regeneration job per configured symbol on a
// fixed interval, keeping stored forecasts warm inside the staleness window.
type RefreshScheduler struct {
	q        queue.QueueService
	symbols  []string
	interval time.Duration
	l        *applogger.Logger
	stopCh   chan struct{}
}

func NewRefreshScheduler(q queue.QueueService, symbols []string, interval time.Duration, l *applogger.Logger) *RefreshScheduler {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &RefreshScheduler{
		q:        q,
		symbols:  symbols,
		interval: interval,
		l:        l,
		stopCh:   make(chan struct{}),
	}
}

func (s *RefreshScheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.enqueueAll(ctx)
			}
		}
	}()
}

func (s *RefreshScheduler) Stop() { close(s.stopCh) }

func (s *RefreshScheduler) enqueueAll(ctx context.Context) {
	for _, sym := range s.symbols {
		if err := s.q.PublishMessage(ctx, refreshMessageType, RefreshPayload{Symbol: sym}); err != nil {
			s.l.Warn("refresh enqueue failed",
				applogger.String("symbol", sym),
				applogger.Error(err),
			)
		}
	}
}
