package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinSight/internal/domain/models"
)

type captureSink struct {
	mu    sync.Mutex
	ticks []*models.Tick
	err   error
}

func (s *captureSink) Process(_ context.Context, t *models.Tick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.ticks = append(s.ticks, t)
	return nil
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ticks)
}

type countMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func (m *countMetrics) RecordForecastGenerated(string, string) {}
func (m *countMetrics) RecordBarIngested(string, string)       {}
func (m *countMetrics) RecordCacheLookup(bool)                 {}
func (m *countMetrics) RecordLastPrice(string, float64)        {}
func (m *countMetrics) RecordLatency(string, float64)          {}

func (m *countMetrics) RecordError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errors == nil {
		m.errors = make(map[string]int)
	}
	m.errors[op]++
}

func (m *countMetrics) errCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[op]
}

func validTick(symbol string) *models.Tick {
	return &models.Tick{Symbol: symbol, Timestamp: time.Now().Unix(), Price: 100, Volume: 1}
}

func TestPipelineForwardsValidTick(t *testing.T) {
	sink := &captureSink{}
	p := NewRealtimePipeline(sink, &countMetrics{})

	require.NoError(t, p.Process(context.Background(), validTick("BTC")))
	assert.Equal(t, 1, sink.count())
}

func TestPipelineRejectsInvalidTicks(t *testing.T) {
	sink := &captureSink{}
	m := &countMetrics{}
	p := NewRealtimePipeline(sink, m)
	ctx := context.Background()

	assert.Error(t, p.Process(ctx, nil))
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "", Timestamp: 1, Price: 1}))
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "BTC", Timestamp: 0, Price: 1}))
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "BTC", Timestamp: 1, Price: 0}))
	assert.Error(t, p.Process(ctx, &models.Tick{Symbol: "BTC", Timestamp: 1, Price: 1, Volume: -1}))

	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 5, m.errCount("pipeline_validate"))
}

func TestPipelineThrottlesPerSymbol(t *testing.T) {
	sink := &captureSink{}
	m := &countMetrics{}
	p := NewRealtimePipeline(sink, m, WithMaxRPS(1))
	ctx := context.Background()

	require.NoError(t, p.Process(ctx, validTick("BTC")))
	// second tick inside the same second is dropped without error
	require.NoError(t, p.Process(ctx, validTick("BTC")))
	// a different symbol has its own budget
	require.NoError(t, p.Process(ctx, validTick("ETH")))

	assert.Equal(t, 2, sink.count())
	assert.Equal(t, 1, m.errCount("pipeline_throttle"))
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	sink := &captureSink{err: errors.New("store down")}
	m := &countMetrics{}
	p := NewRealtimePipeline(sink, m, WithBufferSize(4))

	err := p.Process(context.Background(), validTick("BTC"))
	require.Error(t, err)
	assert.Equal(t, 1, m.errCount("pipeline_process"))
	assert.Len(t, p.bufCh, 1)
}

func TestPipelineFlushesBufferWhenDownstreamRecovers(t *testing.T) {
	sink := &captureSink{err: errors.New("store down")}
	m := &countMetrics{}
	p := NewRealtimePipeline(sink, m, WithBufferSize(4), WithMaxRPS(1000))
	ctx := context.Background()

	require.Error(t, p.Process(ctx, validTick("BTC")))

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()

	p.Start(ctx)
	defer p.Stop()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}
