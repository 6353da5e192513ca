package forecast

import (
	"math"
	"sort"
	"time"

	"CoinSight/internal/domain/models"
)

// TrainingFrame is the cleaned close-price series a model is fit on:
// deduplicated by timestamp, ascending, with null prices dropped.
type TrainingFrame struct {
	Times  []time.Time
	Prices []float64
}

// Len returns the number of observations.
func (f TrainingFrame) Len() int { return len(f.Prices) }

// CurrentPrice is the last close in the frame, or 0 when empty.
func (f TrainingFrame) CurrentPrice() float64 {
	if len(f.Prices) == 0 {
		return 0
	}
	return f.Prices[len(f.Prices)-1]
}

// LastTime is the timestamp of the last observation.
func (f TrainingFrame) LastTime() time.Time {
	if len(f.Times) == 0 {
		return time.Time{}
	}
	return f.Times[len(f.Times)-1]
}

// BuildTrainingFrame prepares bars for model fitting. Later duplicates win,
// matching upsert-by-timestamp semantics in the history store.
func BuildTrainingFrame(bars []models.MarketBar) TrainingFrame {
	byTime := make(map[int64]models.MarketBar, len(bars))
	for _, b := range bars {
		if math.IsNaN(b.Close) || b.Timestamp.IsZero() {
			continue
		}
		byTime[b.Timestamp.Unix()] = b
	}

	keys := make([]int64, 0, len(byTime))
	for k := range byTime {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	frame := TrainingFrame{
		Times:  make([]time.Time, 0, len(keys)),
		Prices: make([]float64, 0, len(keys)),
	}
	for _, k := range keys {
		b := byTime[k]
		frame.Times = append(frame.Times, b.Timestamp)
		frame.Prices = append(frame.Prices, b.Close)
	}
	return frame
}
