package forecast

import (
	"math"
	"time"
)

const (
	hoursPerDay  = 24
	hoursPerWeek = 168

	// Two full daily cycles are the minimum for stable seasonal indices.
	minSeasonalObservations = 2 * hoursPerDay
)

// FallbackReason explains why the seasonal model could not be used.
// FallbackNone means the fit succeeded.
type FallbackReason string

const (
	FallbackNone            FallbackReason = ""
	FallbackBootstrap       FallbackReason = "simple_bootstrap"
	FallbackShortHistory    FallbackReason = "insufficient_history"
	FallbackDegenerateFrame FallbackReason = "degenerate_series"
)

// Point is a single forecast row at an hourly offset from the end of the
// training frame.
type Point struct {
	HorizonHours int
	Value        float64
	Lower        float64
	Upper        float64
}

// LookupHorizon finds the row at an exact hour offset. Callers skip horizons
// with no matching row rather than interpolating.
func LookupHorizon(points []Point, horizonHours int) (Point, bool) {
	for _, p := range points {
		if p.HorizonHours == horizonHours {
			return p, true
		}
	}
	return Point{}, false
}

// SeasonalFit is a fitted trend model with multiplicative daily and weekly
// seasonality. Fitting is deterministic: the same frame always produces the
// same forecasts.
type SeasonalFit struct {
	intercept   float64
	slope       float64
	residualStd float64
	zScore      float64
	daily       [hoursPerDay]float64
	weekly      [hoursPerWeek]float64
	useWeekly   bool
	n           int
	lastTime    time.Time
}

// FitSeasonal fits the seasonal model to a training frame. intervalWidth is
// the nominal coverage of the confidence band, e.g. 0.8 for an 80% interval.
// A non-empty FallbackReason means the caller should use the moving-average
// fallback instead.
func FitSeasonal(frame TrainingFrame, intervalWidth float64) (*SeasonalFit, FallbackReason) {
	n := frame.Len()
	if n < minSeasonalObservations {
		return nil, FallbackShortHistory
	}
	for _, p := range frame.Prices {
		if p <= 0 || math.IsInf(p, 0) {
			return nil, FallbackDegenerateFrame
		}
	}
	if intervalWidth <= 0 || intervalWidth >= 1 {
		intervalWidth = 0.8
	}

	fit := &SeasonalFit{
		zScore:   math.Sqrt2 * math.Erfinv(intervalWidth),
		n:        n,
		lastTime: frame.LastTime(),
	}

	mean := meanOf(frame.Prices)
	if mean <= 0 {
		return nil, FallbackDegenerateFrame
	}

	fit.fitDaily(frame, mean)
	fit.useWeekly = n >= 2*hoursPerWeek
	if fit.useWeekly {
		fit.fitWeekly(frame)
	} else {
		for i := range fit.weekly {
			fit.weekly[i] = 1
		}
	}

	// Trend on the deseasonalized series via least squares over positions.
	deseason := make([]float64, n)
	for i := range frame.Prices {
		deseason[i] = frame.Prices[i] / fit.seasonalFactor(frame.Times[i])
	}
	fit.intercept, fit.slope = linearFit(deseason)

	var ss float64
	for i, v := range deseason {
		r := v - (fit.intercept + fit.slope*float64(i))
		ss += r * r
	}
	fit.residualStd = math.Sqrt(ss / float64(n-1))

	return fit, FallbackNone
}

// Forecast produces hourly rows for offsets 1..maxHours past the last
// training observation. Interval bounds are symmetric around the value.
func (f *SeasonalFit) Forecast(maxHours int) []Point {
	points := make([]Point, 0, maxHours)
	for h := 1; h <= maxHours; h++ {
		at := f.lastTime.Add(time.Duration(h) * time.Hour)
		factor := f.seasonalFactor(at)
		base := f.intercept + f.slope*float64(f.n-1+h)
		value := base * factor

		// Uncertainty widens with the forecast distance.
		spread := f.zScore * f.residualStd * factor * math.Sqrt(float64(h))
		points = append(points, Point{
			HorizonHours: h,
			Value:        value,
			Lower:        value - spread,
			Upper:        value + spread,
		})
	}
	return points
}

func (f *SeasonalFit) seasonalFactor(at time.Time) float64 {
	utc := at.UTC()
	factor := f.daily[utc.Hour()]
	if f.useWeekly {
		factor *= f.weekly[hourOfWeek(utc)]
	}
	if factor <= 0 {
		return 1
	}
	return factor
}

func (f *SeasonalFit) fitDaily(frame TrainingFrame, mean float64) {
	var sums [hoursPerDay]float64
	var counts [hoursPerDay]int
	for i, t := range frame.Times {
		h := t.UTC().Hour()
		sums[h] += frame.Prices[i]
		counts[h]++
	}
	for h := range f.daily {
		if counts[h] == 0 {
			f.daily[h] = 1
			continue
		}
		f.daily[h] = (sums[h] / float64(counts[h])) / mean
	}
}

// fitWeekly captures the hour-of-week effect left after the daily indices
// are removed.
func (f *SeasonalFit) fitWeekly(frame TrainingFrame) {
	var sums [hoursPerWeek]float64
	var counts [hoursPerWeek]int
	for i, t := range frame.Times {
		utc := t.UTC()
		daily := f.daily[utc.Hour()]
		if daily <= 0 {
			daily = 1
		}
		idx := hourOfWeek(utc)
		sums[idx] += frame.Prices[i] / daily
		counts[idx]++
	}

	var total float64
	var filled int
	for i := range sums {
		if counts[i] > 0 {
			total += sums[i] / float64(counts[i])
			filled++
		}
	}
	if filled == 0 {
		for i := range f.weekly {
			f.weekly[i] = 1
		}
		return
	}
	grand := total / float64(filled)
	for i := range f.weekly {
		if counts[i] == 0 || grand <= 0 {
			f.weekly[i] = 1
			continue
		}
		f.weekly[i] = (sums[i] / float64(counts[i])) / grand
	}
}

func hourOfWeek(t time.Time) int {
	return int(t.Weekday())*hoursPerDay + t.Hour()
}

func linearFit(series []float64) (intercept, slope float64) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	den := n*sumXX - sumX*sumX
	if den == 0 {
		return sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return intercept, slope
}

func meanOf(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	var sum float64
	for _, v := range series {
		sum += v
	}
	return sum / float64(len(series))
}
