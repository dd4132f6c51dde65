package calculator

import (
	"math"

	"github.com/guregu/null/v5"
)

// BollingerResult holds the band lines. All four are null during warm-up.
type BollingerResult struct {
	Mid   []null.Float
	Upper []null.Float
	Lower []null.Float
	Width []null.Float
}

// Bollinger computes Bollinger bands around SMA(period) at mult population
// standard deviations. Width is (upper-lower)/mid and null when mid is 0.
func Bollinger(series []float64, period int, mult float64) BollingerResult {
	period = normPeriod(period)
	n := len(series)
	res := BollingerResult{
		Mid:   make([]null.Float, n),
		Upper: make([]null.Float, n),
		Lower: make([]null.Float, n),
		Width: make([]null.Float, n),
	}
	ma := SMA(series, period)
	for i := range series {
		if i < period-1 {
			continue
		}
		mean := ma[i].ValueOrZero()
		variance := 0.0
		for _, v := range series[i-period+1 : i+1] {
			variance += (v - mean) * (v - mean)
		}
		sd := math.Sqrt(variance / float64(period))
		upper := mean + mult*sd
		lower := mean - mult*sd

		res.Mid[i] = null.FloatFrom(mean)
		res.Upper[i] = null.FloatFrom(upper)
		res.Lower[i] = null.FloatFrom(lower)
		if mean != 0 {
			res.Width[i] = null.FloatFrom((upper - lower) / mean)
		}
	}
	return res
}

// TrueRange returns the per-bar true range. The first bar uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	tr := make([]float64, len(highs))
	for i := range highs {
		if i == 0 {
			tr[i] = highs[i] - lows[i]
			continue
		}
		prevClose := closes[i-1]
		tr[i] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-prevClose), math.Abs(lows[i]-prevClose)))
	}
	return tr
}

// ATR is the exponential average of the true range.
func ATR(highs, lows, closes []float64, period int) []float64 {
	return EMA(TrueRange(highs, lows, closes), period)
}
