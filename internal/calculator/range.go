package calculator

import (
	"math"

	"github.com/guregu/null/v5"
)

// StochasticResult holds the %K and %D lines.
type StochasticResult struct {
	K []null.Float
	D []null.Float
}

// Stochastic computes the stochastic oscillator. %K is null before the
// first full kPeriod window and 50 when the window range is flat.
// %D smooths %K over dPeriod, treating null %K as 50.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) StochasticResult {
	kPeriod = normPeriod(kPeriod)
	k := make([]null.Float, len(closes))
	for i, c := range closes {
		if i < kPeriod-1 {
			continue
		}
		hh, ll := windowRange(highs, lows, i-kPeriod+1, i)
		if hh == ll {
			k[i] = null.FloatFrom(50)
			continue
		}
		k[i] = null.FloatFrom(100 * (c - ll) / (hh - ll))
	}
	return StochasticResult{K: k, D: SMA(fillNull(k, 50), dPeriod)}
}

// windowRange scans [from, to] and returns the highest high and lowest low.
func windowRange(highs, lows []float64, from, to int) (high, low float64) {
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := from; i <= to; i++ {
		if highs[i] > high {
			high = highs[i]
		}
		if lows[i] < low {
			low = lows[i]
		}
	}
	return high, low
}
