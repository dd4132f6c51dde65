package calculator

import (
	"math"

	"github.com/guregu/null/v5"
)

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD   []float64
	Signal []float64
	Hist   []float64
}

// MACD computes EMA(fast)-EMA(slow), its EMA(signal) and their difference.
func MACD(series []float64, fast, slow, signal int) MACDResult {
	emaFast := EMA(series, fast)
	emaSlow := EMA(series, slow)
	line := make([]float64, len(series))
	for i := range series {
		line[i] = emaFast[i] - emaSlow[i]
	}
	sig := EMA(line, signal)
	hist := make([]float64, len(series))
	for i := range line {
		hist[i] = line[i] - sig[i]
	}
	return MACDResult{MACD: line, Signal: sig, Hist: hist}
}

// ADXResult holds the directional indicators and the average directional index.
type ADXResult struct {
	DIPlus  []null.Float
	DIMinus []null.Float
	ADX     []float64
}

// ADX computes +DI, -DI and ADX. Directional movement counts only the larger
// of the two deltas and only when positive; both are EMA-smoothed and divided
// by ATR. DI is null where ATR is 0.
func ADX(highs, lows, closes []float64, period int) ADXResult {
	n := len(highs)
	dmPlus := make([]float64, n)
	dmMinus := make([]float64, n)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		dn := lows[i-1] - lows[i]
		if up > dn && up > 0 {
			dmPlus[i] = up
		}
		if dn > up && dn > 0 {
			dmMinus[i] = dn
		}
	}

	atr := ATR(highs, lows, closes, period)
	smPlus := EMA(dmPlus, period)
	smMinus := EMA(dmMinus, period)

	diPlus := make([]null.Float, n)
	diMinus := make([]null.Float, n)
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if atr[i] == 0 {
			continue
		}
		p := 100 * smPlus[i] / atr[i]
		m := 100 * smMinus[i] / atr[i]
		diPlus[i] = null.FloatFrom(p)
		diMinus[i] = null.FloatFrom(m)
		if p+m != 0 {
			dx[i] = 100 * math.Abs(p-m) / (p + m)
		}
	}

	return ADXResult{DIPlus: diPlus, DIMinus: diMinus, ADX: EMA(dx, period)}
}
