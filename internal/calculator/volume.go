package calculator

import "github.com/guregu/null/v5"

// OBV computes on-balance volume starting from 0.
func OBV(closes, volumes []float64) []float64 {
	out := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// MFI computes the money flow index. Indices below period are null and a
// window without negative flow reports 100.
func MFI(highs, lows, closes, volumes []float64, period int) []null.Float {
	period = normPeriod(period)
	n := len(closes)
	tp := make([]float64, n)
	for i := range closes {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}

	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		raw := tp[i] * volumes[i]
		switch {
		case tp[i] > tp[i-1]:
			pos[i] = raw
		case tp[i] < tp[i-1]:
			neg[i] = raw
		}
	}

	out := make([]null.Float, n)
	for i := period; i < n; i++ {
		ps := sum(pos[i-period+1 : i+1])
		ns := sum(neg[i-period+1 : i+1])
		if ns == 0 {
			out[i] = null.FloatFrom(100)
			continue
		}
		ratio := ps / ns
		out[i] = null.FloatFrom(100 - 100/(1+ratio))
	}
	return out
}
