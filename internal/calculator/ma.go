package calculator

import (
	"github.com/guregu/null/v5"

	"QuoteSentinel/internal/model"
)

// SMA computes the simple moving average of series over period.
// Indices before the first full window are null.
func SMA(series []float64, period int) []null.Float {
	period = normPeriod(period)
	return rolling(series, period, func(win []float64) float64 {
		return sum(win) / float64(period)
	})
}

// EMA computes the exponential moving average of series. It seeds at the
// first value, so there is no null prefix.
func EMA(series []float64, period int) []float64 {
	period = normPeriod(period)
	k := 2.0 / float64(period+1)
	out := make([]float64, len(series))
	for i, v := range series {
		if i == 0 {
			out[i] = v
			continue
		}
		out[i] = (v-out[i-1])*k + out[i-1]
	}
	return out
}

// rolling applies fn to every trailing window of length period.
func rolling(series []float64, period int, fn func(win []float64) float64) []null.Float {
	out := make([]null.Float, len(series))
	for i := range series {
		if i < period-1 {
			continue
		}
		out[i] = null.FloatFrom(fn(series[i-period+1 : i+1]))
	}
	return out
}

func normPeriod(period int) int {
	if period < 1 {
		return 1
	}
	return period
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

// fillNull replaces null entries with def.
func fillNull(values []null.Float, def float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v.Valid {
			out[i] = v.ValueOrZero()
		} else {
			out[i] = def
		}
	}
	return out
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func extractHighs(bars []model.Bar) []float64 {
	highs := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
	}
	return highs
}

func extractLows(bars []model.Bar) []float64 {
	lows := make([]float64, len(bars))
	for i, b := range bars {
		lows[i] = b.Low
	}
	return lows
}

func extractVolumes(bars []model.Bar) []float64 {
	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	return vols
}
