package calculator

// neutralRSI is reported for the warm-up region.
const neutralRSI = 50.0

// RSI computes the relative strength index from simple average gains and
// losses over the trailing period deltas. Indices below period report 50,
// and an index with no losses in its window reports 100.
func RSI(closes []float64, period int) []float64 {
	period = normPeriod(period)
	out := make([]float64, len(closes))
	for i := range closes {
		if i < period {
			out[i] = neutralRSI
			continue
		}
		var gain, loss float64
		for j := i - period + 1; j <= i; j++ {
			change := closes[j] - closes[j-1]
			if change > 0 {
				gain += change
			} else {
				loss -= change // make positive
			}
		}
		if loss == 0 {
			out[i] = 100.0
			continue
		}
		rs := (gain / float64(period)) / (loss / float64(period))
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}
