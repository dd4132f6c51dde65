package strategy

import (
	"fmt"
	"math"

	"github.com/guregu/null/v5"

	"QuoteSentinel/internal/model"
)

// tally accumulates rule points and reasons in firing order.
type tally struct {
	bull    int
	bear    int
	reasons []string
}

func (t *tally) bullish(points int, reason string) {
	t.bull += points
	if reason != "" {
		t.reasons = append(t.reasons, reason)
	}
}

func (t *tally) bearish(points int, reason string) {
	t.bear += points
	if reason != "" {
		t.reasons = append(t.reasons, reason)
	}
}

// or returns the value of v, or def when v is null.
func or(v null.Float, def float64) float64 {
	if v.Valid {
		return v.ValueOrZero()
	}
	return def
}

// scoreRSI: oversold/overbought extremes, else crossings of 50.
func scoreRSI(t *tally, a, b model.EnrichedBar) {
	rsiA := or(a.RSI, 50)
	rsiB := or(b.RSI, rsiA)
	switch {
	case rsiA <= 30:
		t.bullish(2, "RSI oversold (≤30)")
	case rsiA >= 70:
		t.bearish(2, "RSI overbought (≥70)")
	default:
		if rsiA > 50 && rsiB <= 50 {
			t.bullish(1, "RSI crossed > 50")
		}
		if rsiA < 50 && rsiB >= 50 {
			t.bearish(1, "RSI crossed < 50")
		}
	}
}

// scoreMovingAverages: price on one side of SMA and EMA, confirmed by EMA12 vs EMA26.
func scoreMovingAverages(t *tally, a model.EnrichedBar) {
	sma := or(a.SMA, a.Close)
	ema := or(a.EMA, a.Close)
	ema26 := or(a.EMA26, ema)

	if a.Close > sma && a.Close > ema && ema > ema26 {
		t.bullish(2, "Price > SMA & EMA; EMA12 > EMA26")
	}
	if a.Close < sma && a.Close < ema && ema < ema26 {
		t.bearish(2, "Price < SMA & EMA; EMA12 < EMA26")
	}
}

// scoreMACD: line/signal crossover plus histogram sign agreement.
func scoreMACD(t *tally, a, b model.EnrichedBar) {
	macdA := or(a.MACD, 0)
	sigA := or(a.MACDSignal, 0)
	macdB := or(b.MACD, macdA)
	sigB := or(b.MACDSignal, sigA)
	histA := or(a.MACDHist, 0)

	if macdB <= sigB && macdA > sigA {
		t.bullish(2, "MACD bullish crossover")
	}
	if macdB >= sigB && macdA < sigA {
		t.bearish(2, "MACD bearish crossover")
	}
	if histA > 0 && macdA > 0 {
		t.bullish(1, "")
	}
	if histA < 0 && macdA < 0 {
		t.bearish(1, "")
	}
}

// scoreBollinger: closes outside the bands and band-width expansion.
func scoreBollinger(t *tally, a, b model.EnrichedBar) {
	upper := or(a.BBUpper, math.Inf(1))
	lower := or(a.BBLower, math.Inf(-1))
	widthA := or(a.BBWidth, 0)
	widthB := or(b.BBWidth, widthA)

	if a.Close < lower {
		t.bullish(1, "Close below lower Bollinger (mean-reversion)")
	}
	if a.Close > upper {
		t.bearish(1, "Close above upper Bollinger (pullback risk)")
	}
	if widthA > widthB*1.2 {
		t.reasons = append(t.reasons, "Bollinger width expanding (volatility breakout)")
		if a.Close > or(a.EMA, a.Close) {
			t.bullish(1, "")
		} else {
			t.bearish(1, "")
		}
	}
}

// scoreADX: directional dominance once the trend is strong enough.
func scoreADX(t *tally, a model.EnrichedBar) {
	adx := or(a.ADX, 0)
	diPlus := or(a.DIPlus, 0)
	diMinus := or(a.DIMinus, 0)
	if adx < 20 {
		return
	}
	if diPlus > diMinus {
		t.bullish(1, fmt.Sprintf("Trend strength (ADX %.0f) favoring +DI", math.Round(adx)))
	}
	if diMinus > diPlus {
		t.bearish(1, fmt.Sprintf("Trend strength (ADX %.0f) favoring −DI", math.Round(adx)))
	}
}

// scoreStochastic: %K and %D turning out of an extreme zone.
func scoreStochastic(t *tally, a, b model.EnrichedBar) {
	kA, dA := or(a.StochK, 50), or(a.StochD, 50)
	kB, dB := or(b.StochK, kA), or(b.StochD, dA)
	if kB <= 20 && kA > kB && dA > dB {
		t.bullish(1, "Stochastic turning up from oversold")
	}
	if kB >= 80 && kA < kB && dA < dB {
		t.bearish(1, "Stochastic turning down from overbought")
	}
}

// scoreVolumeFlow: OBV confirming price direction, and MFI extremes.
func scoreVolumeFlow(t *tally, a, b model.EnrichedBar) {
	obvA := or(a.OBV, 0)
	obvB := or(b.OBV, obvA)
	if obvA > obvB && a.Close > b.Close {
		t.bullish(1, "OBV rising with price")
	}
	if obvA < obvB && a.Close < b.Close {
		t.bearish(1, "OBV falling with price")
	}

	mfi := or(a.MFI14, 50)
	if mfi >= 80 {
		t.bearish(1, "MFI overbought (≥80)")
	}
	if mfi <= 20 {
		t.bullish(1, "MFI oversold (≤20)")
	}
}

// scoreMomentum: single-period move beyond ±2%.
func scoreMomentum(t *tally, a, b model.EnrichedBar) {
	if b.Close == 0 {
		return
	}
	pct := (a.Close - b.Close) / b.Close * 100
	if pct > 2 {
		t.bullish(1, fmt.Sprintf("Up momentum (+%.2f%%)", pct))
	}
	if pct < -2 {
		t.bearish(1, fmt.Sprintf("Down momentum (%.2f%%)", pct))
	}
}

// scoreVolumeSpike: volume above 1.5x the prior bar, sided by the candle colour.
func scoreVolumeSpike(t *tally, a, b model.EnrichedBar) {
	if a.Volume <= b.Volume*1.5 {
		return
	}
	if a.Close >= a.Open {
		t.bullish(1, "")
	} else {
		t.bearish(1, "")
	}
	t.reasons = append(t.reasons, "Volume spike")
}
