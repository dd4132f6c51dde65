package calculator

import (
	"github.com/guregu/null/v5"

	"QuoteSentinel/internal/model"
)

// Indicator periods used by Enrich.
const (
	SMAPeriod        = 20
	EMAFastPeriod    = 12
	EMASlowPeriod    = 26
	MACDSignalPeriod = 9
	BollingerPeriod  = 20
	BollingerMult    = 2.0
	ATRPeriod        = 14
	ADXPeriod        = 14
	RSIPeriod        = 14
	StochKPeriod     = 14
	StochDPeriod     = 3
	MFIPeriod        = 14
)

// Enrich attaches every indicator to its source bar by index.
func Enrich(bars []model.Bar) []model.EnrichedBar {
	if len(bars) == 0 {
		return nil
	}

	closes := extractCloses(bars)
	highs := extractHighs(bars)
	lows := extractLows(bars)
	vols := extractVolumes(bars)

	sma20 := SMA(closes, SMAPeriod)
	ema12 := EMA(closes, EMAFastPeriod)
	ema26 := EMA(closes, EMASlowPeriod)
	macd := MACD(closes, EMAFastPeriod, EMASlowPeriod, MACDSignalPeriod)
	bb := Bollinger(closes, BollingerPeriod, BollingerMult)
	atr14 := ATR(highs, lows, closes, ATRPeriod)
	adx := ADX(highs, lows, closes, ADXPeriod)
	stoch := Stochastic(highs, lows, closes, StochKPeriod, StochDPeriod)
	obv := OBV(closes, vols)
	mfi14 := MFI(highs, lows, closes, vols, MFIPeriod)
	rsi14 := RSI(closes, RSIPeriod)

	out := make([]model.EnrichedBar, len(bars))
	for i, b := range bars {
		b.Price = b.Close
		out[i] = model.EnrichedBar{
			Bar:        b,
			SMA:        sma20[i],
			EMA:        null.FloatFrom(ema12[i]),
			EMA26:      null.FloatFrom(ema26[i]),
			RSI:        null.FloatFrom(rsi14[i]),
			StochK:     stoch.K[i],
			StochD:     stoch.D[i],
			MFI14:      mfi14[i],
			MACD:       null.FloatFrom(macd.MACD[i]),
			MACDSignal: null.FloatFrom(macd.Signal[i]),
			MACDHist:   null.FloatFrom(macd.Hist[i]),
			DIPlus:     adx.DIPlus[i],
			DIMinus:    adx.DIMinus[i],
			ADX:        null.FloatFrom(adx.ADX[i]),
			ATR14:      null.FloatFrom(atr14[i]),
			BBMid:      bb.Mid[i],
			BBUpper:    bb.Upper[i],
			BBLower:    bb.Lower[i],
			BBWidth:    bb.Width[i],
			OBV:        null.FloatFrom(obv[i]),
		}
	}
	return out
}
