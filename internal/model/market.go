package model

import (
	"time"

	"github.com/guregu/null/v5"
)

// DateLayout is the calendar-date format used as the bar key.
const DateLayout = "2006-01-02"

// Bar represents one trading day for a symbol.
type Bar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Price  float64 `json:"price"` // alias of Close
}

// Time parses the bar date. ok is false when the date is malformed.
func (b Bar) Time() (t time.Time, ok bool) {
	t, err := time.Parse(DateLayout, b.Date)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// EnrichedBar is a Bar with indicator values attached.
// Values stay null until enough history exists.
type EnrichedBar struct {
	Bar

	// Moving averages
	SMA   null.Float `json:"sma"`
	EMA   null.Float `json:"ema"`
	EMA26 null.Float `json:"ema26"`

	// Oscillators
	RSI    null.Float `json:"rsi"`
	StochK null.Float `json:"stochK"`
	StochD null.Float `json:"stochD"`
	MFI14  null.Float `json:"mfi14"`

	// Trend
	MACD       null.Float `json:"macd"`
	MACDSignal null.Float `json:"macdSignal"`
	MACDHist   null.Float `json:"macdHist"`
	DIPlus     null.Float `json:"diPlus"`
	DIMinus    null.Float `json:"diMinus"`
	ADX        null.Float `json:"adx"`

	// Volatility
	ATR14   null.Float `json:"atr14"`
	BBMid   null.Float `json:"bbMid"`
	BBUpper null.Float `json:"bbUpper"`
	BBLower null.Float `json:"bbLower"`
	BBWidth null.Float `json:"bbWidth"`

	// Volume
	OBV null.Float `json:"obv"`
}
