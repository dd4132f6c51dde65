package strategy

import "QuoteSentinel/internal/model"

// ReasonInsufficientData is the only reason given when no rule fires.
const ReasonInsufficientData = "Insufficient data"

// Tiers maps a net score to an action. Checked in order; the first match wins.
var Tiers = []struct {
	Match      func(net int) bool
	Action     model.Action
	Confidence model.Confidence
}{
	{func(n int) bool { return n >= 4 }, model.ActionBuy, model.ConfidenceHigh},
	{func(n int) bool { return n >= 2 }, model.ActionBuy, model.ConfidenceMedium},
	{func(n int) bool { return n <= -4 }, model.ActionSell, model.ConfidenceHigh},
	{func(n int) bool { return n <= -2 }, model.ActionSell, model.ConfidenceMedium},
}

// mapTier maps a net score to an action and confidence.
func mapTier(net int) (model.Action, model.Confidence) {
	for _, t := range Tiers {
		if t.Match(net) {
			return t.Action, t.Confidence
		}
	}
	return model.ActionHold, model.ConfidenceLow
}

// Recommend scores the latest bar against the previous one and returns a
// directional verdict. It never fails: empty input yields HOLD/LOW.
func Recommend(bars []model.EnrichedBar) model.Recommendation {
	n := len(bars)
	if n == 0 {
		return model.Recommendation{
			Action:     model.ActionHold,
			Confidence: model.ConfidenceLow,
			Reasons:    []string{ReasonInsufficientData},
		}
	}

	a := bars[n-1]
	b := a
	if n > 1 {
		b = bars[n-2]
	}

	t := &tally{}
	scoreRSI(t, a, b)
	scoreMovingAverages(t, a)
	scoreMACD(t, a, b)
	scoreBollinger(t, a, b)
	scoreADX(t, a)
	scoreStochastic(t, a, b)
	scoreVolumeFlow(t, a, b)
	scoreMomentum(t, a, b)
	scoreVolumeSpike(t, a, b)

	net := t.bull - t.bear
	if or(a.ADX, 0) >= 25 {
		net++ // trend conviction
	}
	if atr := or(a.ATR14, 0); atr != 0 && a.Close != 0 && atr/a.Close > 0.05 {
		net-- // excess volatility
	}

	action, confidence := mapTier(net)
	reasons := t.reasons
	if len(reasons) == 0 {
		reasons = []string{ReasonInsufficientData}
	}

	return model.Recommendation{
		Action:       action,
		Confidence:   confidence,
		Reasons:      reasons,
		Score:        net,
		BullishScore: t.bull,
		BearishScore: t.bear,
	}
}
