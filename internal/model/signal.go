package model

// Action is the directional verdict of a recommendation.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// Confidence grades how strongly the evidence supports the action.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Recommendation is the output of the strategy engine.
// It is derived on demand and never persisted.
type Recommendation struct {
	Action       Action     `json:"action"`
	Confidence   Confidence `json:"confidence"`
	Reasons      []string   `json:"reasons"`
	Score        int        `json:"score"`        // net after conviction tweaks
	BullishScore int        `json:"bullishScore"` // raw bull points
	BearishScore int        `json:"bearishScore"` // raw bear points
}
