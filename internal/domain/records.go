package domain

import "time"

// TrustAssessment is the trust verdict for a single event. Derived once,
// never mutated.
type TrustAssessment struct {
	Score  float64
	Action Action
	// Reason names the dominant penalty. Empty iff Action is allow.
	Reason string
}

// BidDecision is the bid-multiplier recommendation for an event.
type BidDecision struct {
	Strategy   Strategy
	Multiplier float64
}

// PlatformOutcome records one delivery attempt set for one platform.
type PlatformOutcome struct {
	Platform  Platform
	Sent      bool
	LatencyMS int64
	// Error is set when Sent is false, describing the final failure.
	Error string
}

// RecentEvent is the externally visible, write-once record of a processed
// event, appended to the bounded recent-events log for the dashboard.
type RecentEvent struct {
	EventID          string
	SSIID            string
	Name             EventName
	Value            float64
	Timestamp        time.Time
	TrustScore       float64
	TrustAction      Action
	TrustReason      string
	Strategy         Strategy
	Multiplier       float64
	Platforms        map[Platform]bool
	ProcessingTimeMS int64
	ProcessedAt      time.Time
}
