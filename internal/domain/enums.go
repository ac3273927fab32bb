package domain

import "fmt"

// Platform identifies an external ad/analytics destination.
type Platform string

const (
	PlatformMeta     Platform = "meta"
	PlatformTikTok   Platform = "tiktok"
	PlatformGoogle   Platform = "google"
	PlatformBigQuery Platform = "bigquery"
)

// AllPlatforms lists every known platform in a stable order.
var AllPlatforms = []Platform{
	PlatformMeta,
	PlatformTikTok,
	PlatformGoogle,
	PlatformBigQuery,
}

// ParsePlatform validates a raw platform name.
func ParsePlatform(s string) (Platform, error) {
	for _, p := range AllPlatforms {
		if s == string(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown platform %q", s)
}

// Action is the trust verdict for an event.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionChallenge Action = "challenge"
	ActionBlock     Action = "block"
)

// Strategy is the bid strategy selected for an event.
type Strategy string

const (
	StrategyAggressive   Strategy = "aggressive"
	StrategyRetention    Strategy = "retention"
	StrategyAcquisition  Strategy = "acquisition"
	StrategyNurture      Strategy = "nurture"
	StrategyConservative Strategy = "conservative"
	StrategyExclude      Strategy = "exclude"
)

// LTVSegment is the predicted lifetime-value segment for a user.
type LTVSegment string

const (
	LTVVip    LTVSegment = "vip"
	LTVHigh   LTVSegment = "high"
	LTVMedium LTVSegment = "medium"
	LTVLow    LTVSegment = "low"
)

// ChurnRisk is the predicted churn-risk level for a user.
type ChurnRisk string

const (
	ChurnCritical ChurnRisk = "critical"
	ChurnHigh     ChurnRisk = "high"
	ChurnMedium   ChurnRisk = "medium"
	ChurnLow      ChurnRisk = "low"
)

// Propensity is the predicted purchase propensity for a user.
type Propensity string

const (
	PropensityVeryHigh Propensity = "very_high"
	PropensityHigh     Propensity = "high"
	PropensityMedium   Propensity = "medium"
	PropensityLow      Propensity = "low"
	PropensityVeryLow  Propensity = "very_low"
)

var validLTVSegments = map[LTVSegment]bool{
	LTVVip: true, LTVHigh: true, LTVMedium: true, LTVLow: true,
}

var validChurnRisks = map[ChurnRisk]bool{
	ChurnCritical: true, ChurnHigh: true, ChurnMedium: true, ChurnLow: true,
}

var validPropensities = map[Propensity]bool{
	PropensityVeryHigh: true, PropensityHigh: true, PropensityMedium: true,
	PropensityLow: true, PropensityVeryLow: true,
}

// MLSignals carries the oracle-derived signals consumed by the bid engine.
type MLSignals struct {
	LTVSegment       LTVSegment
	ChurnRisk        ChurnRisk
	Propensity       Propensity
	HasPriorPurchase bool
}

// Validate checks that every required signal field carries a known value.
func (s *MLSignals) Validate() error {
	if !validLTVSegments[s.LTVSegment] {
		return fmt.Errorf("%w: ltv_segment %q", ErrInvalidSignal, s.LTVSegment)
	}
	if !validChurnRisks[s.ChurnRisk] {
		return fmt.Errorf("%w: churn_risk %q", ErrInvalidSignal, s.ChurnRisk)
	}
	if !validPropensities[s.Propensity] {
		return fmt.Errorf("%w: propensity %q", ErrInvalidSignal, s.Propensity)
	}
	return nil
}
