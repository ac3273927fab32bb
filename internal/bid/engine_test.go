package bid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

func testBidConfig() config.Bid {
	return config.Bid{
		MinMultiplier:    0.5,
		MaxMultiplier:    3.0,
		AggressiveBase:   2.0,
		RetentionBase:    1.8,
		AcquisitionBase:  1.3,
		NurtureBase:      1.1,
		ConservativeBase: 1.0,
	}
}

func testBidEvent() *domain.ConversionEvent {
	return &domain.ConversionEvent{
		EventID:   "evt-1",
		SSIID:     "user-1",
		Name:      domain.EventPurchase,
		Value:     120.0,
		Timestamp: time.Now(),
	}
}

func signals(ltv domain.LTVSegment, churn domain.ChurnRisk, propensity domain.Propensity, prior bool) domain.MLSignals {
	return domain.MLSignals{
		LTVSegment:       ltv,
		ChurnRisk:        churn,
		Propensity:       propensity,
		HasPriorPurchase: prior,
	}
}

func TestDecide_CriticalChurnHighValue_Retention(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVVip, domain.ChurnCritical, domain.PropensityMedium, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyRetention, decision.Strategy)
	assert.InDelta(t, 1.8, decision.Multiplier, 0.001)
}

func TestDecide_RetentionOutranksAggressive(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVVip, domain.ChurnCritical, domain.PropensityVeryHigh, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyRetention, decision.Strategy)
}

func TestDecide_HighPropensityHighValue_Aggressive(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVHigh, domain.ChurnLow, domain.PropensityVeryHigh, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyAggressive, decision.Strategy)
	assert.InDelta(t, 2.5, decision.Multiplier, 0.001)
}

func TestDecide_VeryLowPropensity_Exclude(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVHigh, domain.ChurnLow, domain.PropensityVeryLow, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyExclude, decision.Strategy)
	assert.Equal(t, 0.5, decision.Multiplier)
}

func TestDecide_CriticalChurnLowValue_Exclude(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVLow, domain.ChurnCritical, domain.PropensityMedium, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyExclude, decision.Strategy)
	assert.Equal(t, 0.5, decision.Multiplier)
}

func TestDecide_MediumSegmentMediumPropensity_Nurture(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVMedium, domain.ChurnLow, domain.PropensityMedium, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyNurture, decision.Strategy)
	assert.InDelta(t, 1.1, decision.Multiplier, 0.001)
}

func TestDecide_NoPriorPurchase_Acquisition(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVLow, domain.ChurnLow, domain.PropensityHigh, false))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyAcquisition, decision.Strategy)
	assert.InDelta(t, 1.43, decision.Multiplier, 0.001)
}

func TestDecide_NoRuleMatches_Conservative(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVLow, domain.ChurnLow, domain.PropensityLow, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyConservative, decision.Strategy)
	assert.InDelta(t, 0.9, decision.Multiplier, 0.001)
}

func TestDecide_MultiplierClampedToMax(t *testing.T) {
	cfg := testBidConfig()
	cfg.AggressiveBase = 2.8
	engine := NewEngine(cfg)

	decision, err := engine.Decide(testBidEvent(),
		signals(domain.LTVVip, domain.ChurnLow, domain.PropensityVeryHigh, true))

	assert.NoError(t, err)
	assert.Equal(t, domain.StrategyAggressive, decision.Strategy)
	assert.Equal(t, 3.0, decision.Multiplier)
}

func TestDecide_MalformedSignals_DegradesToConservative(t *testing.T) {
	engine := NewEngine(testBidConfig())

	decision, err := engine.Decide(testBidEvent(),
		signals("platinum", domain.ChurnLow, domain.PropensityMedium, true))

	assert.ErrorIs(t, err, domain.ErrInvalidSignal)
	assert.Equal(t, domain.StrategyConservative, decision.Strategy)
	assert.Equal(t, 1.0, decision.Multiplier)
}
