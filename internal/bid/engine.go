package bid

import (
	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// neutralMultiplier is the fallback applied when signals are malformed.
const neutralMultiplier = 1.0

// propensityFactor scales the strategy base multiplier by predicted
// purchase propensity.
var propensityFactor = map[domain.Propensity]float64{
	domain.PropensityVeryHigh: 1.25,
	domain.PropensityHigh:     1.10,
	domain.PropensityMedium:   1.00,
	domain.PropensityLow:      0.90,
	domain.PropensityVeryLow:  0.75,
}

// Engine maps an event and its ML signals to a bid strategy and a bounded
// multiplier. Pure; no side effects.
type Engine struct {
	cfg config.Bid
}

// NewEngine creates a new bid decision engine.
func NewEngine(cfg config.Bid) *Engine {
	return &Engine{cfg: cfg}
}

// Decide selects a strategy from the priority table and computes the
// clamped multiplier. On malformed signals it degrades to the conservative
// strategy with a neutral multiplier and reports the error alongside the
// usable decision.
func (e *Engine) Decide(event *domain.ConversionEvent, signals domain.MLSignals) (domain.BidDecision, error) {
	if err := signals.Validate(); err != nil {
		return domain.BidDecision{
			Strategy:   domain.StrategyConservative,
			Multiplier: neutralMultiplier,
		}, err
	}

	strategy := e.selectStrategy(signals)

	return domain.BidDecision{
		Strategy:   strategy,
		Multiplier: e.multiplierFor(strategy, signals.Propensity),
	}, nil
}

// selectStrategy walks the priority table top-down; first match wins.
func (e *Engine) selectStrategy(s domain.MLSignals) domain.Strategy {
	highValue := s.LTVSegment == domain.LTVVip || s.LTVSegment == domain.LTVHigh

	switch {
	case s.ChurnRisk == domain.ChurnCritical && highValue:
		return domain.StrategyRetention
	case (s.Propensity == domain.PropensityVeryHigh || s.Propensity == domain.PropensityHigh) && highValue:
		return domain.StrategyAggressive
	case s.Propensity == domain.PropensityVeryLow,
		s.ChurnRisk == domain.ChurnCritical && s.LTVSegment == domain.LTVLow:
		return domain.StrategyExclude
	case s.LTVSegment == domain.LTVMedium && s.Propensity == domain.PropensityMedium:
		return domain.StrategyNurture
	case !s.HasPriorPurchase:
		return domain.StrategyAcquisition
	default:
		return domain.StrategyConservative
	}
}

func (e *Engine) multiplierFor(strategy domain.Strategy, propensity domain.Propensity) float64 {
	if strategy == domain.StrategyExclude {
		return e.cfg.MinMultiplier
	}

	var base float64
	switch strategy {
	case domain.StrategyAggressive:
		base = e.cfg.AggressiveBase
	case domain.StrategyRetention:
		base = e.cfg.RetentionBase
	case domain.StrategyAcquisition:
		base = e.cfg.AcquisitionBase
	case domain.StrategyNurture:
		base = e.cfg.NurtureBase
	default:
		base = e.cfg.ConservativeBase
	}

	m := base * propensityFactor[propensity]
	if m < e.cfg.MinMultiplier {
		return e.cfg.MinMultiplier
	}
	if m > e.cfg.MaxMultiplier {
		return e.cfg.MaxMultiplier
	}
	return m
}
