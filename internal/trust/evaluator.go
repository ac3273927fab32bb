package trust

import (
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

const (
	ReasonVelocity          = "velocity_limit_exceeded"
	ReasonMissingIdentifier = "missing_identifier"
	ReasonHighFraudSignal   = "high_fraud_signal"
	ReasonOracleUnavailable = "oracle_unavailable"
)

// oracleUnavailableScore is the midpoint score assigned when no fraud
// signal is available.
const oracleUnavailableScore = 50

// Evaluator computes a trust score and an allow/challenge/block action for
// each event. It is pure over its inputs; per-ssi_id history is maintained
// by the caller.
type Evaluator struct {
	cfg config.Trust
	log *zap.Logger
}

// NewEvaluator creates a new trust evaluator.
func NewEvaluator(cfg config.Trust, log *zap.Logger) *Evaluator {
	return &Evaluator{
		cfg: cfg,
		log: log,
	}
}

// Evaluate scores an event given the oracle's fraud likelihood and the
// recent event timestamps recorded for the same ssi_id. The event must have
// passed Validate before evaluation.
func (e *Evaluator) Evaluate(event *domain.ConversionEvent, fraud float64, recent []time.Time) domain.TrustAssessment {
	score := 100 * (1 - clamp(fraud, 0, 1))

	// Penalty rules apply in fixed order; the largest one becomes the reason.
	dominantReason := ""
	dominantPenalty := 0.0

	window := time.Duration(e.cfg.RateLimitWindowSec) * time.Second
	if e.countWithinWindow(event.Timestamp, recent, window) > e.cfg.VelocityThreshold {
		score -= e.cfg.VelocityPenalty
		dominantReason = ReasonVelocity
		dominantPenalty = e.cfg.VelocityPenalty
	}

	if event.SSIID == "" {
		score -= e.cfg.MissingIdentifierPenalty
		if e.cfg.MissingIdentifierPenalty > dominantPenalty {
			dominantReason = ReasonMissingIdentifier
		}
	}

	score = clamp(score, 0, 100)
	action := e.actionFor(score)

	reason := ""
	if action != domain.ActionAllow {
		reason = dominantReason
		if reason == "" {
			reason = ReasonHighFraudSignal
		}
	}

	if action == domain.ActionBlock {
		e.log.Info("Event blocked by trust evaluation",
			zap.String("event_id", event.EventID),
			zap.Float64("score", score),
			zap.String("reason", reason))
	}

	return domain.TrustAssessment{
		Score:  score,
		Action: action,
		Reason: reason,
	}
}

// OracleUnavailable is the degraded assessment used when the scoring
// oracle fails: midpoint score, challenge action.
func (e *Evaluator) OracleUnavailable(event *domain.ConversionEvent) domain.TrustAssessment {
	e.log.Warn("Falling back to challenge: scoring oracle unavailable",
		zap.String("event_id", event.EventID))

	return domain.TrustAssessment{
		Score:  oracleUnavailableScore,
		Action: domain.ActionChallenge,
		Reason: ReasonOracleUnavailable,
	}
}

// actionFor maps a score to an action against the configured threshold.
// Boundary scores resolve toward the stricter action.
func (e *Evaluator) actionFor(score float64) domain.Action {
	switch {
	case score <= e.cfg.Threshold/2:
		return domain.ActionBlock
	case score <= e.cfg.Threshold:
		return domain.ActionChallenge
	default:
		return domain.ActionAllow
	}
}

func (e *Evaluator) countWithinWindow(at time.Time, recent []time.Time, window time.Duration) int {
	cutoff := at.Add(-window)
	count := 0
	for _, ts := range recent {
		if ts.After(cutoff) && !ts.After(at) {
			count++
		}
	}
	return count
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
