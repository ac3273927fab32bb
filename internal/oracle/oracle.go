package oracle

import (
	"context"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// Signal is the scoring oracle's answer for a single event.
type Signal struct {
	// Fraud is the fraud likelihood in [0,1].
	Fraud   float64
	Signals domain.MLSignals
}

// ScoringOracle scores an event for fraud likelihood and ML-derived
// value/risk signals. Implementations may fail or time out; callers fall
// back per the pipeline's degradation rules.
type ScoringOracle interface {
	Score(ctx context.Context, event *domain.ConversionEvent) (*Signal, error)
}
