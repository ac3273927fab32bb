package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/bid"
	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/dispatch"
	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/metrics"
	"github.com/clearfunnel/attribution-engine/internal/oracle"
	"github.com/clearfunnel/attribution-engine/internal/trust"
)

// Exporter receives processed records for asynchronous warehouse export.
// Implemented by export.Batcher.
type Exporter interface {
	Enqueue(record *domain.RecentEvent) bool
}

// Pipeline is the sole mutation entry point into process-wide aggregate
// state. ProcessEvent sequences trust evaluation, bid decisioning,
// platform dispatch and metrics recording for one event; invocations run
// concurrently with each other.
type Pipeline struct {
	oracle     oracle.ScoringOracle
	trust      *trust.Evaluator
	bid        *bid.Engine
	dispatcher *dispatch.Dispatcher
	aggregator *metrics.Aggregator
	history    *HistoryTracker
	exporter   Exporter

	enabled  []domain.Platform
	deadline time.Duration
	log      *zap.Logger
}

// New creates the event pipeline.
func New(
	scoringOracle oracle.ScoringOracle,
	trustEval *trust.Evaluator,
	bidEngine *bid.Engine,
	dispatcher *dispatch.Dispatcher,
	aggregator *metrics.Aggregator,
	history *HistoryTracker,
	exporter Exporter,
	cfg config.Dispatch,
	log *zap.Logger,
) (*Pipeline, error) {
	enabled := make([]domain.Platform, 0, len(cfg.EnabledPlatforms))
	for _, raw := range cfg.EnabledPlatforms {
		p, err := domain.ParsePlatform(raw)
		if err != nil {
			return nil, err
		}
		enabled = append(enabled, p)
	}

	return &Pipeline{
		oracle:     scoringOracle,
		trust:      trustEval,
		bid:        bidEngine,
		dispatcher: dispatcher,
		aggregator: aggregator,
		history:    history,
		exporter:   exporter,
		enabled:    enabled,
		deadline:   time.Duration(cfg.EventDeadlineMS) * time.Millisecond,
		log:        log,
	}, nil
}

// ProcessEvent runs one event through the full pipeline and returns its
// RecentEvent record. Malformed events are rejected with ErrInvalidEvent;
// every other failure degrades per stage and still yields a record.
func (p *Pipeline) ProcessEvent(ctx context.Context, event *domain.ConversionEvent) (*domain.RecentEvent, error) {
	if err := event.Validate(); err != nil {
		p.log.Warn("Discarding invalid event",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		p.aggregator.RecordRejected()
		metrics.EventsRejected.Inc()
		return nil, err
	}

	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	start := time.Now()

	// Trust evaluation. Oracle failure degrades to challenge, never fails
	// the pipeline.
	var assessment domain.TrustAssessment
	var signals *domain.MLSignals
	signal, err := p.oracle.Score(ctx, event)
	if err != nil {
		metrics.OracleFallbacks.Inc()
		assessment = p.trust.OracleUnavailable(event)
	} else {
		assessment = p.trust.Evaluate(event, signal.Fraud, p.history.Recent(event.SSIID))
		signals = &signal.Signals
	}
	p.history.Record(event.SSIID, event.Timestamp)

	var decision *domain.BidDecision
	var outcomes map[domain.Platform]domain.PlatformOutcome

	if assessment.Action != domain.ActionBlock {
		// Bid decisions are precomputed for challenged events too, but
		// dispatch is withheld until the event is fully allowed.
		d := p.decide(event, signals)
		decision = &d

		if assessment.Action == domain.ActionAllow {
			dispatchCtx, cancel := context.WithTimeout(ctx, p.deadline)
			outcomes = p.dispatcher.Dispatch(dispatchCtx, event, d, p.enabled)
			cancel()

			for platform, outcome := range outcomes {
				result := "sent"
				if !outcome.Sent {
					result = "failed"
				}
				metrics.DispatchOutcomes.WithLabelValues(string(platform), result).Inc()
			}
		}
	}

	recent := p.buildRecord(event, assessment, decision, outcomes, time.Since(start))

	p.record(recent, assessment, decision, signals, outcomes)
	metrics.EventsProcessed.WithLabelValues(string(assessment.Action)).Inc()
	metrics.ProcessingDuration.Observe(float64(recent.ProcessingTimeMS))

	if p.exporter != nil {
		p.exporter.Enqueue(recent)
	}

	return recent, nil
}

func (p *Pipeline) decide(event *domain.ConversionEvent, signals *domain.MLSignals) domain.BidDecision {
	if signals == nil {
		// Oracle unavailable: conservative neutral decision.
		return domain.BidDecision{
			Strategy:   domain.StrategyConservative,
			Multiplier: 1.0,
		}
	}

	decision, err := p.bid.Decide(event, *signals)
	if err != nil {
		p.log.Warn("Bid decision degraded",
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
	return decision
}

func (p *Pipeline) buildRecord(event *domain.ConversionEvent, assessment domain.TrustAssessment, decision *domain.BidDecision, outcomes map[domain.Platform]domain.PlatformOutcome, elapsed time.Duration) *domain.RecentEvent {
	platforms := make(map[domain.Platform]bool, len(domain.AllPlatforms))
	for _, platform := range domain.AllPlatforms {
		platforms[platform] = false
	}
	for platform, outcome := range outcomes {
		platforms[platform] = outcome.Sent
	}

	recent := &domain.RecentEvent{
		EventID:          event.EventID,
		SSIID:            event.SSIID,
		Name:             event.Name,
		Value:            event.Value,
		Timestamp:        event.Timestamp,
		TrustScore:       assessment.Score,
		TrustAction:      assessment.Action,
		TrustReason:      assessment.Reason,
		Platforms:        platforms,
		ProcessingTimeMS: elapsed.Milliseconds(),
		ProcessedAt:      time.Now(),
	}
	if decision != nil {
		recent.Strategy = decision.Strategy
		recent.Multiplier = decision.Multiplier
	}
	return recent
}

// record shields the pipeline from aggregation failures: a panic there
// loses that single event's metrics update, never the event's results.
func (p *Pipeline) record(recent *domain.RecentEvent, assessment domain.TrustAssessment, decision *domain.BidDecision, signals *domain.MLSignals, outcomes map[domain.Platform]domain.PlatformOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("Metrics aggregation failed for event",
				zap.String("event_id", recent.EventID),
				zap.Any("panic", r))
		}
	}()
	p.aggregator.Record(recent, assessment, decision, signals, outcomes)
}
