package consumer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// EventProcessor runs one conversion event through the decisioning
// pipeline. Implemented by pipeline.Pipeline.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *domain.ConversionEvent) (*domain.RecentEvent, error)
}

// Processor is the final consumer stage: it feeds each envelope through
// the pipeline and acknowledges the message. Invalid events are acked too,
// since redelivery cannot fix them; only processing panics leave messages
// for redelivery via their visibility timeout.
type Processor struct {
	pipeline EventProcessor
	log      *zap.Logger
}

// NewProcessor creates a new processor stage.
func NewProcessor(pipeline EventProcessor, log *zap.Logger) *Processor {
	return &Processor{
		pipeline: pipeline,
		log:      log,
	}
}

// Start consumes envelopes until the context is cancelled or the input
// channel closes.
func (p *Processor) Start(ctx context.Context, in <-chan *Envelope) {
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Processor shutting down")
			return
		case envelope, ok := <-in:
			if !ok {
				p.log.Info("Processor input channel closed")
				return
			}
			p.process(ctx, envelope)
		}
	}
}

func (p *Processor) process(ctx context.Context, envelope *Envelope) {
	record, err := p.pipeline.ProcessEvent(ctx, envelope.Event)

	if err != nil && !errors.Is(err, domain.ErrInvalidEvent) {
		p.log.Error("Failed to process event, leaving for redelivery",
			zap.String("event_id", envelope.Event.EventID),
			zap.Error(err))
		if nackErr := envelope.Nack(ctx); nackErr != nil {
			p.log.Error("Failed to nack envelope", zap.Error(nackErr))
		}
		return
	}

	if record != nil {
		p.log.Debug("Event processed",
			zap.String("event_id", record.EventID),
			zap.String("action", string(record.TrustAction)))
	}

	if ackErr := envelope.Ack(ctx); ackErr != nil {
		p.log.Error("Failed to ack envelope",
			zap.String("event_id", envelope.Event.EventID),
			zap.Error(ackErr))
	}
}
