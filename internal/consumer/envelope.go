package consumer

import (
	"context"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// Envelope wraps a parsed conversion event with acknowledgment callbacks
// tied to the underlying queue message.
type Envelope struct {
	Event *domain.ConversionEvent
	ack   func(context.Context) error
	nack  func(context.Context) error
}

// NewEnvelope creates a new message envelope.
func NewEnvelope(event *domain.ConversionEvent, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{
		Event: event,
		ack:   ack,
		nack:  nack,
	}
}

// Ack acknowledges successful processing.
func (e *Envelope) Ack(ctx context.Context) error {
	if e.ack != nil {
		return e.ack(ctx)
	}
	return nil
}

// Nack negatively acknowledges processing, leaving the message for
// redelivery.
func (e *Envelope) Nack(ctx context.Context) error {
	if e.nack != nil {
		return e.nack(ctx)
	}
	return nil
}
