package sink

import (
	"context"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// PlatformSink delivers an approved conversion event to one external
// ad/analytics platform.
type PlatformSink interface {
	Platform() domain.Platform
	Send(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision) error
}

// SendError classifies a delivery failure for the dispatcher's retry
// policy. Failures not wrapped in SendError are treated as transient.
type SendError struct {
	Err       error
	Transient bool
}

func (e *SendError) Error() string {
	return e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}
