package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// WarehouseWriter persists a single approved conversion into the analytics
// warehouse. Implemented by the ClickHouse store.
type WarehouseWriter interface {
	WriteConversion(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision) error
}

// WarehouseSink is the bigquery-style platform sink: instead of an ad API
// it lands the event in the analytics warehouse.
type WarehouseSink struct {
	writer WarehouseWriter
	log    *zap.Logger
}

// NewWarehouseSink creates the warehouse sink.
func NewWarehouseSink(writer WarehouseWriter, log *zap.Logger) *WarehouseSink {
	return &WarehouseSink{
		writer: writer,
		log:    log,
	}
}

// Platform returns the warehouse platform identifier.
func (s *WarehouseSink) Platform() domain.Platform {
	return domain.PlatformBigQuery
}

// Send writes the conversion row. Warehouse failures are transient: the
// write is safe to retry.
func (s *WarehouseSink) Send(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision) error {
	if err := s.writer.WriteConversion(ctx, event, decision); err != nil {
		return &SendError{Err: err, Transient: true}
	}
	return nil
}
