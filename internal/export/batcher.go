package export

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// EventStore persists processed-event batches in the warehouse.
type EventStore interface {
	InsertProcessedBatch(ctx context.Context, records []*domain.RecentEvent) (int, error)
}

// Config configures the export batcher.
type Config struct {
	MaxBatchSize int
	FlushTimeout time.Duration
	QueueSize    int
}

// Batcher collects processed events and flushes them to the warehouse in
// batches, by size or timeout, whichever comes first. Enqueueing never
// blocks the pipeline: when the queue is full the record is dropped and
// counted, since the in-memory aggregates remain the source of dashboard
// truth.
type Batcher struct {
	store EventStore
	cfg   Config
	in    chan *domain.RecentEvent
	log   *zap.Logger
}

// NewBatcher creates a new export batcher.
func NewBatcher(store EventStore, cfg Config, log *zap.Logger) *Batcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.MaxBatchSize * 2
	}
	return &Batcher{
		store: store,
		cfg:   cfg,
		in:    make(chan *domain.RecentEvent, cfg.QueueSize),
		log:   log,
	}
}

// Enqueue offers a record for export without blocking. Returns false when
// the queue is full.
func (b *Batcher) Enqueue(record *domain.RecentEvent) bool {
	select {
	case b.in <- record:
		return true
	default:
		b.log.Warn("Export queue full, dropping record",
			zap.String("event_id", record.EventID))
		return false
	}
}

// Start runs the batching loop until the context is cancelled, flushing
// any pending batch on shutdown.
func (b *Batcher) Start(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*domain.RecentEvent, 0, b.cfg.MaxBatchSize)

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Export batcher shutting down")
			if len(batch) > 0 {
				b.flush(context.Background(), batch)
			}
			return

		case record := <-b.in:
			batch = append(batch, record)
			if len(batch) >= b.cfg.MaxBatchSize {
				b.flush(ctx, batch)
				batch = make([]*domain.RecentEvent, 0, b.cfg.MaxBatchSize)
				ticker.Reset(b.cfg.FlushTimeout)
			}

		case <-ticker.C:
			if len(batch) > 0 {
				b.flush(ctx, batch)
				batch = make([]*domain.RecentEvent, 0, b.cfg.MaxBatchSize)
			}
		}
	}
}

func (b *Batcher) flush(ctx context.Context, batch []*domain.RecentEvent) {
	inserted, err := b.store.InsertProcessedBatch(ctx, batch)
	if err != nil {
		b.log.Error("Failed to export batch",
			zap.Error(err),
			zap.Int("record_count", len(batch)))
		return
	}

	b.log.Info("Exported processed events",
		zap.Int("count", inserted))
}
