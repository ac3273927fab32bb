package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/dto"
	"github.com/clearfunnel/attribution-engine/internal/queue"
)

// EventProcessor runs one conversion event through the decisioning
// pipeline. Implemented by pipeline.Pipeline.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, event *domain.ConversionEvent) (*domain.RecentEvent, error)
}

// IngestService accepts raw events from the HTTP API. Single events are
// decided synchronously; bulk submissions are queued for the consumer.
type IngestService struct {
	pipeline  EventProcessor
	publisher queue.QueuePublisher
	log       *zap.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(pipeline EventProcessor, publisher queue.QueuePublisher, log *zap.Logger) *IngestService {
	return &IngestService{
		pipeline:  pipeline,
		publisher: publisher,
		log:       log,
	}
}

// ProcessEvent validates and processes a single event, returning its
// decision.
func (s *IngestService) ProcessEvent(ctx context.Context, req *dto.IngestEventRequest) (*dto.IngestEventResponse, error) {
	event, err := s.toDomain(req)
	if err != nil {
		return nil, err
	}

	record, err := s.pipeline.ProcessEvent(ctx, event)
	if err != nil {
		return nil, err
	}

	platforms := make(map[string]bool, len(record.Platforms))
	for platform, sent := range record.Platforms {
		platforms[string(platform)] = sent
	}

	return &dto.IngestEventResponse{
		EventID:          record.EventID,
		TrustScore:       record.TrustScore,
		Action:           string(record.TrustAction),
		Reason:           record.TrustReason,
		Strategy:         string(record.Strategy),
		Multiplier:       record.Multiplier,
		Platforms:        platforms,
		ProcessingTimeMS: record.ProcessingTimeMS,
	}, nil
}

// PublishBulk validates each event and queues the valid ones for
// asynchronous processing.
func (s *IngestService) PublishBulk(ctx context.Context, reqs []dto.IngestEventRequest) (*dto.IngestBulkResponse, error) {
	resp := &dto.IngestBulkResponse{}

	for i, req := range reqs {
		event, err := s.toDomain(&req)
		if err != nil {
			resp.Rejected++
			resp.Errors = append(resp.Errors, err.Error())
			s.log.Warn("Rejected event in bulk submission",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to publish event to queue: %w", err)
		}
		resp.Accepted++
	}

	return resp, nil
}

func (s *IngestService) toDomain(req *dto.IngestEventRequest) (*domain.ConversionEvent, error) {
	name, err := domain.ParseEventName(req.EventName)
	if err != nil {
		return nil, err
	}

	ts := time.Unix(req.Timestamp, 0).UTC()
	if ts.After(time.Now().Add(time.Second)) {
		return nil, fmt.Errorf("%w: timestamp cannot be in the future", domain.ErrInvalidEvent)
	}

	return &domain.ConversionEvent{
		EventID:   req.EventID,
		SSIID:     req.SSIID,
		Name:      name,
		Value:     req.Value,
		Timestamp: ts,
	}, nil
}
