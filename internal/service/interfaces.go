package service

import (
	"context"

	"github.com/clearfunnel/attribution-engine/internal/dto"
)

// Ingestor defines the interface for event ingestion operations.
type Ingestor interface {
	ProcessEvent(ctx context.Context, req *dto.IngestEventRequest) (*dto.IngestEventResponse, error)
	PublishBulk(ctx context.Context, reqs []dto.IngestEventRequest) (*dto.IngestBulkResponse, error)
}

// Querier defines the interface for dashboard aggregate queries.
type Querier interface {
	Overview(req *dto.RangeRequest) (*dto.OverviewResponse, error)
	PlatformStatuses(req *dto.RangeRequest) (*dto.PlatformStatusResponse, error)
	TimeSeries(req *dto.RangeRequest) (*dto.TimeSeriesResponse, error)
	Funnel(req *dto.RangeRequest) (*dto.FunnelResponse, error)
	TrustScores(req *dto.RangeRequest) (*dto.TrustResponse, error)
	MLPredictions(req *dto.RangeRequest) (*dto.MLPredictionsResponse, error)
	Bids(req *dto.RangeRequest) (*dto.BidMetricsResponse, error)
	RecentEvents(limit int) *dto.RecentEventsResponse
	EventsByType(req *dto.RangeRequest) (*dto.EventsByTypeResponse, error)
}
