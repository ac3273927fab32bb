package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/dispatch"
	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/dto"
	"github.com/clearfunnel/attribution-engine/internal/metrics"
)

// QueryService serves the dashboard's read-only aggregate queries as
// eventually consistent snapshots of the aggregator and health tracker.
type QueryService struct {
	aggregator *metrics.Aggregator
	health     *dispatch.HealthTracker
	log        *zap.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(aggregator *metrics.Aggregator, health *dispatch.HealthTracker, log *zap.Logger) *QueryService {
	return &QueryService{
		aggregator: aggregator,
		health:     health,
		log:        log,
	}
}

func (s *QueryService) window(req *dto.RangeRequest) (time.Time, time.Time, error) {
	if req.From > req.To {
		return time.Time{}, time.Time{}, fmt.Errorf("from timestamp must be less than or equal to to timestamp")
	}
	return time.Unix(req.From, 0), time.Unix(req.To, 0), nil
}

// Overview returns the dashboard overview for the requested range.
func (s *QueryService) Overview(req *dto.RangeRequest) (*dto.OverviewResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	snap := s.aggregator.Overview(from, to)
	return &dto.OverviewResponse{
		TotalEvents:        snap.TotalEvents,
		Conversions:        snap.Conversions,
		ConversionRate:     snap.ConversionRate,
		Revenue:            snap.Revenue,
		Allowed:            snap.Allowed,
		Challenged:         snap.Challenged,
		Blocked:            snap.Blocked,
		Rejected:           snap.Rejected,
		AvgProcessingMS:    snap.AvgProcessingMS,
		EventsChange:       snap.EventsChange,
		ConversionsChange:  snap.ConversionsChange,
		RevenueChange:      snap.RevenueChange,
		ConversionRateDiff: snap.ConversionRateDiff,
	}, nil
}

// PlatformStatuses returns per-platform health, optionally filtered to one
// platform, joined with the requested window's send counts.
func (s *QueryService) PlatformStatuses(req *dto.RangeRequest) (*dto.PlatformStatusResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	var filter domain.Platform
	if req.Platform != "" {
		filter, err = domain.ParsePlatform(req.Platform)
		if err != nil {
			return nil, err
		}
	}

	counts := make(map[domain.Platform]metrics.PlatformCounts)
	for _, c := range s.aggregator.PlatformSendCounts(from, to) {
		counts[c.Platform] = c
	}

	resp := &dto.PlatformStatusResponse{}
	for _, status := range s.health.Snapshots() {
		if filter != "" && status.Platform != filter {
			continue
		}

		data := dto.PlatformStatusData{
			Platform:     string(status.Platform),
			Status:       string(status.Status),
			EventsSent:   status.EventsSent,
			Successes:    status.Successes,
			Errors:       status.Errors,
			AvgLatencyMS: status.AvgLatencyMS,
			P50LatencyMS: status.P50LatencyMS,
			SuccessRate:  status.SuccessRate,
			Sent:         counts[status.Platform].Sent,
			WindowOK:     counts[status.Platform].Successes,
		}
		if !status.LastSuccess.IsZero() {
			data.LastSuccess = status.LastSuccess.Unix()
		}
		resp.Platforms = append(resp.Platforms, data)
	}
	return resp, nil
}

// TimeSeries returns the event time series for the requested range,
// optionally restricted to one event type.
func (s *QueryService) TimeSeries(req *dto.RangeRequest) (*dto.TimeSeriesResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	var name domain.EventName
	if req.EventName != "" {
		name, err = domain.ParseEventName(req.EventName)
		if err != nil {
			return nil, err
		}
	}

	points := s.aggregator.TimeSeries(from, to, name)
	resp := &dto.TimeSeriesResponse{
		EventName: req.EventName,
		Points:    make([]dto.TimePointData, 0, len(points)),
	}
	for _, p := range points {
		resp.Points = append(resp.Points, dto.TimePointData{
			Timestamp:   p.Timestamp.Unix(),
			Events:      p.Events,
			Conversions: p.Conversions,
			Revenue:     p.Revenue,
		})
	}
	return resp, nil
}

// Funnel returns the conversion funnel for the requested range.
func (s *QueryService) Funnel(req *dto.RangeRequest) (*dto.FunnelResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	resp := &dto.FunnelResponse{}
	for _, stage := range s.aggregator.Funnel(from, to) {
		resp.Stages = append(resp.Stages, dto.FunnelStageData{
			Stage:          string(stage.Stage),
			Count:          stage.Count,
			ConversionRate: stage.ConversionRate,
		})
	}
	return resp, nil
}

// TrustScores returns the trust-score distribution for the range.
func (s *QueryService) TrustScores(req *dto.RangeRequest) (*dto.TrustResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	snap := s.aggregator.TrustScores(from, to)
	resp := &dto.TrustResponse{
		AvgScore:   snap.AvgScore,
		Allowed:    snap.Allowed,
		Challenged: snap.Challenged,
		Blocked:    snap.Blocked,
	}
	for _, band := range snap.Histogram {
		resp.Histogram = append(resp.Histogram, dto.TrustBandData{
			Min:   band.Min,
			Max:   band.Max,
			Count: band.Count,
		})
	}
	return resp, nil
}

// MLPredictions returns the prediction-signal distributions for the range.
func (s *QueryService) MLPredictions(req *dto.RangeRequest) (*dto.MLPredictionsResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	snap := s.aggregator.MLPredictions(from, to)
	resp := &dto.MLPredictionsResponse{
		Segments:     make(map[string]int64, len(snap.Segments)),
		ChurnRisks:   make(map[string]int64, len(snap.ChurnRisks)),
		Propensities: make(map[string]int64, len(snap.Propensities)),
	}
	for k, v := range snap.Segments {
		resp.Segments[string(k)] = v
	}
	for k, v := range snap.ChurnRisks {
		resp.ChurnRisks[string(k)] = v
	}
	for k, v := range snap.Propensities {
		resp.Propensities[string(k)] = v
	}
	return resp, nil
}

// Bids returns the bid-strategy breakdown for the range.
func (s *QueryService) Bids(req *dto.RangeRequest) (*dto.BidMetricsResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	snap := s.aggregator.Bids(from, to)
	resp := &dto.BidMetricsResponse{
		Strategies:    make(map[string]int64, len(snap.Strategies)),
		AvgMultiplier: snap.AvgMultiplier,
		Excluded:      snap.Excluded,
	}
	for k, v := range snap.Strategies {
		resp.Strategies[string(k)] = v
	}
	return resp, nil
}

// RecentEvents returns up to limit recently processed events.
func (s *QueryService) RecentEvents(limit int) *dto.RecentEventsResponse {
	resp := &dto.RecentEventsResponse{
		Events: make([]dto.RecentEventData, 0),
	}
	for _, record := range s.aggregator.RecentEvents(limit) {
		platforms := make(map[string]bool, len(record.Platforms))
		for platform, sent := range record.Platforms {
			platforms[string(platform)] = sent
		}
		resp.Events = append(resp.Events, dto.RecentEventData{
			EventID:          record.EventID,
			SSIID:            record.SSIID,
			EventName:        string(record.Name),
			Value:            record.Value,
			Timestamp:        record.Timestamp.Unix(),
			TrustScore:       record.TrustScore,
			Action:           string(record.TrustAction),
			Reason:           record.TrustReason,
			Strategy:         string(record.Strategy),
			Multiplier:       record.Multiplier,
			Platforms:        platforms,
			ProcessingTimeMS: record.ProcessingTimeMS,
		})
	}
	return resp
}

// EventsByType returns per-type event counts for the range.
func (s *QueryService) EventsByType(req *dto.RangeRequest) (*dto.EventsByTypeResponse, error) {
	from, to, err := s.window(req)
	if err != nil {
		return nil, err
	}

	resp := &dto.EventsByTypeResponse{}
	for _, entry := range s.aggregator.EventsByType(from, to) {
		resp.Types = append(resp.Types, dto.EventTypeData{
			EventName: string(entry.Name),
			Count:     entry.Count,
		})
	}
	return resp, nil
}
