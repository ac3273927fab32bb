package dto

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// IngestEventResponse is the synchronous decision for one ingested event.
type IngestEventResponse struct {
	EventID          string          `json:"event_id"`
	TrustScore       float64         `json:"trust_score"`
	Action           string          `json:"action"`
	Reason           string          `json:"reason,omitempty"`
	Strategy         string          `json:"strategy,omitempty"`
	Multiplier       float64         `json:"multiplier,omitempty"`
	Platforms        map[string]bool `json:"platforms"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
}

// IngestBulkResponse summarizes a bulk submission.
type IngestBulkResponse struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}

// OverviewResponse is the dashboard overview aggregate.
type OverviewResponse struct {
	TotalEvents        int64   `json:"total_events"`
	Conversions        int64   `json:"conversions"`
	ConversionRate     float64 `json:"conversion_rate"`
	Revenue            float64 `json:"revenue"`
	Allowed            int64   `json:"allowed"`
	Challenged         int64   `json:"challenged"`
	Blocked            int64   `json:"blocked"`
	Rejected           int64   `json:"rejected"`
	AvgProcessingMS    float64 `json:"avg_processing_ms"`
	EventsChange       float64 `json:"events_change"`
	ConversionsChange  float64 `json:"conversions_change"`
	RevenueChange      float64 `json:"revenue_change"`
	ConversionRateDiff float64 `json:"conversion_rate_diff"`
}

// PlatformStatusData is one platform's health snapshot.
type PlatformStatusData struct {
	Platform     string  `json:"platform"`
	Status       string  `json:"status"`
	EventsSent   int64   `json:"events_sent"`
	Successes    int64   `json:"successes"`
	Errors       int64   `json:"errors"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
	P50LatencyMS int64   `json:"p50_latency_ms"`
	SuccessRate  float64 `json:"success_rate"`
	LastSuccess  int64   `json:"last_success,omitempty"`
	Sent         int64   `json:"window_sent"`
	WindowOK     int64   `json:"window_successes"`
}

// PlatformStatusResponse lists platform health snapshots.
type PlatformStatusResponse struct {
	Platforms []PlatformStatusData `json:"platforms"`
}

// TimePointData is one time-series bucket.
type TimePointData struct {
	Timestamp   int64   `json:"timestamp"`
	Events      int64   `json:"events"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

// TimeSeriesResponse is the events time series.
type TimeSeriesResponse struct {
	EventName string          `json:"event_name,omitempty"`
	Points    []TimePointData `json:"points"`
}

// FunnelStageData is one funnel stage.
type FunnelStageData struct {
	Stage          string  `json:"stage"`
	Count          int64   `json:"count"`
	ConversionRate float64 `json:"conversion_rate"`
}

// FunnelResponse is the conversion funnel aggregate.
type FunnelResponse struct {
	Stages []FunnelStageData `json:"stages"`
}

// TrustBandData is one band of the trust-score histogram.
type TrustBandData struct {
	Min   int   `json:"min"`
	Max   int   `json:"max"`
	Count int64 `json:"count"`
}

// TrustResponse is the trust-score distribution aggregate.
type TrustResponse struct {
	Histogram  []TrustBandData `json:"histogram"`
	AvgScore   float64         `json:"avg_score"`
	Allowed    int64           `json:"allowed"`
	Challenged int64           `json:"challenged"`
	Blocked    int64           `json:"blocked"`
}

// MLPredictionsResponse is the ML prediction-signal distribution.
type MLPredictionsResponse struct {
	Segments     map[string]int64 `json:"ltv_segments"`
	ChurnRisks   map[string]int64 `json:"churn_risks"`
	Propensities map[string]int64 `json:"propensities"`
}

// BidMetricsResponse is the bid-strategy breakdown.
type BidMetricsResponse struct {
	Strategies    map[string]int64 `json:"strategies"`
	AvgMultiplier float64          `json:"avg_multiplier"`
	Excluded      int64            `json:"excluded"`
}

// RecentEventData is one processed event record.
type RecentEventData struct {
	EventID          string          `json:"event_id"`
	SSIID            string          `json:"ssi_id"`
	EventName        string          `json:"event_name"`
	Value            float64         `json:"value,omitempty"`
	Timestamp        int64           `json:"timestamp"`
	TrustScore       float64         `json:"trust_score"`
	Action           string          `json:"action"`
	Reason           string          `json:"reason,omitempty"`
	Strategy         string          `json:"strategy,omitempty"`
	Multiplier       float64         `json:"multiplier,omitempty"`
	Platforms        map[string]bool `json:"platforms"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
}

// RecentEventsResponse lists recently processed events, newest first.
type RecentEventsResponse struct {
	Events []RecentEventData `json:"events"`
}

// EventTypeData is one entry of the events-by-type breakdown.
type EventTypeData struct {
	EventName string `json:"event_name"`
	Count     int64  `json:"count"`
}

// EventsByTypeResponse is the per-type event count breakdown.
type EventsByTypeResponse struct {
	Types []EventTypeData `json:"types"`
}
