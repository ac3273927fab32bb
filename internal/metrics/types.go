package metrics

import (
	"time"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// trustBands is the number of fixed histogram bands over the 0-100 score
// range.
const trustBands = 10

// OverviewSnapshot is the dashboard overview: current-window totals plus
// percent change versus the immediately preceding window of equal length.
type OverviewSnapshot struct {
	TotalEvents        int64
	Conversions        int64
	ConversionRate     float64
	Revenue            float64
	Allowed            int64
	Challenged         int64
	Blocked            int64
	Rejected           int64
	AvgProcessingMS    float64
	EventsChange       float64
	ConversionsChange  float64
	RevenueChange      float64
	ConversionRateDiff float64
}

// TimePoint is one time-series bucket.
type TimePoint struct {
	Timestamp   time.Time
	Events      int64
	Conversions int64
	Revenue     float64
}

// FunnelStage is one stage of the conversion funnel. Counts are clamped so
// a narrower stage never reports above the stage before it.
type FunnelStage struct {
	Stage          domain.EventName
	Count          int64
	ConversionRate float64
}

// TrustBand is one fixed band of the trust-score distribution.
type TrustBand struct {
	Min   int
	Max   int
	Count int64
}

// TrustSnapshot is the trust-score distribution and action breakdown.
type TrustSnapshot struct {
	Histogram  []TrustBand
	AvgScore   float64
	Allowed    int64
	Challenged int64
	Blocked    int64
}

// MLSnapshot is the distribution of oracle-derived prediction signals.
type MLSnapshot struct {
	Segments     map[domain.LTVSegment]int64
	ChurnRisks   map[domain.ChurnRisk]int64
	Propensities map[domain.Propensity]int64
}

// BidSnapshot is the bid-strategy breakdown.
type BidSnapshot struct {
	Strategies    map[domain.Strategy]int64
	AvgMultiplier float64
	Excluded      int64
}

// EventTypeCount is one entry of the events-by-type breakdown.
type EventTypeCount struct {
	Name  domain.EventName
	Count int64
}

// PlatformCounts is a per-platform send/success pair for a window.
type PlatformCounts struct {
	Platform  domain.Platform
	Sent      int64
	Successes int64
}
