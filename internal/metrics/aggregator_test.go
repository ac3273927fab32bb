package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

func testMetricsConfig() config.Metrics {
	return config.Metrics{
		BucketSizeSec:    60,
		RetentionHours:   24,
		RecentEventsSize: 5,
	}
}

func newTestAggregator(t *testing.T) (*Aggregator, *time.Time) {
	t.Helper()
	a := NewAggregator(testMetricsConfig(), zap.NewNop())
	current := time.Date(2026, 3, 14, 12, 0, 30, 0, time.UTC)
	a.now = func() time.Time { return current }
	return a, &current
}

func recentEvent(name domain.EventName, value float64) *domain.RecentEvent {
	return &domain.RecentEvent{
		EventID:          "evt-" + string(name),
		SSIID:            "user-1",
		Name:             name,
		Value:            value,
		Timestamp:        time.Now(),
		ProcessingTimeMS: 4,
	}
}

func allowed(score float64) domain.TrustAssessment {
	return domain.TrustAssessment{Score: score, Action: domain.ActionAllow}
}

func window(current time.Time) (time.Time, time.Time) {
	return current.Add(-time.Hour), current
}

func TestRecord_CountsEventsAndActions(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)
	a.Record(recentEvent(domain.EventPurchase, 50), allowed(80), nil, nil, nil)
	a.Record(recentEvent(domain.EventPurchase, 30),
		domain.TrustAssessment{Score: 20, Action: domain.ActionBlock, Reason: "high_fraud_signal"}, nil, nil, nil)

	from, to := window(*current)
	snap := a.Overview(from, to)

	assert.Equal(t, int64(3), snap.TotalEvents)
	assert.Equal(t, int64(2), snap.Allowed)
	assert.Equal(t, int64(1), snap.Blocked)
	// The blocked purchase contributes no conversion or revenue.
	assert.Equal(t, int64(1), snap.Conversions)
	assert.Equal(t, 50.0, snap.Revenue)
	assert.InDelta(t, 4.0, snap.AvgProcessingMS, 0.001)
}

func TestOverview_ZeroPriorBaseline_ZeroChange(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPurchase, 25), allowed(90), nil, nil, nil)

	from, to := window(*current)
	snap := a.Overview(from, to)

	assert.Equal(t, 0.0, snap.EventsChange)
	assert.Equal(t, 0.0, snap.ConversionsChange)
	assert.Equal(t, 0.0, snap.RevenueChange)
}

func TestOverview_ComparesAgainstPreviousWindow(t *testing.T) {
	a, current := newTestAggregator(t)

	// Two events in the previous hour, four in the current one.
	*current = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)
	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)

	*current = time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)
	}

	snap := a.Overview(time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC), *current)

	assert.Equal(t, int64(4), snap.TotalEvents)
	assert.InDelta(t, 100.0, snap.EventsChange, 0.001)
}

func TestOverview_MidBucketFrom_CountsBucketOnce(t *testing.T) {
	a, current := newTestAggregator(t)

	// One event in the previous hour, two in the bucket containing from.
	*current = time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC)
	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)

	*current = time.Date(2026, 3, 14, 12, 0, 30, 0, time.UTC)
	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)
	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)

	// from sits inside the 12:00 bucket; that bucket must count toward the
	// current window only, never the prior baseline as well.
	snap := a.Overview(*current, current.Add(time.Hour))

	assert.Equal(t, int64(2), snap.TotalEvents)
	assert.InDelta(t, 100.0, snap.EventsChange, 0.001)
}

func TestOverview_ReadsAreIdempotent(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPurchase, 10), allowed(90), nil, nil, nil)

	from, to := window(*current)
	first := a.Overview(from, to)
	second := a.Overview(from, to)

	assert.Equal(t, first, second)
}

func TestRecordRejected_CountedSeparately(t *testing.T) {
	a, current := newTestAggregator(t)

	a.RecordRejected()
	a.RecordRejected()

	from, to := window(*current)
	snap := a.Overview(from, to)

	assert.Equal(t, int64(0), snap.TotalEvents)
	assert.Equal(t, int64(2), snap.Rejected)
	assert.Equal(t, int64(2), a.Rejected())
}

func TestTimeSeries_ZeroFillsEmptyBuckets(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)

	from := current.Add(-2 * time.Minute)
	points := a.TimeSeries(from, *current, "")

	assert.Len(t, points, 3)
	assert.Equal(t, int64(0), points[0].Events)
	assert.Equal(t, int64(0), points[1].Events)
	assert.Equal(t, int64(1), points[2].Events)
}

func TestTimeSeries_FiltersByEventName(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)
	a.Record(recentEvent(domain.EventPurchase, 20), allowed(90), nil, nil, nil)

	points := a.TimeSeries(*current, *current, domain.EventPurchase)

	assert.Len(t, points, 1)
	assert.Equal(t, int64(1), points[0].Events)
	assert.Equal(t, int64(1), points[0].Conversions)
	assert.Equal(t, 20.0, points[0].Revenue)
}

func TestFunnel_ClampsNarrowerStages(t *testing.T) {
	a, current := newTestAggregator(t)

	// More purchases than checkouts; the funnel must stay monotone.
	for i := 0; i < 10; i++ {
		a.Record(recentEvent(domain.EventPageView, 0), allowed(90), nil, nil, nil)
	}
	for i := 0; i < 2; i++ {
		a.Record(recentEvent(domain.EventInitiateCheckout, 0), allowed(90), nil, nil, nil)
	}
	for i := 0; i < 5; i++ {
		a.Record(recentEvent(domain.EventPurchase, 10), allowed(90), nil, nil, nil)
	}

	from, to := window(*current)
	stages := a.Funnel(from, to)

	assert.Len(t, stages, len(domain.FunnelOrder))
	prev := stages[0].Count
	for _, stage := range stages[1:] {
		assert.LessOrEqual(t, stage.Count, prev)
		prev = stage.Count
	}
}

func TestTrustScores_BandsAndActions(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPageView, 0), allowed(95), nil, nil, nil)
	a.Record(recentEvent(domain.EventPageView, 0), allowed(100), nil, nil, nil)
	a.Record(recentEvent(domain.EventPageView, 0),
		domain.TrustAssessment{Score: 10, Action: domain.ActionBlock, Reason: "high_fraud_signal"}, nil, nil, nil)

	from, to := window(*current)
	snap := a.TrustScores(from, to)

	assert.Len(t, snap.Histogram, 10)
	assert.Equal(t, int64(2), snap.Histogram[9].Count)
	assert.Equal(t, 100, snap.Histogram[9].Max)
	assert.Equal(t, int64(1), snap.Histogram[1].Count)
	assert.Equal(t, int64(2), snap.Allowed)
	assert.Equal(t, int64(1), snap.Blocked)
	assert.InDelta(t, (95.0+100.0+10.0)/3, snap.AvgScore, 0.001)
}

func TestBids_AveragesMultipliers(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventPurchase, 10), allowed(90),
		&domain.BidDecision{Strategy: domain.StrategyAggressive, Multiplier: 2.5}, nil, nil)
	a.Record(recentEvent(domain.EventPurchase, 10), allowed(90),
		&domain.BidDecision{Strategy: domain.StrategyExclude, Multiplier: 0.5}, nil, nil)

	from, to := window(*current)
	snap := a.Bids(from, to)

	assert.Equal(t, int64(1), snap.Strategies[domain.StrategyAggressive])
	assert.Equal(t, int64(1), snap.Excluded)
	assert.InDelta(t, 1.5, snap.AvgMultiplier, 0.001)
}

func TestMLPredictions_CountsSignalDistributions(t *testing.T) {
	a, current := newTestAggregator(t)

	signals := &domain.MLSignals{
		LTVSegment: domain.LTVVip,
		ChurnRisk:  domain.ChurnLow,
		Propensity: domain.PropensityHigh,
	}
	a.Record(recentEvent(domain.EventPurchase, 10), allowed(90), nil, signals, nil)

	from, to := window(*current)
	snap := a.MLPredictions(from, to)

	assert.Equal(t, int64(1), snap.Segments[domain.LTVVip])
	assert.Equal(t, int64(1), snap.ChurnRisks[domain.ChurnLow])
	assert.Equal(t, int64(1), snap.Propensities[domain.PropensityHigh])
}

func TestPlatformSendCounts_CountsOutcomes(t *testing.T) {
	a, current := newTestAggregator(t)

	outcomes := map[domain.Platform]domain.PlatformOutcome{
		domain.PlatformMeta:   {Platform: domain.PlatformMeta, Sent: true},
		domain.PlatformTikTok: {Platform: domain.PlatformTikTok, Sent: false, Error: "timeout"},
	}
	a.Record(recentEvent(domain.EventPurchase, 10), allowed(90), nil, nil, outcomes)

	from, to := window(*current)
	counts := a.PlatformSendCounts(from, to)

	byPlatform := make(map[domain.Platform]PlatformCounts)
	for _, c := range counts {
		byPlatform[c.Platform] = c
	}
	assert.Equal(t, int64(1), byPlatform[domain.PlatformMeta].Sent)
	assert.Equal(t, int64(1), byPlatform[domain.PlatformMeta].Successes)
	assert.Equal(t, int64(1), byPlatform[domain.PlatformTikTok].Sent)
	assert.Equal(t, int64(0), byPlatform[domain.PlatformTikTok].Successes)
}

func TestRecentEvents_NewestFirstBounded(t *testing.T) {
	a, _ := newTestAggregator(t)

	for i := 0; i < 8; i++ {
		e := recentEvent(domain.EventPageView, 0)
		e.EventID = fmt.Sprintf("evt-%d", i)
		a.Record(e, allowed(90), nil, nil, nil)
	}

	events := a.RecentEvents(0)

	// Ring holds 5; newest first.
	assert.Len(t, events, 5)
	assert.Equal(t, "evt-7", events[0].EventID)
	assert.Equal(t, "evt-3", events[4].EventID)

	limited := a.RecentEvents(2)
	assert.Len(t, limited, 2)
	assert.Equal(t, "evt-7", limited[0].EventID)
}

func TestEventsByType_StableOrder(t *testing.T) {
	a, current := newTestAggregator(t)

	a.Record(recentEvent(domain.EventLead, 0), allowed(90), nil, nil, nil)

	from, to := window(*current)
	counts := a.EventsByType(from, to)

	assert.Len(t, counts, len(domain.AllEventNames))
	for i, name := range domain.AllEventNames {
		assert.Equal(t, name, counts[i].Name)
	}
}
