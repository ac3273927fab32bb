package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// bucket accumulates one time slice of aggregate state. Each bucket has
// its own lock so concurrent pipelines rarely contend, and a stamp that
// invalidates the slot when the ring wraps.
type bucket struct {
	mu    sync.Mutex
	stamp int64

	eventCounts      map[domain.EventName]int64
	actionCounts     map[domain.Action]int64
	trustHist        [trustBands]int64
	trustScoreSum    float64
	revenueSum       float64
	conversions      int64
	strategyCounts   map[domain.Strategy]int64
	multiplierSum    float64
	decisions        int64
	segmentCounts    map[domain.LTVSegment]int64
	churnCounts      map[domain.ChurnRisk]int64
	propensityCounts map[domain.Propensity]int64
	platformSent     map[domain.Platform]int64
	platformSuccess  map[domain.Platform]int64
	processingSumMS  int64
	processed        int64
}

func (b *bucket) reset(stamp int64) {
	b.stamp = stamp
	b.eventCounts = make(map[domain.EventName]int64)
	b.actionCounts = make(map[domain.Action]int64)
	b.trustHist = [trustBands]int64{}
	b.trustScoreSum = 0
	b.revenueSum = 0
	b.conversions = 0
	b.strategyCounts = make(map[domain.Strategy]int64)
	b.multiplierSum = 0
	b.decisions = 0
	b.segmentCounts = make(map[domain.LTVSegment]int64)
	b.churnCounts = make(map[domain.ChurnRisk]int64)
	b.propensityCounts = make(map[domain.Propensity]int64)
	b.platformSent = make(map[domain.Platform]int64)
	b.platformSuccess = make(map[domain.Platform]int64)
	b.processingSumMS = 0
	b.processed = 0
}

// Aggregator maintains streaming aggregate state in fixed-size time-bucket
// rings. Memory is bounded by the bucket count, never by event volume, and
// every read is computed from bucket sums rather than raw events.
type Aggregator struct {
	bucketSize time.Duration
	retention  int64
	buckets    []bucket

	recentMu    sync.Mutex
	recent      []*domain.RecentEvent
	recentIdx   int
	recentCount int

	rejected atomic.Int64

	now func() time.Time
	log *zap.Logger
}

// NewAggregator creates an aggregator with per-minute buckets covering the
// configured retention window and a bounded recent-events log.
func NewAggregator(cfg config.Metrics, log *zap.Logger) *Aggregator {
	bucketSize := time.Duration(cfg.BucketSizeSec) * time.Second
	retention := int64(cfg.RetentionHours) * int64(time.Hour/bucketSize)

	a := &Aggregator{
		bucketSize: bucketSize,
		retention:  retention,
		buckets:    make([]bucket, retention),
		recent:     make([]*domain.RecentEvent, cfg.RecentEventsSize),
		now:        time.Now,
		log:        log,
	}
	return a
}

// Record folds one processed event into the aggregate state. Called exactly
// once per event after dispatch joins (or immediately for blocked events).
// Cross-event ordering is irrelevant: every update is a commutative
// increment.
func (a *Aggregator) Record(recent *domain.RecentEvent, assessment domain.TrustAssessment, decision *domain.BidDecision, signals *domain.MLSignals, outcomes map[domain.Platform]domain.PlatformOutcome) {
	now := a.now()
	stamp := now.UnixNano() / int64(a.bucketSize)
	b := &a.buckets[stamp%a.retention]

	b.mu.Lock()
	if b.stamp != stamp {
		b.reset(stamp)
	}
	b.eventCounts[recent.Name]++
	b.actionCounts[assessment.Action]++
	b.trustHist[trustBand(assessment.Score)]++
	b.trustScoreSum += assessment.Score
	b.processed++
	b.processingSumMS += recent.ProcessingTimeMS

	if recent.Name == domain.EventPurchase && assessment.Action != domain.ActionBlock {
		b.conversions++
		b.revenueSum += recent.Value
	}

	if decision != nil {
		b.strategyCounts[decision.Strategy]++
		b.multiplierSum += decision.Multiplier
		b.decisions++
	}

	if signals != nil {
		b.segmentCounts[signals.LTVSegment]++
		b.churnCounts[signals.ChurnRisk]++
		b.propensityCounts[signals.Propensity]++
	}

	for platform, outcome := range outcomes {
		b.platformSent[platform]++
		if outcome.Sent {
			b.platformSuccess[platform]++
		}
	}
	b.mu.Unlock()

	a.appendRecent(recent)
}

// RecordRejected counts a malformed event discarded before trust
// evaluation. Rejections have no other metrics impact.
func (a *Aggregator) RecordRejected() {
	a.rejected.Add(1)
}

// Rejected returns the total rejection count.
func (a *Aggregator) Rejected() int64 {
	return a.rejected.Load()
}

// RecentEvents returns up to limit of the most recently processed events,
// newest first.
func (a *Aggregator) RecentEvents(limit int) []*domain.RecentEvent {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()

	n := a.recentCount
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]*domain.RecentEvent, 0, n)
	for i := 0; i < n; i++ {
		idx := (a.recentIdx - 1 - i + len(a.recent)*2) % len(a.recent)
		out = append(out, a.recent[idx])
	}
	return out
}

func (a *Aggregator) appendRecent(recent *domain.RecentEvent) {
	a.recentMu.Lock()
	defer a.recentMu.Unlock()

	a.recent[a.recentIdx] = recent
	a.recentIdx = (a.recentIdx + 1) % len(a.recent)
	if a.recentCount < len(a.recent) {
		a.recentCount++
	}
}

func trustBand(score float64) int {
	band := int(score) / (100 / trustBands)
	if band >= trustBands {
		band = trustBands - 1
	}
	if band < 0 {
		band = 0
	}
	return band
}
