package metrics

import (
	"time"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// windowTotals is the sum of every bucket within one query window.
type windowTotals struct {
	events          int64
	byName          map[domain.EventName]int64
	actions         map[domain.Action]int64
	hist            [trustBands]int64
	scoreSum        float64
	revenue         float64
	conversions     int64
	strategies      map[domain.Strategy]int64
	multiplierSum   float64
	decisions       int64
	segments        map[domain.LTVSegment]int64
	churn           map[domain.ChurnRisk]int64
	propensity      map[domain.Propensity]int64
	platformSent    map[domain.Platform]int64
	platformSuccess map[domain.Platform]int64
	processingSum   int64
	processed       int64
}

func (a *Aggregator) totals(from, to time.Time) windowTotals {
	return a.totalsForStamps(from.UnixNano()/int64(a.bucketSize), to.UnixNano()/int64(a.bucketSize))
}

func (a *Aggregator) totalsForStamps(fromStamp, toStamp int64) windowTotals {
	t := windowTotals{
		byName:          make(map[domain.EventName]int64),
		actions:         make(map[domain.Action]int64),
		strategies:      make(map[domain.Strategy]int64),
		segments:        make(map[domain.LTVSegment]int64),
		churn:           make(map[domain.ChurnRisk]int64),
		propensity:      make(map[domain.Propensity]int64),
		platformSent:    make(map[domain.Platform]int64),
		platformSuccess: make(map[domain.Platform]int64),
	}

	for i := range a.buckets {
		b := &a.buckets[i]
		b.mu.Lock()
		if b.stamp == 0 || b.stamp < fromStamp || b.stamp > toStamp {
			b.mu.Unlock()
			continue
		}
		for name, c := range b.eventCounts {
			t.byName[name] += c
			t.events += c
		}
		for action, c := range b.actionCounts {
			t.actions[action] += c
		}
		for band, c := range b.trustHist {
			t.hist[band] += c
		}
		t.scoreSum += b.trustScoreSum
		t.revenue += b.revenueSum
		t.conversions += b.conversions
		for s, c := range b.strategyCounts {
			t.strategies[s] += c
		}
		t.multiplierSum += b.multiplierSum
		t.decisions += b.decisions
		for s, c := range b.segmentCounts {
			t.segments[s] += c
		}
		for r, c := range b.churnCounts {
			t.churn[r] += c
		}
		for p, c := range b.propensityCounts {
			t.propensity[p] += c
		}
		for p, c := range b.platformSent {
			t.platformSent[p] += c
		}
		for p, c := range b.platformSuccess {
			t.platformSuccess[p] += c
		}
		t.processingSum += b.processingSumMS
		t.processed += b.processed
		b.mu.Unlock()
	}

	return t
}

// Overview computes the dashboard overview for [from, to], with change
// fields derived by comparing against the immediately preceding window of
// equal length. A zero prior baseline yields a 0 change, never a division
// error.
func (a *Aggregator) Overview(from, to time.Time) OverviewSnapshot {
	// Both windows are resolved in bucket-stamp space so that a from inside
	// a bucket never counts that bucket in both windows.
	fromStamp := from.UnixNano() / int64(a.bucketSize)
	toStamp := to.UnixNano() / int64(a.bucketSize)
	width := toStamp - fromStamp + 1

	cur := a.totalsForStamps(fromStamp, toStamp)
	prev := a.totalsForStamps(fromStamp-width, fromStamp-1)

	snap := OverviewSnapshot{
		TotalEvents: cur.events,
		Conversions: cur.conversions,
		Revenue:     cur.revenue,
		Allowed:     cur.actions[domain.ActionAllow],
		Challenged:  cur.actions[domain.ActionChallenge],
		Blocked:     cur.actions[domain.ActionBlock],
		Rejected:    a.rejected.Load(),
	}
	if cur.processed > 0 {
		snap.AvgProcessingMS = float64(cur.processingSum) / float64(cur.processed)
	}

	snap.ConversionRate = rate(cur.conversions, cur.byName[domain.EventPageView])
	prevRate := rate(prev.conversions, prev.byName[domain.EventPageView])

	snap.EventsChange = percentChange(float64(prev.events), float64(cur.events))
	snap.ConversionsChange = percentChange(float64(prev.conversions), float64(cur.conversions))
	snap.RevenueChange = percentChange(prev.revenue, cur.revenue)
	snap.ConversionRateDiff = snap.ConversionRate - prevRate

	return snap
}

// TimeSeries returns one point per bucket across [from, to], zero-filled
// for empty buckets. A non-empty name restricts event counts to that type.
func (a *Aggregator) TimeSeries(from, to time.Time, name domain.EventName) []TimePoint {
	fromStamp := from.UnixNano() / int64(a.bucketSize)
	toStamp := to.UnixNano() / int64(a.bucketSize)
	if toStamp < fromStamp {
		return nil
	}
	if toStamp-fromStamp >= a.retention {
		fromStamp = toStamp - a.retention + 1
	}

	points := make([]TimePoint, 0, toStamp-fromStamp+1)
	for stamp := fromStamp; stamp <= toStamp; stamp++ {
		point := TimePoint{Timestamp: time.Unix(0, stamp*int64(a.bucketSize))}

		b := &a.buckets[stamp%a.retention]
		b.mu.Lock()
		if b.stamp == stamp {
			if name == "" {
				for _, c := range b.eventCounts {
					point.Events += c
				}
			} else {
				point.Events = b.eventCounts[name]
			}
			point.Conversions = b.conversions
			point.Revenue = b.revenueSum
		}
		b.mu.Unlock()

		points = append(points, point)
	}
	return points
}

// Funnel returns the conversion funnel for [from, to]. Each stage reports
// its own count clamped to the stage before it, with the stage-to-stage
// conversion rate.
func (a *Aggregator) Funnel(from, to time.Time) []FunnelStage {
	t := a.totals(from, to)

	stages := make([]FunnelStage, 0, len(domain.FunnelOrder))
	prev := int64(-1)
	for _, name := range domain.FunnelOrder {
		count := t.byName[name]
		if prev >= 0 && count > prev {
			count = prev
		}

		stage := FunnelStage{Stage: name, Count: count}
		if prev > 0 {
			stage.ConversionRate = float64(count) / float64(prev)
		}
		stages = append(stages, stage)
		prev = count
	}
	return stages
}

// TrustScores returns the trust-score distribution for [from, to].
func (a *Aggregator) TrustScores(from, to time.Time) TrustSnapshot {
	t := a.totals(from, to)

	snap := TrustSnapshot{
		Histogram:  make([]TrustBand, 0, trustBands),
		Allowed:    t.actions[domain.ActionAllow],
		Challenged: t.actions[domain.ActionChallenge],
		Blocked:    t.actions[domain.ActionBlock],
	}

	width := 100 / trustBands
	for band := 0; band < trustBands; band++ {
		snap.Histogram = append(snap.Histogram, TrustBand{
			Min:   band * width,
			Max:   (band+1)*width - 1,
			Count: t.hist[band],
		})
	}
	snap.Histogram[trustBands-1].Max = 100

	if t.processed > 0 {
		snap.AvgScore = t.scoreSum / float64(t.processed)
	}
	return snap
}

// MLPredictions returns the prediction-signal distributions for [from, to].
func (a *Aggregator) MLPredictions(from, to time.Time) MLSnapshot {
	t := a.totals(from, to)
	return MLSnapshot{
		Segments:     t.segments,
		ChurnRisks:   t.churn,
		Propensities: t.propensity,
	}
}

// Bids returns the bid-strategy breakdown for [from, to].
func (a *Aggregator) Bids(from, to time.Time) BidSnapshot {
	t := a.totals(from, to)

	snap := BidSnapshot{
		Strategies: t.strategies,
		Excluded:   t.strategies[domain.StrategyExclude],
	}
	if t.decisions > 0 {
		snap.AvgMultiplier = t.multiplierSum / float64(t.decisions)
	}
	return snap
}

// EventsByType returns per-event-name counts for [from, to] in the closed
// set's stable order.
func (a *Aggregator) EventsByType(from, to time.Time) []EventTypeCount {
	t := a.totals(from, to)

	out := make([]EventTypeCount, 0, len(domain.AllEventNames))
	for _, name := range domain.AllEventNames {
		out = append(out, EventTypeCount{Name: name, Count: t.byName[name]})
	}
	return out
}

// PlatformSendCounts returns per-platform sent/success counts for
// [from, to].
func (a *Aggregator) PlatformSendCounts(from, to time.Time) []PlatformCounts {
	t := a.totals(from, to)

	out := make([]PlatformCounts, 0, len(domain.AllPlatforms))
	for _, p := range domain.AllPlatforms {
		out = append(out, PlatformCounts{
			Platform:  p,
			Sent:      t.platformSent[p],
			Successes: t.platformSuccess[p],
		})
	}
	return out
}

// percentChange reports the relative change from prev to cur as a
// percentage, with a 0 sentinel when the baseline is zero.
func percentChange(prev, cur float64) float64 {
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

func rate(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
