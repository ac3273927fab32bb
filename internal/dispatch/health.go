package dispatch

import (
	"sort"
	"sync"
	"time"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// Health is the derived platform health classification.
type Health string

const (
	HealthHealthy  Health = "healthy"
	HealthDegraded Health = "degraded"
	HealthDown     Health = "down"
)

// recentWindow bounds the per-platform sample ring used for success-rate
// and p50 computations.
const recentWindow = 256

// PlatformStatus is a point-in-time snapshot of one platform's rolling
// 24h counters and derived health.
type PlatformStatus struct {
	Platform     domain.Platform
	Status       Health
	EventsSent   int64
	Successes    int64
	Errors       int64
	AvgLatencyMS float64
	P50LatencyMS int64
	SuccessRate  float64
	LastSuccess  time.Time
}

// healthBucket accumulates one minute of outcomes. The minute stamp
// invalidates stale slots as the ring wraps.
type healthBucket struct {
	minute     int64
	sent       int64
	successes  int64
	errors     int64
	latencySum int64
}

type recentSample struct {
	ok        bool
	latencyMS int64
}

// platformHealth holds one platform's rolling state behind its own lock so
// concurrent pipelines touching different platforms never contend.
type platformHealth struct {
	mu          sync.Mutex
	buckets     []healthBucket
	recent      [recentWindow]recentSample
	recentIdx   int
	recentCount int
	lastSuccess time.Time
}

// HealthTracker maintains fixed-size per-minute ring buckets per platform
// over the retention window. Memory is bounded by the bucket count, not by
// event volume; health is derived lazily on read.
type HealthTracker struct {
	cfg              config.Dispatch
	retentionMinutes int64
	platforms        map[domain.Platform]*platformHealth
	now              func() time.Time
}

// NewHealthTracker creates a tracker covering retentionHours of history.
func NewHealthTracker(cfg config.Dispatch, retentionHours int) *HealthTracker {
	t := &HealthTracker{
		cfg:              cfg,
		retentionMinutes: int64(retentionHours) * 60,
		platforms:        make(map[domain.Platform]*platformHealth, len(domain.AllPlatforms)),
		now:              time.Now,
	}
	for _, p := range domain.AllPlatforms {
		t.platforms[p] = &platformHealth{
			buckets: make([]healthBucket, t.retentionMinutes),
		}
	}
	return t
}

// RecordOutcome folds one dispatch outcome into the platform's rolling
// window. attemptErrors counts transient failures that preceded the final
// outcome, so a send that succeeded on the third try still records two
// errors.
func (t *HealthTracker) RecordOutcome(platform domain.Platform, sent bool, latencyMS int64, attemptErrors int) {
	ph, ok := t.platforms[platform]
	if !ok {
		return
	}

	now := t.now()
	minute := now.Unix() / 60
	slot := minute % t.retentionMinutes

	ph.mu.Lock()
	defer ph.mu.Unlock()

	b := &ph.buckets[slot]
	if b.minute != minute {
		*b = healthBucket{minute: minute}
	}

	b.sent++
	b.errors += int64(attemptErrors)
	if sent {
		b.successes++
		b.latencySum += latencyMS
		ph.lastSuccess = now
	}

	ph.recent[ph.recentIdx] = recentSample{ok: sent, latencyMS: latencyMS}
	ph.recentIdx = (ph.recentIdx + 1) % recentWindow
	if ph.recentCount < recentWindow {
		ph.recentCount++
	}
}

// Snapshot returns the current status of one platform.
func (t *HealthTracker) Snapshot(platform domain.Platform) PlatformStatus {
	ph, ok := t.platforms[platform]
	if !ok {
		return PlatformStatus{Platform: platform, Status: HealthHealthy}
	}

	now := t.now()
	minute := now.Unix() / 60

	ph.mu.Lock()
	defer ph.mu.Unlock()

	status := PlatformStatus{
		Platform:    platform,
		LastSuccess: ph.lastSuccess,
	}

	var latencySum int64
	for i := range ph.buckets {
		b := &ph.buckets[i]
		if b.minute == 0 || minute-b.minute >= t.retentionMinutes {
			continue
		}
		status.EventsSent += b.sent
		status.Successes += b.successes
		status.Errors += b.errors
		latencySum += b.latencySum
	}
	if status.Successes > 0 {
		status.AvgLatencyMS = float64(latencySum) / float64(status.Successes)
	}

	rate, p50 := t.recentStats(ph)
	status.SuccessRate = rate
	status.P50LatencyMS = p50
	status.Status = t.classify(ph, status, now)

	return status
}

// Snapshots returns statuses for all platforms in stable order.
func (t *HealthTracker) Snapshots() []PlatformStatus {
	out := make([]PlatformStatus, 0, len(domain.AllPlatforms))
	for _, p := range domain.AllPlatforms {
		out = append(out, t.Snapshot(p))
	}
	return out
}

// recentStats computes the success rate and p50 latency over the sample
// ring. Caller holds ph.mu.
func (t *HealthTracker) recentStats(ph *platformHealth) (float64, int64) {
	if ph.recentCount == 0 {
		return 1.0, 0
	}

	successes := 0
	latencies := make([]int64, 0, ph.recentCount)
	for i := 0; i < ph.recentCount; i++ {
		s := ph.recent[i]
		if s.ok {
			successes++
			latencies = append(latencies, s.latencyMS)
		}
	}

	rate := float64(successes) / float64(ph.recentCount)

	var p50 int64
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		p50 = latencies[len(latencies)/2]
	}
	return rate, p50
}

func (t *HealthTracker) classify(ph *platformHealth, s PlatformStatus, now time.Time) Health {
	if s.EventsSent == 0 {
		return HealthHealthy
	}

	silence := time.Duration(t.cfg.DownSilenceMinutes) * time.Minute
	if s.SuccessRate < 0.5 || ph.lastSuccess.IsZero() || now.Sub(ph.lastSuccess) > silence {
		return HealthDown
	}
	if s.SuccessRate < 0.95 || s.P50LatencyMS > int64(t.cfg.DegradedLatencyMS) {
		return HealthDegraded
	}
	return HealthHealthy
}
