package dispatch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
	"github.com/clearfunnel/attribution-engine/internal/sink"
)

// Dispatcher fans an approved event out to every enabled platform sink
// concurrently. Platforms never block or fail each other; each gets its own
// timeout and retry budget, and every attempt feeds the health tracker.
type Dispatcher struct {
	sinks  map[domain.Platform]sink.PlatformSink
	health *HealthTracker
	cfg    config.Dispatch
	log    *zap.Logger
}

// NewDispatcher creates a dispatcher over the given sinks.
func NewDispatcher(sinks []sink.PlatformSink, health *HealthTracker, cfg config.Dispatch, log *zap.Logger) *Dispatcher {
	m := make(map[domain.Platform]sink.PlatformSink, len(sinks))
	for _, s := range sinks {
		m[s.Platform()] = s
	}
	return &Dispatcher{
		sinks:  m,
		health: health,
		cfg:    cfg,
		log:    log,
	}
}

// Dispatch delivers the event to each enabled platform and joins the
// results. The returned map has one outcome per enabled platform.
func (d *Dispatcher) Dispatch(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision, enabled []domain.Platform) map[domain.Platform]domain.PlatformOutcome {
	outcomes := make(map[domain.Platform]domain.PlatformOutcome, len(enabled))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, platform := range enabled {
		s, ok := d.sinks[platform]
		if !ok {
			mu.Lock()
			outcomes[platform] = domain.PlatformOutcome{
				Platform: platform,
				Error:    "no sink configured",
			}
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(platform domain.Platform, s sink.PlatformSink) {
			defer wg.Done()
			outcome := d.sendWithRetry(ctx, s, event, decision)
			mu.Lock()
			outcomes[platform] = outcome
			mu.Unlock()
		}(platform, s)
	}

	wg.Wait()
	return outcomes
}

// sendWithRetry attempts delivery with exponential backoff for transient
// failures. Permanent failures (4xx-class, schema rejection) stop
// immediately. LatencyMS reflects only the successful attempt.
func (d *Dispatcher) sendWithRetry(ctx context.Context, s sink.PlatformSink, event *domain.ConversionEvent, decision domain.BidDecision) domain.PlatformOutcome {
	platform := s.Platform()
	attemptTimeout := time.Duration(d.cfg.PlatformTimeoutMS) * time.Millisecond

	var lastLatency int64
	failedAttempts := 0

	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()

		start := time.Now()
		err := s.Send(attemptCtx, event, decision)
		lastLatency = time.Since(start).Milliseconds()

		if err == nil {
			return nil
		}

		var sendErr *sink.SendError
		if errors.As(err, &sendErr) && !sendErr.Transient {
			return backoff.Permanent(err)
		}

		failedAttempts++
		d.log.Warn("Platform send attempt failed",
			zap.String("platform", string(platform)),
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return err
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = 50 * time.Millisecond
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(d.cfg.MaxRetries)), ctx)

	err := backoff.Retry(operation, policy)

	outcome := domain.PlatformOutcome{
		Platform:  platform,
		Sent:      err == nil,
		LatencyMS: lastLatency,
	}
	if err != nil {
		// Permanent failures bypass the transient counter in operation.
		var sendErr *sink.SendError
		if errors.As(err, &sendErr) && !sendErr.Transient {
			failedAttempts++
		}
		if ctx.Err() != nil {
			outcome.Error = "timeout: event deadline exceeded"
		} else {
			outcome.Error = err.Error()
		}
		d.log.Warn("Platform dispatch exhausted",
			zap.String("platform", string(platform)),
			zap.String("event_id", event.EventID),
			zap.Int("failed_attempts", failedAttempts),
			zap.String("error", outcome.Error))
	}

	d.health.RecordOutcome(platform, outcome.Sent, lastLatency, failedAttempts)
	return outcome
}
