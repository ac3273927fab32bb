package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// HTTPSink forwards conversion events to an ad platform's event endpoint.
// Meta, TikTok and Google all accept the same minimal payload shape here;
// the concrete platform APIs are external collaborators.
type HTTPSink struct {
	platform domain.Platform
	endpoint string
	client   *http.Client
	log      *zap.Logger
}

// NewHTTPSink creates a sink posting to the given platform endpoint.
// Per-attempt timeouts come from the dispatcher's context.
func NewHTTPSink(platform domain.Platform, endpoint string, log *zap.Logger) *HTTPSink {
	return &HTTPSink{
		platform: platform,
		endpoint: endpoint,
		client:   &http.Client{},
		log:      log,
	}
}

// Platform returns the destination platform.
func (s *HTTPSink) Platform() domain.Platform {
	return s.platform
}

type conversionPayload struct {
	EventID       string  `json:"event_id"`
	SSIID         string  `json:"ssi_id"`
	EventName     string  `json:"event_name"`
	Value         float64 `json:"value,omitempty"`
	Timestamp     int64   `json:"timestamp"`
	BidStrategy   string  `json:"bid_strategy"`
	BidMultiplier float64 `json:"bid_multiplier"`
}

// Send posts the event. 5xx responses and transport errors are transient;
// 4xx responses are permanent and must not be retried.
func (s *HTTPSink) Send(ctx context.Context, event *domain.ConversionEvent, decision domain.BidDecision) error {
	body, err := json.Marshal(conversionPayload{
		EventID:       event.EventID,
		SSIID:         event.SSIID,
		EventName:     string(event.Name),
		Value:         event.Value,
		Timestamp:     event.Timestamp.Unix(),
		BidStrategy:   string(decision.Strategy),
		BidMultiplier: decision.Multiplier,
	})
	if err != nil {
		return &SendError{Err: fmt.Errorf("failed to marshal payload: %w", err), Transient: false}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return &SendError{Err: fmt.Errorf("failed to build request: %w", err), Transient: false}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return &SendError{Err: fmt.Errorf("request failed: %w", err), Transient: true}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500:
		return &SendError{Err: fmt.Errorf("platform returned %d", resp.StatusCode), Transient: true}
	default:
		return &SendError{Err: fmt.Errorf("platform rejected event: %d", resp.StatusCode), Transient: false}
	}
}
