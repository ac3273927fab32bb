package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/clearfunnel/attribution-engine/internal/config"
	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// Client calls a remote scoring service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a new scoring oracle client.
func NewClient(cfg config.Oracle, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		log: log,
	}
}

type scoreRequest struct {
	EventID   string  `json:"event_id"`
	SSIID     string  `json:"ssi_id"`
	EventName string  `json:"event_name"`
	Value     float64 `json:"value,omitempty"`
	Timestamp int64   `json:"timestamp"`
}

type scoreResponse struct {
	Fraud            float64 `json:"fraud"`
	LTVSegment       string  `json:"ltv_segment"`
	ChurnRisk        string  `json:"churn_risk"`
	Propensity       string  `json:"propensity"`
	HasPriorPurchase bool    `json:"has_prior_purchase"`
}

// Score requests fraud and ML signals for an event. Any transport or
// decoding failure is reported as ErrOracleUnavailable.
func (c *Client) Score(ctx context.Context, event *domain.ConversionEvent) (*Signal, error) {
	body, err := json.Marshal(scoreRequest{
		EventID:   event.EventID,
		SSIID:     event.SSIID,
		EventName: string(event.Name),
		Value:     event.Value,
		Timestamp: event.Timestamp.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/score", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Scoring oracle request failed",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warn("Scoring oracle returned non-OK status",
			zap.String("event_id", event.EventID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", domain.ErrOracleUnavailable, resp.StatusCode)
	}

	var sr scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrOracleUnavailable, err)
	}

	return &Signal{
		Fraud: sr.Fraud,
		Signals: domain.MLSignals{
			LTVSegment:       domain.LTVSegment(sr.LTVSegment),
			ChurnRisk:        domain.ChurnRisk(sr.ChurnRisk),
			Propensity:       domain.Propensity(sr.Propensity),
			HasPriorPurchase: sr.HasPriorPurchase,
		},
	}, nil
}
