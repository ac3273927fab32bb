package consumer

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/clearfunnel/attribution-engine/internal/domain"
)

// MessageParser parses raw message bytes into a conversion event.
type MessageParser interface {
	Parse(body []byte) (*domain.ConversionEvent, error)
}

// JSONEventParser implements MessageParser for JSON-formatted conversion
// event messages.
type JSONEventParser struct{}

// NewJSONEventParser creates a new JSON event parser.
func NewJSONEventParser() *JSONEventParser {
	return &JSONEventParser{}
}

type eventMessage struct {
	EventID   string  `json:"event_id"`
	SSIID     string  `json:"ssi_id"`
	EventName string  `json:"event_name"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
}

// Parse parses a JSON message body into a ConversionEvent. The event name
// must come from the closed set; unknown names are rejected here so the
// message can be discarded instead of redelivered forever.
func (p *JSONEventParser) Parse(body []byte) (*domain.ConversionEvent, error) {
	var msg eventMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	name, err := domain.ParseEventName(msg.EventName)
	if err != nil {
		return nil, err
	}
	if msg.Timestamp == 0 {
		return nil, fmt.Errorf("%w: missing timestamp", domain.ErrInvalidEvent)
	}

	return &domain.ConversionEvent{
		EventID:   msg.EventID,
		SSIID:     msg.SSIID,
		Name:      name,
		Value:     msg.Value,
		Timestamp: time.Unix(msg.Timestamp, 0).UTC(),
	}, nil
}
