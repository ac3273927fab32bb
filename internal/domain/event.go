package domain

import (
	"fmt"
	"time"
)

// EventName is the closed set of conversion event types the engine accepts.
type EventName string

const (
	EventPageView             EventName = "pageview"
	EventViewContent          EventName = "view_content"
	EventAddToCart            EventName = "add_to_cart"
	EventInitiateCheckout     EventName = "initiate_checkout"
	EventPurchase             EventName = "purchase"
	EventLead                 EventName = "lead"
	EventCompleteRegistration EventName = "complete_registration"
)

// FunnelOrder lists the funnel stages from widest to narrowest.
var FunnelOrder = []EventName{
	EventPageView,
	EventViewContent,
	EventAddToCart,
	EventInitiateCheckout,
	EventPurchase,
}

// AllEventNames lists every accepted event name.
var AllEventNames = []EventName{
	EventPageView,
	EventViewContent,
	EventAddToCart,
	EventInitiateCheckout,
	EventPurchase,
	EventLead,
	EventCompleteRegistration,
}

// ParseEventName validates a raw event name against the closed set.
func ParseEventName(s string) (EventName, error) {
	for _, name := range AllEventNames {
		if s == string(name) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: unknown event name %q", ErrInvalidEvent, s)
}

// ConversionEvent is a raw conversion or pageview event entering the engine.
// Immutable once created.
type ConversionEvent struct {
	EventID   string
	SSIID     string
	Name      EventName
	Value     float64
	Timestamp time.Time
}

// Validate checks the required fields of an incoming event. The event name
// must come from the closed set, and the ssi_id and timestamp must be set.
func (e *ConversionEvent) Validate() error {
	if _, err := ParseEventName(string(e.Name)); err != nil {
		return err
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEvent)
	}
	return nil
}
