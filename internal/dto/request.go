package dto

// IngestEventRequest represents a raw conversion event submission.
// ssi_id is optional on the wire; events without it take a trust penalty
// rather than a validation error.
type IngestEventRequest struct {
	EventID   string  `json:"event_id"`
	SSIID     string  `json:"ssi_id"`
	EventName string  `json:"event_name" binding:"required"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp" binding:"required"`
}

// IngestEventsBulkRequest represents a bulk event submission. Bulk events
// are queued for asynchronous processing.
type IngestEventsBulkRequest struct {
	Events []IngestEventRequest `json:"events" binding:"required,min=1,max=1000,dive"`
}

// RangeRequest parameterizes the aggregate query endpoints by date range
// with optional platform and event-type filters.
type RangeRequest struct {
	From      int64  `form:"from" binding:"required"`
	To        int64  `form:"to" binding:"required"`
	Platform  string `form:"platform"`
	EventName string `form:"event_name"`
}

// RecentEventsRequest parameterizes the recent-events query.
type RecentEventsRequest struct {
	Limit int `form:"limit"`
}
