package pipeline

import (
	"sync"
	"time"
)

// cleanupInterval is how often idle ssi_id entries are evicted.
const cleanupInterval = time.Minute

// HistoryTracker keeps the recent event timestamps per ssi_id used by the
// trust evaluator's velocity checks. Entries outside the rate-limit window
// are pruned on write, and idle identifiers are evicted by a background
// sweep so memory tracks active users, not all users ever seen.
type HistoryTracker struct {
	window  time.Duration
	mu      sync.RWMutex
	entries map[string][]time.Time
	stop    chan struct{}
}

// NewHistoryTracker creates a tracker for the given rate-limit window and
// starts its cleanup goroutine.
func NewHistoryTracker(window time.Duration) *HistoryTracker {
	h := &HistoryTracker{
		window:  window,
		entries: make(map[string][]time.Time),
		stop:    make(chan struct{}),
	}
	go h.cleanup()
	return h
}

// Recent returns a copy of the timestamps recorded for ssiID.
func (h *HistoryTracker) Recent(ssiID string) []time.Time {
	if ssiID == "" {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	stored := h.entries[ssiID]
	if len(stored) == 0 {
		return nil
	}
	out := make([]time.Time, len(stored))
	copy(out, stored)
	return out
}

// Record appends an event timestamp for ssiID, pruning entries that fell
// out of the window.
func (h *HistoryTracker) Record(ssiID string, ts time.Time) {
	if ssiID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	cutoff := ts.Add(-h.window)
	kept := h.entries[ssiID][:0]
	for _, t := range h.entries[ssiID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	h.entries[ssiID] = append(kept, ts)
}

// Stop stops the cleanup goroutine.
func (h *HistoryTracker) Stop() {
	close(h.stop)
}

func (h *HistoryTracker) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * h.window)
			h.mu.Lock()
			for id, stored := range h.entries {
				if len(stored) == 0 || !stored[len(stored)-1].After(cutoff) {
					delete(h.entries, id)
				}
			}
			h.mu.Unlock()
		case <-h.stop:
			return
		}
	}
}
