// ABOUTME: Per-session narrative chunk cursor over the durable KV store
// ABOUTME: Tracks the last revealed chunk and computes the next expected one
package progress

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harper/letterstream/internal/kv"
)

// Progress records how far into the letter a session has read
type Progress struct {
	LastChunk   int       `json:"lastChunk"`
	TotalChunks int       `json:"totalChunks"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Tracker persists chunk progress per session
type Tracker struct {
	kv kv.Store
}

// NewTracker creates a tracker over the given KV backend
func NewTracker(store kv.Store) *Tracker {
	return &Tracker{kv: store}
}

// Load returns the session's progress, or nil when none has been recorded
func (t *Tracker) Load(sessionID string) (*Progress, error) {
	data, err := t.kv.Get(kv.ProgressKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load progress for %s: %w", sessionID, err)
	}
	if data == nil {
		return nil, nil
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("corrupt progress for %s: %w", sessionID, err)
	}
	return &p, nil
}

// Save overwrites the session's cursor unconditionally. The orchestrator only
// calls this after verifying the chunk was the expected one; the ordering
// invariant lives at the gate, not here.
func (t *Tracker) Save(sessionID string, chunkNumber, totalChunks int) error {
	p := Progress{
		LastChunk:   chunkNumber,
		TotalChunks: totalChunks,
		UpdatedAt:   time.Now(),
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := t.kv.Set(kv.ProgressKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", sessionID, err)
	}
	return nil
}

// Reset removes a session's cursor (operator action)
func (t *Tracker) Reset(sessionID string) error {
	if err := t.kv.Delete(kv.ProgressKey(sessionID)); err != nil {
		return fmt.Errorf("failed to reset progress for %s: %w", sessionID, err)
	}
	return nil
}

// NextExpected returns the chunk number the session may request next: one
// past the cursor, clamped to totalChunks, or 1 for a fresh session.
func NextExpected(p *Progress, totalChunks int) int {
	next := 1
	if p != nil {
		next = p.LastChunk + 1
	}
	if totalChunks > 0 && next > totalChunks {
		next = totalChunks
	}
	if next < 1 {
		next = 1
	}
	return next
}
