// ABOUTME: Per-session conversation memory with rolling window and summary
// ABOUTME: Load/Update/Save over the durable KV store, last-writer-wins
package memory

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harper/letterstream/internal/kv"
)

const (
	// MaxRecentMessages bounds the rolling window; oldest are dropped
	MaxRecentMessages = 20
	// summaryMinMessages: summaries only start once the conversation has depth
	summaryMinMessages = 10
	// summaryCadence: regenerate every Nth message past the minimum
	summaryCadence = 5
)

// Message is one conversation turn
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Memory is the per-session conversation state
type Memory struct {
	Summary        string    `json:"summary"`
	RecentMessages []Message `json:"recentMessages"`
	TotalMessages  int       `json:"totalMessages"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Store persists conversation memory per session
type Store struct {
	kv kv.Store
}

// NewStore creates a memory store over the given KV backend
func NewStore(store kv.Store) *Store {
	return &Store{kv: store}
}

// Load returns the session's memory, or nil when the session has none yet
func (s *Store) Load(sessionID string) (*Memory, error) {
	data, err := s.kv.Get(kv.MemoryKey(sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to load memory for %s: %w", sessionID, err)
	}
	if data == nil {
		return nil, nil
	}
	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("corrupt memory for %s: %w", sessionID, err)
	}
	return &m, nil
}

// Save persists memory unconditionally. Concurrent saves for one session are
// last-writer-wins; there is no version token.
func (s *Store) Save(sessionID string, m *Memory) error {
	m.UpdatedAt = time.Now()
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}
	if err := s.kv.Set(kv.MemoryKey(sessionID), data); err != nil {
		return fmt.Errorf("failed to save memory for %s: %w", sessionID, err)
	}
	return nil
}

// Update appends newMessages to the memory (nil means a fresh session),
// truncates the window to the newest MaxRecentMessages, bumps the total, and
// regenerates the summary on cadence. Pure with respect to storage.
func Update(m *Memory, newMessages []Message) *Memory {
	next := &Memory{}
	if m != nil {
		next.Summary = m.Summary
		next.RecentMessages = append(next.RecentMessages, m.RecentMessages...)
		next.TotalMessages = m.TotalMessages
	}

	next.RecentMessages = append(next.RecentMessages, newMessages...)
	next.TotalMessages += len(newMessages)

	if len(next.RecentMessages) > MaxRecentMessages {
		next.RecentMessages = next.RecentMessages[len(next.RecentMessages)-MaxRecentMessages:]
	}

	if next.TotalMessages > summaryMinMessages && next.TotalMessages%summaryCadence == 0 {
		next.Summary = summarize(next)
	}

	return next
}

// LastN returns the newest n messages of the rolling window
func (m *Memory) LastN(n int) []Message {
	if m == nil || n <= 0 {
		return nil
	}
	if len(m.RecentMessages) <= n {
		return m.RecentMessages
	}
	return m.RecentMessages[len(m.RecentMessages)-n:]
}

// summarize builds the deterministic placeholder summary: a count plus the
// leading words of the most recent user turns. An LLM-backed summarizer could
// replace this without changing the cadence contract.
func summarize(m *Memory) string {
	var themes []string
	for i := len(m.RecentMessages) - 1; i >= 0 && len(themes) < 3; i-- {
		msg := m.RecentMessages[i]
		if msg.Role != "user" {
			continue
		}
		words := strings.Fields(msg.Content)
		if len(words) > 8 {
			words = words[:8]
		}
		if len(words) == 0 {
			continue
		}
		themes = append(themes, strings.Join(words, " "))
	}

	summary := fmt.Sprintf("The conversation so far spans %d messages.", m.TotalMessages)
	if len(themes) > 0 {
		summary += " Recently the child talked about: " + strings.Join(themes, "; ") + "."
	}
	return summary
}
