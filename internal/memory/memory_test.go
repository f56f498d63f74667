// ABOUTME: Tests for conversation memory updates and persistence
// ABOUTME: Verifies the 20-message bound, summary cadence, and load/save cycle
package memory

import (
	"fmt"
	"strings"
	"testing"

	"github.com/harper/letterstream/internal/kv"
)

func TestUpdate_FreshSession(t *testing.T) {
	m := Update(nil, []Message{
		{Role: "user", Content: "hello"},
		{Role: "assistant", Content: "hi there"},
	})

	if m.TotalMessages != 2 {
		t.Errorf("TotalMessages = %d, want 2", m.TotalMessages)
	}
	if len(m.RecentMessages) != 2 {
		t.Errorf("RecentMessages = %d, want 2", len(m.RecentMessages))
	}
	if m.Summary != "" {
		t.Errorf("Summary = %q, want empty for a short conversation", m.Summary)
	}
}

func TestUpdate_WindowBound(t *testing.T) {
	var m *Memory
	// 25 messages across repeated turns
	for i := 0; i < 25; i++ {
		m = Update(m, []Message{{Role: "user", Content: fmt.Sprintf("message %d", i)}})
	}

	if len(m.RecentMessages) > MaxRecentMessages {
		t.Errorf("RecentMessages = %d, want <= %d", len(m.RecentMessages), MaxRecentMessages)
	}
	if m.TotalMessages != 25 {
		t.Errorf("TotalMessages = %d, want 25", m.TotalMessages)
	}
	// Newest-last: the final message survives, the oldest are gone
	last := m.RecentMessages[len(m.RecentMessages)-1]
	if last.Content != "message 24" {
		t.Errorf("newest message = %q, want message 24", last.Content)
	}
	first := m.RecentMessages[0]
	if first.Content != "message 5" {
		t.Errorf("oldest kept message = %q, want message 5", first.Content)
	}
}

func TestUpdate_SummaryCadence(t *testing.T) {
	var m *Memory
	for i := 1; i <= 22; i++ {
		m = Update(m, []Message{{Role: "user", Content: fmt.Sprintf("turn %d", i)}})

		wantSummary := i > 10 && i%5 == 0
		hasSummary := m.Summary != ""
		if wantSummary && !hasSummary {
			t.Errorf("after %d messages: summary missing", i)
		}
		// A summary, once generated, persists until the next regeneration
		if i < 11 && hasSummary {
			t.Errorf("after %d messages: premature summary %q", i, m.Summary)
		}
	}

	if !strings.Contains(m.Summary, "20 messages") {
		t.Errorf("summary should reflect the last regeneration point, got %q", m.Summary)
	}
}

func TestUpdate_SummaryMentionsUserThemes(t *testing.T) {
	var m *Memory
	for i := 0; i < 14; i++ {
		m = Update(m, []Message{{Role: "user", Content: "the dragon in my book"}})
	}
	m = Update(m, []Message{{Role: "user", Content: "my new red bicycle"}})

	if !strings.Contains(m.Summary, "my new red bicycle") {
		t.Errorf("summary should mention recent user content, got %q", m.Summary)
	}
}

func TestLastN(t *testing.T) {
	m := Update(nil, []Message{
		{Role: "user", Content: "a"},
		{Role: "assistant", Content: "b"},
		{Role: "user", Content: "c"},
	})

	got := m.LastN(2)
	if len(got) != 2 || got[0].Content != "b" || got[1].Content != "c" {
		t.Errorf("LastN(2) = %+v", got)
	}
	if got := m.LastN(10); len(got) != 3 {
		t.Errorf("LastN(10) = %d messages, want 3", len(got))
	}
	var nilMem *Memory
	if got := nilMem.LastN(5); got != nil {
		t.Errorf("LastN on nil memory = %+v, want nil", got)
	}
}

func TestStore_LoadSave(t *testing.T) {
	store := NewStore(kv.NewMemStore())

	got, err := store.Load("s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Load() on fresh session = %+v, want nil", got)
	}

	m := Update(nil, []Message{{Role: "user", Content: "hello"}})
	if err := store.Save("s1", m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err = store.Load("s1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil || got.TotalMessages != 1 {
		t.Fatalf("Load() = %+v, want 1 message", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Error("Save() should stamp UpdatedAt")
	}

	// Sessions are isolated
	other, err := store.Load("s2")
	if err != nil || other != nil {
		t.Errorf("Load(s2) = %+v, %v; want nil, nil", other, err)
	}
}
