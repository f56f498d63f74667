// ABOUTME: Tests for the audit store
// ABOUTME: Verifies usage/moderation inserts, nil-store safety, and recent queries
package audit

import (
	"testing"
	"time"
)

func TestNilStore_IsSafe(t *testing.T) {
	var s *Store

	if err := s.RecordUsage(UsageRecord{SessionID: "s1"}); err != nil {
		t.Errorf("nil store RecordUsage() error = %v", err)
	}
	if err := s.RecordModeration(ModerationRecord{SessionID: "s1"}); err != nil {
		t.Errorf("nil store RecordModeration() error = %v", err)
	}
	if _, err := s.RecentUsage(5); err != nil {
		t.Errorf("nil store RecentUsage() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store Close() error = %v", err)
	}
}

func TestRecordUsage(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer s.Close()

	rec := UsageRecord{
		SessionID:        "s1",
		Mode:             "letter",
		Model:            "gpt-4o-mini",
		PromptTokens:     120,
		CompletionTokens: 80,
		Status:           "success",
		ResponseTimeMs:   450,
	}
	if err := s.RecordUsage(rec); err != nil {
		t.Fatalf("RecordUsage() error = %v", err)
	}

	got, err := s.RecentUsage(10)
	if err != nil {
		t.Fatalf("RecentUsage() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("RecentUsage() returned %d rows, want 1", len(got))
	}
	if got[0].ID == "" {
		t.Error("RecordUsage() should assign an ID")
	}
	if got[0].Mode != "letter" || got[0].CompletionTokens != 80 {
		t.Errorf("row = %+v", got[0])
	}
	if got[0].Cached {
		t.Error("Cached should default to false")
	}
}

func TestRecentUsage_OrderAndLimit(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.RecordUsage(UsageRecord{
			SessionID: "s1",
			Mode:      "chat",
			Model:     "m",
			Status:    "success",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordUsage() error = %v", err)
		}
	}

	got, err := s.RecentUsage(3)
	if err != nil {
		t.Fatalf("RecentUsage() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("RecentUsage(3) returned %d rows", len(got))
	}
	if !got[0].CreatedAt.After(got[2].CreatedAt) {
		t.Errorf("rows not newest-first: %v then %v", got[0].CreatedAt, got[2].CreatedAt)
	}
}

func TestRecordModeration(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	defer s.Close()

	rec := ModerationRecord{
		SessionID:   "s1",
		ContentType: "chat",
		Approved:    false,
		Reason:      "contains blocked term: hate",
		Excerpt:     "I **** mondays",
	}
	if err := s.RecordModeration(rec); err != nil {
		t.Fatalf("RecordModeration() error = %v", err)
	}

	var count int
	row := s.conn.QueryRow(`SELECT COUNT(*) FROM moderation_log WHERE approved = 0`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan error = %v", err)
	}
	if count != 1 {
		t.Errorf("moderation_log rejected rows = %d, want 1", count)
	}
}
