// ABOUTME: Tests for the reply cleanup pipeline
// ABOUTME: Verifies each pattern removal and idempotency over sampled inputs
package proxy

import (
	"testing"
)

func TestCleanReply(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips the repetitive greeting",
			in:   "It's so wonderful to hear from you again! Let me tell you a story.",
			want: "Let me tell you a story.",
		},
		{
			name: "greeting matches without apostrophe",
			in:   "Its so wonderful to hear from you again! Hello.",
			want: "Hello.",
		},
		{
			name: "strips leaked system prompt line",
			in:   "SYSTEM PROMPT: be warm\nDear Astrid, good morning.",
			want: "Dear Astrid, good morning.",
		},
		{
			name: "strips interaction hint line",
			in:   "Dear one,\ninteraction hint: excited about snow\nit snowed today!",
			want: "Dear one,\nit snowed today!",
		},
		{
			name: "strips topics line",
			in:   "topics: bicycles, dragons\nOnce upon a time.",
			want: "Once upon a time.",
		},
		{
			name: "strips separator lines",
			in:   "part one\n---\npart two\n*****\npart three",
			want: "part one\npart two\npart three",
		},
		{
			name: "collapses newline runs",
			in:   "first\n\n\n\nsecond",
			want: "first\n\nsecond",
		},
		{
			name: "trims surrounding whitespace",
			in:   "  \n hello \n ",
			want: "hello",
		},
		{
			name: "clean text unchanged",
			in:   "Dear Astrid,\n\nwhat a lovely day.",
			want: "Dear Astrid,\n\nwhat a lovely day.",
		},
		{
			name: "empty input",
			in:   "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanReply(tt.in); got != tt.want {
				t.Errorf("CleanReply(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCleanReply_Idempotent(t *testing.T) {
	samples := []string{
		"It's so wonderful to hear from you again! Hi there.",
		"SYSTEM PROMPT: x\ninteraction hint: y\ntopics: z\nbody text",
		"a\n\n\n\n\nb\n---\nc",
		"plain text with no noise at all",
		"",
		"  whitespace  everywhere \n\n\n ",
	}

	for _, s := range samples {
		once := CleanReply(s)
		twice := CleanReply(once)
		if once != twice {
			t.Errorf("CleanReply not idempotent for %q: first %q, second %q", s, once, twice)
		}
	}
}

func TestCleanReply_PartialStreamSafety(t *testing.T) {
	// The pipeline runs on every partial accumulation; growing prefixes of a
	// noisy reply must never panic and must stay clean
	full := "It's so wonderful to hear from you again! Dear one,\n---\nthe story continues."
	for i := 0; i <= len(full); i++ {
		got := CleanReply(full[:i])
		if got != CleanReply(got) {
			t.Errorf("prefix %d not idempotent", i)
		}
	}
}
