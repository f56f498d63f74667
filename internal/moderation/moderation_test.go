// ABOUTME: Tests for the moderation classifier and sanitizer
// ABOUTME: Covers denylist substrings, positivity density, and length ceilings
package moderation

import (
	"strings"
	"testing"
)

func TestModerate(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		contentType ContentType
		wantOK      bool
		wantReason  string
	}{
		{
			name:        "approved letter text",
			text:        "My dear Astrid, what a wonderful day we had together!",
			contentType: TypeLetter,
			wantOK:      true,
		},
		{
			name:        "empty text rejected",
			text:        "   ",
			contentType: TypeChat,
			wantOK:      false,
			wantReason:  "empty content",
		},
		{
			name:        "denylist substring rejected",
			text:        "You did a great job, now go kill it at school!",
			contentType: TypeChat,
			wantOK:      false,
			wantReason:  "contains blocked term: kill",
		},
		{
			name:        "denylist is case-insensitive",
			text:        "That was SCARY fun",
			contentType: TypeChat,
			wantOK:      false,
		},
		{
			name:        "denylist matches inside words",
			text:        "What a skillful drawing",
			contentType: TypeTitle,
			wantOK:      false,
		},
		{
			name:        "short chat exempt from positivity",
			text:        "See you tomorrow then",
			contentType: TypeChat,
			wantOK:      true,
		},
		{
			name:        "long chat without positive words rejected",
			text:        "the weather report said there would be rain on tuesday and wednesday this week",
			contentType: TypeChat,
			wantOK:      false,
			wantReason:  "insufficient positive tone",
		},
		{
			name:        "long chat with positive words approved",
			text:        "I am so happy you told me about your wonderful day at school today, sweet child",
			contentType: TypeChat,
			wantOK:      true,
		},
		{
			name:        "letter exempt from positivity rule",
			text:        "the weather report said there would be rain on tuesday and wednesday this week",
			contentType: TypeLetter,
			wantOK:      true,
		},
		{
			name:        "title over 100 chars rejected",
			text:        strings.Repeat("a", 101),
			contentType: TypeTitle,
			wantOK:      false,
			wantReason:  "exceeds length limit",
		},
		{
			name:        "chat over 200 chars rejected",
			text:        "happy " + strings.Repeat("a", 200),
			contentType: TypeChat,
			wantOK:      false,
			wantReason:  "exceeds length limit",
		},
		{
			name:        "letter under 500 chars approved",
			text:        "dear one, " + strings.Repeat("la ", 100),
			contentType: TypeLetter,
			wantOK:      true,
		},
		{
			name:        "general over 500 chars rejected",
			text:        strings.Repeat("b", 501),
			contentType: TypeGeneral,
			wantOK:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Moderate(tt.text, tt.contentType)
			if v.Approved != tt.wantOK {
				t.Fatalf("Moderate() approved = %v, want %v (reason %q)", v.Approved, tt.wantOK, v.Reason)
			}
			if tt.wantReason != "" && v.Reason != tt.wantReason {
				t.Errorf("Moderate() reason = %q, want %q", v.Reason, tt.wantReason)
			}
			if !v.Approved && v.ModeratedContent != "" {
				t.Errorf("rejected verdict must carry empty moderated content, got %q", v.ModeratedContent)
			}
			if v.Approved && v.ModeratedContent != tt.text {
				t.Errorf("approved verdict must carry the original text")
			}
			if v.OriginalContent != tt.text {
				t.Errorf("verdict must preserve the original text")
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "masks a blocked term",
			in:   "do not hurt the cat",
			want: "do not **** the cat",
		},
		{
			name: "masks mixed case",
			in:   "that was Scary",
			want: "that was *****",
		},
		{
			name: "masks multiple occurrences",
			in:   "hate hate",
			want: "**** ****",
		},
		{
			name: "clean text unchanged",
			in:   "what a lovely morning",
			want: "what a lovely morning",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	got := Excerpt("a very hurtful and long sentence about nothing much at all", 20)
	if len([]rune(got)) > 20 {
		t.Errorf("Excerpt() too long: %q", got)
	}
	if strings.Contains(got, "hurt") {
		t.Errorf("Excerpt() must be sanitized: %q", got)
	}
}
