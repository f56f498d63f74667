// ABOUTME: Rule-based content moderation for generated text spans
// ABOUTME: Pure classifier plus an independent sanitizer transform
package moderation

import (
	"strings"
)

// ContentType selects the length ceiling and whether the positivity rule applies
type ContentType string

const (
	TypeLetter  ContentType = "letter"
	TypeChat    ContentType = "chat"
	TypeBody    ContentType = "body"
	TypeTitle   ContentType = "title"
	TypeGeneral ContentType = "general"
)

// Verdict is the ephemeral result of moderating one finished text span
type Verdict struct {
	Approved         bool   `json:"approved"`
	Reason           string `json:"reason,omitempty"`
	ModeratedContent string `json:"moderatedContent"`
	OriginalContent  string `json:"originalContent"`
}

// denylist is matched case-insensitively as substrings, not word boundaries.
// Deliberately over-broad: "skill" trips on "kill". Fail closed.
var denylist = []string{
	"kill", "hate", "stupid", "dumb", "hurt", "weapon",
	"blood", "scary", "nightmare", "curse", "punish", "ugly",
}

// positiveWords is the allow-list used for the positivity density rule
var positiveWords = []string{
	"love", "happy", "wonderful", "magic", "dear", "smile",
	"proud", "fun", "joy", "sweet", "hug", "brave",
	"kind", "special", "beautiful", "friend", "warm", "together",
}

// positivityExemptWords: texts shorter than this many words skip the density rule
const positivityExemptWords = 10

// maxLength returns the per-type length ceiling in characters
func maxLength(contentType ContentType) int {
	switch contentType {
	case TypeTitle:
		return 100
	case TypeChat:
		return 200
	default:
		return 500
	}
}

// Moderate classifies a finished text span. Any violated rule rejects the
// whole span with an empty moderated fallback; sanitization is deliberately
// not applied here (see Sanitize).
func Moderate(text string, contentType ContentType) Verdict {
	v := Verdict{OriginalContent: text, ModeratedContent: ""}

	if strings.TrimSpace(text) == "" {
		v.Reason = "empty content"
		return v
	}

	lower := strings.ToLower(text)
	for _, banned := range denylist {
		if strings.Contains(lower, banned) {
			v.Reason = "contains blocked term: " + banned
			return v
		}
	}

	words := strings.Fields(text)
	if contentType == TypeChat || contentType == TypeBody {
		if len(words) >= positivityExemptWords {
			// At least one positive word per 40 words of text
			required := (len(words) + 39) / 40
			if positiveCount(lower) < required {
				v.Reason = "insufficient positive tone"
				return v
			}
		}
	}

	if len(text) > maxLength(contentType) {
		v.Reason = "exceeds length limit"
		return v
	}

	v.Approved = true
	v.ModeratedContent = text
	return v
}

// ContainsBlockedTerm reports whether text trips the denylist. The streaming
// path screens every partial emission with this before the full verdict runs
// at the terminal event, so blocked text never reaches the client mid-stream.
func ContainsBlockedTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, banned := range denylist {
		if strings.Contains(lower, banned) {
			return true
		}
	}
	return false
}

// positiveCount counts allow-listed words appearing in the lowered text
func positiveCount(lower string) int {
	n := 0
	for _, w := range positiveWords {
		n += strings.Count(lower, w)
	}
	return n
}

// Sanitize masks denylisted substrings with asterisks. It is not wired into
// the moderation gate; the gate rejects to empty. Used for audit excerpts and
// available to callers that prefer masked text.
func Sanitize(text string) string {
	out := text
	for _, banned := range denylist {
		idx := 0
		lower := strings.ToLower(out)
		for {
			i := strings.Index(lower[idx:], banned)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(banned)
			out = out[:start] + strings.Repeat("*", len(banned)) + out[end:]
			lower = strings.ToLower(out)
			idx = end
		}
	}
	return out
}

// Excerpt returns a sanitized snippet of at most n runes for audit rows
func Excerpt(text string, n int) string {
	s := Sanitize(text)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
