// ABOUTME: Persona prompt templates and pure string rendering
// ABOUTME: Immutable lookup table substituted with child name, age, and style hints
package prompts

import (
	"strings"
)

// StyleHintPlaceholder is replaced with the requested chunk's style hint
const StyleHintPlaceholder = "{{styleHint}}"

// personas maps a parent persona identifier to its base system prompt. The
// table is package-private and never mutated after init; unknown identifiers
// fall back to the "parent" entry.
var personas = map[string]string{
	"mom": `You are writing as a warm, loving mother to {{childName}}, who is {{childAge}} years old.
You speak gently and playfully, the way a mother does at bedtime.
interaction hint: {{styleHint}}
Keep every reply age-appropriate, kind, and full of warmth.`,

	"dad": `You are writing as a proud, playful father to {{childName}}, who is {{childAge}} years old.
You love small jokes and you always end on an encouraging note.
interaction hint: {{styleHint}}
Keep every reply age-appropriate, kind, and full of warmth.`,

	"grandma": `You are writing as a tender grandmother to {{childName}}, who is {{childAge}} years old.
You tell little stories from long ago and you always sound delighted to hear from them.
interaction hint: {{styleHint}}
Keep every reply age-appropriate, kind, and full of warmth.`,

	"grandpa": `You are writing as a gentle grandfather to {{childName}}, who is {{childAge}} years old.
You are patient, a little mischievous, and endlessly proud of them.
interaction hint: {{styleHint}}
Keep every reply age-appropriate, kind, and full of warmth.`,

	"parent": `You are writing as a loving parent to {{childName}}, who is {{childAge}} years old.
You are warm, curious about their day, and always encouraging.
interaction hint: {{styleHint}}
Keep every reply age-appropriate, kind, and full of warmth.`,
}

// quoteCategories is the allow-list of category tags for children-based quotes
var quoteCategories = map[string]bool{
	"funny":   true,
	"sweet":   true,
	"kind":    true,
	"clever":  true,
	"curious": true,
	"brave":   true,
}

// ChildQuote is a quote attributed to the child, tagged with a category
type ChildQuote struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// Render returns the persona base prompt with child name and age substituted.
// Unknown parent types use the generic parent persona; empty fields get
// neutral fallbacks so the template never leaks raw placeholders.
func Render(parentType, childName, childAge string) string {
	tmpl, ok := personas[strings.ToLower(strings.TrimSpace(parentType))]
	if !ok {
		tmpl = personas["parent"]
	}
	if childName == "" {
		childName = "little one"
	}
	if childAge == "" {
		childAge = "a few"
	}
	out := strings.ReplaceAll(tmpl, "{{childName}}", childName)
	out = strings.ReplaceAll(out, "{{childAge}}", childAge)
	return out
}

// WithStyleHint substitutes the style hint placeholder. An empty hint removes
// the placeholder line rather than leaving scaffolding in the prompt.
func WithStyleHint(prompt, hint string) string {
	if hint != "" {
		return strings.ReplaceAll(prompt, StyleHintPlaceholder, hint)
	}
	var kept []string
	for _, line := range strings.Split(prompt, "\n") {
		if strings.Contains(line, StyleHintPlaceholder) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// FilterChildrenQuotes keeps only quotes whose category is allow-listed
func FilterChildrenQuotes(quotes []ChildQuote) []ChildQuote {
	var out []ChildQuote
	for _, q := range quotes {
		if q.Text == "" {
			continue
		}
		if quoteCategories[strings.ToLower(q.Category)] {
			out = append(out, q)
		}
	}
	return out
}

// QuoteBlock builds the prompt section carrying filtered children quotes and
// verbatim loving-inspiration quotes. Returns "" when both lists are empty.
func QuoteBlock(children []ChildQuote, loving []string) string {
	var b strings.Builder

	filtered := FilterChildrenQuotes(children)
	if len(filtered) > 0 {
		b.WriteString("\nThings the child has actually said, to echo naturally:\n")
		for _, q := range filtered {
			b.WriteString("- \"")
			b.WriteString(q.Text)
			b.WriteString("\"\n")
		}
	}

	if len(loving) > 0 {
		b.WriteString("\nLoving inspiration to draw on:\n")
		for _, q := range loving {
			if q == "" {
				continue
			}
			b.WriteString("- ")
			b.WriteString(q)
			b.WriteString("\n")
		}
	}

	return b.String()
}
