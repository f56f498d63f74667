// ABOUTME: Reply cleanup pipeline applied to accumulated model output
// ABOUTME: Idempotent pattern removals safe to re-run on every streamed partial
package proxy

import (
	"regexp"
	"strings"
)

// The model keeps opening with this phrase no matter how the prompt discourages
// it, and it leaks prompt scaffolding lines under some providers. Each pattern
// removal is idempotent so the pipeline can run on every partial emission.
var (
	greetingPattern  = regexp.MustCompile(`(?i)it'?s so wonderful to hear from you again!?\s*`)
	scaffoldPattern  = regexp.MustCompile(`(?im)^[ \t]*(SYSTEM PROMPT:|interaction hint:|topics:).*$\n?`)
	separatorPattern = regexp.MustCompile(`(?m)^[ \t]*([-*_]){3,}[ \t]*$\n?`)
	runsOfNewlines   = regexp.MustCompile(`\n{3,}`)
)

// CleanReply strips known noise from raw model output: the repetitive
// greeting, leaked prompt scaffolding, horizontal-rule separators, and runs of
// blank lines. CleanReply(CleanReply(x)) == CleanReply(x).
func CleanReply(text string) string {
	text = greetingPattern.ReplaceAllString(text, "")
	text = scaffoldPattern.ReplaceAllString(text, "")
	text = separatorPattern.ReplaceAllString(text, "")
	text = runsOfNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
