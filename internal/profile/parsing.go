package profile

import (
	"regexp"
	"strings"

	"github.com/draftflow/draftflow/internal/workflow"
)

// Responses use lightweight tag markup. File blocks carry content destined
// for the iteration directory; a verdict tag carries the review outcome.
//
//	<file path="draft.md">
//	...content...
//	</file>
//	<verdict>pass</verdict>
var (
	fileBlockRe = regexp.MustCompile(`(?s)<file\s+path="([^"]+)"\s*>\n?(.*?)\n?</file>`)
	verdictRe   = regexp.MustCompile(`(?s)<verdict>\s*(.*?)\s*</verdict>`)
	summaryRe   = regexp.MustCompile(`(?s)<summary>\s*(.*?)\s*</summary>`)
)

// extractWritePlan collects the file blocks of a response, in order of
// appearance. A response without file blocks yields a nil plan.
func extractWritePlan(content string) []workflow.FileWrite {
	matches := fileBlockRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	plan := make([]workflow.FileWrite, 0, len(matches))
	for _, m := range matches {
		plan = append(plan, workflow.FileWrite{
			Path:    strings.TrimSpace(m[1]),
			Content: []byte(m[2]),
		})
	}
	return plan
}

// extractVerdict parses the verdict tag of a review response. The second
// return is false when no recognizable verdict is present.
func extractVerdict(content string) (Verdict, bool) {
	m := verdictRe.FindStringSubmatch(content)
	if m == nil {
		return VerdictNone, false
	}

	switch strings.ToLower(strings.TrimSpace(m[1])) {
	case "pass", "approved", "accept":
		return VerdictPass, true
	case "fail", "rejected", "revise":
		return VerdictFail, true
	}
	return VerdictNone, false
}

// extractSummary returns the summary tag content, or a truncated first
// line as a fallback.
func extractSummary(content string) string {
	if m := summaryRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	line := content
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimSpace(line)
	if len(line) > 120 {
		line = line[:117] + "..."
	}
	return line
}
