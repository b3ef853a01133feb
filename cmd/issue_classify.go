package cmd

import (
	"strings"

	"github.com/joescharf/issuedash/internal/models"
)

// classifyIssuePriority infers the issue priority from the title using keyword
// heuristics. High keywords are checked before low keywords. Defaults to Medium.
func classifyIssuePriority(title string) models.IssuePriority {
	lower := strings.ToLower(title)

	highKeywords := []string{
		"critical", "urgent", "blocker", "crash", "security",
		"data loss", "production down", "p0", "p1",
	}
	for _, kw := range highKeywords {
		if strings.Contains(lower, kw) {
			return models.IssuePriorityHigh
		}
	}

	lowKeywords := []string{
		"minor", "nice to have", "cosmetic", "trivial",
		"low priority", "cleanup", "clean up",
	}
	for _, kw := range lowKeywords {
		if strings.Contains(lower, kw) {
			return models.IssuePriorityLow
		}
	}

	return models.IssuePriorityMedium
}
