package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/issuedash/internal/models"
)

func TestClassifyIssuePriority(t *testing.T) {
	tests := []struct {
		title    string
		expected models.IssuePriority
	}{
		// High priority
		{"Critical: database corruption", models.IssuePriorityHigh},
		{"Urgent fix needed for auth", models.IssuePriorityHigh},
		{"Blocker for release", models.IssuePriorityHigh},
		{"App crash on login", models.IssuePriorityHigh},
		{"Security vulnerability in API", models.IssuePriorityHigh},
		{"Data loss when saving forms", models.IssuePriorityHigh},
		{"Production down", models.IssuePriorityHigh},
		{"P0: system outage", models.IssuePriorityHigh},
		{"P1: degraded performance", models.IssuePriorityHigh},

		// Low priority
		{"Minor UI alignment issue", models.IssuePriorityLow},
		{"Nice to have: dark mode toggle animation", models.IssuePriorityLow},
		{"Cosmetic fix for button color", models.IssuePriorityLow},
		{"Trivial typo in tooltip", models.IssuePriorityLow},
		{"Low priority: update footer text", models.IssuePriorityLow},
		{"Cleanup unused CSS classes", models.IssuePriorityLow},
		{"Clean up old log files", models.IssuePriorityLow},

		// Medium (default)
		{"Add user profiles", models.IssuePriorityMedium},
		{"Implement search", models.IssuePriorityMedium},
		{"Refactor auth module", models.IssuePriorityMedium},
		{"Update documentation", models.IssuePriorityMedium},

		// Case insensitivity
		{"CRITICAL outage", models.IssuePriorityHigh},
		{"MINOR text change", models.IssuePriorityLow},

		// High takes precedence over low
		{"Critical cleanup needed", models.IssuePriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, classifyIssuePriority(tt.title))
		})
	}
}
