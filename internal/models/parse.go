package models

import "strings"

// ParseStatus maps user-supplied text to an IssueStatus. It accepts
// case-insensitive input and the CLI-friendly spellings "in-progress"
// and "in_progress".
func ParseStatus(s string) (IssueStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open":
		return IssueStatusOpen, true
	case "in progress", "in-progress", "in_progress", "inprogress":
		return IssueStatusInProgress, true
	case "done":
		return IssueStatusDone, true
	}
	return "", false
}

// ParsePriority maps user-supplied text to an IssuePriority,
// case-insensitively.
func ParsePriority(s string) (IssuePriority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return IssuePriorityLow, true
	case "medium":
		return IssuePriorityMedium, true
	case "high":
		return IssuePriorityHigh, true
	}
	return "", false
}
