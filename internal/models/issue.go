package models

import "time"

// IssueStatus represents the state of an issue. The values are the
// exact strings stored in the issues collection and shown in the
// dashboard's status selector.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "Open"
	IssueStatusInProgress IssueStatus = "In Progress"
	IssueStatusDone       IssueStatus = "Done"
)

// Valid reports whether s is one of the three known statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusOpen, IssueStatusInProgress, IssueStatusDone:
		return true
	}
	return false
}

// IssuePriority represents the urgency of an issue.
type IssuePriority string

const (
	IssuePriorityLow    IssuePriority = "Low"
	IssuePriorityMedium IssuePriority = "Medium"
	IssuePriorityHigh   IssuePriority = "High"
)

// Valid reports whether p is one of the three known priorities.
func (p IssuePriority) Valid() bool {
	switch p {
	case IssuePriorityLow, IssuePriorityMedium, IssuePriorityHigh:
		return true
	}
	return false
}

// FilterAll is the wildcard value for the dashboard's status and
// priority filters: it matches every issue.
const FilterAll = "All"

// Issue is a tracked issue. ID and CreatedAt are assigned by the store
// at creation time; Status is the only field that changes afterwards.
type Issue struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Priority    IssuePriority `json:"priority"`
	Status      IssueStatus   `json:"status"`
	AssignedTo  string        `json:"assignedTo"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
}
