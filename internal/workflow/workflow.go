// Package workflow implements the issue lifecycle rules shared by
// every surface (web dashboard, CLI, MCP): duplicate-title detection
// before creation, the status transition guard, and the filtered view.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/store"
)

// ErrInvalid marks validation rejections detected before any store
// call. Wrapped errors carry the user-facing detail.
var ErrInvalid = errors.New("invalid issue")

// ErrCreationAborted is returned when a duplicate candidate was found
// and the user declined to proceed. No store call has been made.
var ErrCreationAborted = errors.New("issue creation aborted")

// ErrOpenToDone is the one forbidden transition: an issue cannot go
// straight from Open to Done. Every other (from, to) pair, including
// regressions, reopening, and same-state no-ops, is persisted as-is.
var ErrOpenToDone = errors.New("please move the issue to 'In Progress' before marking it as Done")

// Decision is the outcome of asking the user whether to create an
// issue despite a duplicate candidate.
type Decision int

const (
	Abort Decision = iota
	Proceed
)

// DecisionFunc is invoked with the duplicate candidate when one is
// found. Returning Abort cancels creation with no side effects.
type DecisionFunc func(duplicate *models.Issue) Decision

// AlwaysProceed is a DecisionFunc for callers that have already
// obtained confirmation out of band.
func AlwaysProceed(*models.Issue) Decision { return Proceed }

// Session identifies the signed-in user. It is passed explicitly so
// the controller stays testable without a live auth backend.
type Session struct {
	Email string
}

// CreateRequest holds the validated form fields for a new issue.
// Status is not a field: new issues always start Open.
type CreateRequest struct {
	Title       string
	Description string
	Priority    models.IssuePriority
	AssignedTo  string
}

// Controller validates and enriches issue submissions and enforces
// the status state machine on top of the store.
type Controller struct {
	store store.Store
}

// NewController creates a Controller backed by the given store.
func NewController(s store.Store) *Controller {
	return &Controller{store: s}
}

// normalizeTitle is the comparison form for duplicate detection:
// leading/trailing whitespace stripped, case folded.
func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// FindDuplicate returns the first issue whose normalized title
// contains the normalized proposed title, or is contained by it.
// "Fix login bug" matches "Fix login bug on mobile" in either
// direction; exact equality is the trivial case. Returns nil if no
// candidate exists. The check is advisory: the caller decides whether
// a match blocks anything.
func FindDuplicate(title string, issues []*models.Issue) *models.Issue {
	proposed := normalizeTitle(title)
	if proposed == "" {
		return nil
	}
	for _, issue := range issues {
		existing := normalizeTitle(issue.Title)
		if existing == "" {
			continue
		}
		if strings.Contains(existing, proposed) || strings.Contains(proposed, existing) {
			return issue
		}
	}
	return nil
}

// Create validates req, runs duplicate detection against the current
// collection, consults decide if a candidate is found, and persists
// the issue with status Open stamped with the session identity. The
// returned issue carries the store-assigned ID and creation time.
func (c *Controller) Create(ctx context.Context, sess Session, req CreateRequest, decide DecisionFunc) (*models.Issue, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: description is required", ErrInvalid)
	}
	if !req.Priority.Valid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalid, req.Priority)
	}

	issues, err := c.store.ListIssues(ctx, store.IssueListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list issues for duplicate check: %w", err)
	}

	if dup := FindDuplicate(req.Title, issues); dup != nil {
		if decide == nil || decide(dup) != Proceed {
			return nil, ErrCreationAborted
		}
	}

	issue := &models.Issue{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      models.IssueStatusOpen,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   sess.Email,
	}
	if err := c.store.CreateIssue(ctx, issue); err != nil {
		return nil, err
	}
	return issue, nil
}

// ChangeStatus validates the requested transition and persists it as
// a partial update. Open -> Done is rejected with ErrOpenToDone before
// any store call; the issue is left untouched.
func (c *Controller) ChangeStatus(ctx context.Context, issue *models.Issue, newStatus models.IssueStatus) error {
	if !newStatus.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, newStatus)
	}
	if issue.Status == models.IssueStatusOpen && newStatus == models.IssueStatusDone {
		return ErrOpenToDone
	}
	return c.store.UpdateIssueStatus(ctx, issue.ID, newStatus)
}

// Filter returns the issues passing both the status and the priority
// filter. Either filter may be models.FilterAll to match everything.
// Pure function: input order is preserved and the input is not
// modified.
func Filter(issues []*models.Issue, statusFilter, priorityFilter string) []*models.Issue {
	out := make([]*models.Issue, 0, len(issues))
	for _, issue := range issues {
		statusMatch := statusFilter == models.FilterAll || string(issue.Status) == statusFilter
		priorityMatch := priorityFilter == models.FilterAll || string(issue.Priority) == priorityFilter
		if statusMatch && priorityMatch {
			out = append(out, issue)
		}
	}
	return out
}
