package store

import (
	"context"

	"github.com/joescharf/issuedash/internal/models"
)

// IssueListFilter specifies optional filters for listing issues.
// Zero values mean "no filter on this field".
type IssueListFilter struct {
	Status   models.IssueStatus
	Priority models.IssuePriority
}

// Store defines the persistence interface for issuedash. It plays the
// role of the hosted issue document collection: creation assigns the
// id and the creation timestamp, updates are partial (status only),
// and Subscribe delivers the full ordered collection after every
// committed write. Issues are never deleted.
type Store interface {
	// CreateIssue persists a new issue. It assigns issue.ID and
	// issue.CreatedAt; the caller's values for those fields are ignored.
	CreateIssue(ctx context.Context, issue *models.Issue) error

	// GetIssue returns the issue with the given id.
	GetIssue(ctx context.Context, id string) (*models.Issue, error)

	// ListIssues returns issues ordered by creation time, newest first.
	ListIssues(ctx context.Context, filter IssueListFilter) ([]*models.Issue, error)

	// UpdateIssueStatus merges only the status field into the stored
	// issue, leaving every other field untouched.
	UpdateIssueStatus(ctx context.Context, id string, status models.IssueStatus) error

	// Subscribe returns a channel of full-collection snapshots, newest
	// first, starting with the current state. The snapshot slices are
	// never mutated after being sent. Cancel (or ctx) ends the
	// subscription and closes the channel.
	Subscribe(ctx context.Context) (<-chan []*models.Issue, func())

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
