package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// spyStore counts write calls so tests can assert the controller
// never reaches the store on rejected operations.
type spyStore struct {
	store.Store
	creates int
	updates int
}

func (s *spyStore) CreateIssue(ctx context.Context, issue *models.Issue) error {
	s.creates++
	return s.Store.CreateIssue(ctx, issue)
}

func (s *spyStore) UpdateIssueStatus(ctx context.Context, id string, status models.IssueStatus) error {
	s.updates++
	return s.Store.UpdateIssueStatus(ctx, id, status)
}

func seedIssue(t *testing.T, s store.Store, title string, status models.IssueStatus, priority models.IssuePriority) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:       title,
		Description: "seeded",
		Status:      status,
		Priority:    priority,
	}
	require.NoError(t, s.CreateIssue(context.Background(), issue))
	return issue
}

// --- Duplicate detection ---

func TestFindDuplicate(t *testing.T) {
	existing := []*models.Issue{
		{ID: "1", Title: "Login fails on Safari"},
		{ID: "2", Title: "Crash on startup"},
	}

	tests := []struct {
		name    string
		title   string
		wantID  string
	}{
		{"exact match", "Login fails on Safari", "1"},
		{"case insensitive", "LOGIN FAILS ON SAFARI", "1"},
		{"whitespace trimmed", "  Crash on startup  ", "2"},
		{"proposed contains existing", "Crash on startup when offline", "2"},
		{"existing contains proposed", "login fails", "1"},
		{"no overlap", "Dark mode request", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindDuplicate(tt.title, existing)
			if tt.wantID == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestFindDuplicate_FirstMatchWins(t *testing.T) {
	existing := []*models.Issue{
		{ID: "1", Title: "login"},
		{ID: "2", Title: "login fails"},
	}
	got := FindDuplicate("login fails on mobile", existing)
	require.NotNil(t, got)
	assert.Equal(t, "1", got.ID)
}

func TestFindDuplicate_IgnoresEmptyTitles(t *testing.T) {
	// An empty normalized title would be contained in everything.
	existing := []*models.Issue{{ID: "1", Title: "   "}}
	assert.Nil(t, FindDuplicate("anything", existing))
	assert.Nil(t, FindDuplicate("  ", existing))
}

// --- Create ---

func TestCreate_PersistsWithStatusOpen(t *testing.T) {
	s := newTestStore(t)
	c := NewController(s)
	ctx := context.Background()

	issue, err := c.Create(ctx, Session{Email: "me@example.com"}, CreateRequest{
		Title:       "Dark mode",
		Description: "Please add a dark theme",
		Priority:    models.IssuePriorityHigh,
		AssignedTo:  "dev@example.com",
	}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, issue.ID)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
	assert.Equal(t, "me@example.com", issue.CreatedBy)
	assert.False(t, issue.CreatedAt.IsZero())

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, got.Status)
}

func TestCreate_Validation(t *testing.T) {
	spy := &spyStore{Store: newTestStore(t)}
	c := NewController(spy)
	ctx := context.Background()
	sess := Session{Email: "me@example.com"}

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"empty title", CreateRequest{Title: "  ", Description: "d", Priority: models.IssuePriorityLow}},
		{"empty description", CreateRequest{Title: "t", Description: "", Priority: models.IssuePriorityLow}},
		{"bad priority", CreateRequest{Title: "t", Description: "d", Priority: "Urgent"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Create(ctx, sess, tt.req, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
	assert.Equal(t, 0, spy.creates, "validation failures must not reach the store")
}

func TestCreate_DuplicateDeclinedAborts(t *testing.T) {
	base := newTestStore(t)
	seedIssue(t, base, "Login fails on Safari", models.IssueStatusOpen, models.IssuePriorityHigh)

	spy := &spyStore{Store: base}
	c := NewController(spy)

	var asked *models.Issue
	_, err := c.Create(context.Background(), Session{}, CreateRequest{
		Title:       "login fails",
		Description: "same thing",
		Priority:    models.IssuePriorityLow,
	}, func(dup *models.Issue) Decision {
		asked = dup
		return Abort
	})

	assert.ErrorIs(t, err, ErrCreationAborted)
	require.NotNil(t, asked, "decision callback should receive the candidate")
	assert.Equal(t, "Login fails on Safari", asked.Title)
	assert.Equal(t, 0, spy.creates, "declined creation must not reach the store")

	issues, err := base.ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestCreate_DuplicateConfirmedProceeds(t *testing.T) {
	s := newTestStore(t)
	seedIssue(t, s, "Login fails on Safari", models.IssueStatusOpen, models.IssuePriorityHigh)
	c := NewController(s)

	issue, err := c.Create(context.Background(), Session{Email: "me@example.com"}, CreateRequest{
		Title:       "Login fails",
		Description: "different repro",
		Priority:    models.IssuePriorityMedium,
	}, AlwaysProceed)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)

	issues, err := s.ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestCreate_NilDecisionAbortsOnDuplicate(t *testing.T) {
	s := newTestStore(t)
	seedIssue(t, s, "Login fails", models.IssueStatusOpen, models.IssuePriorityLow)
	c := NewController(s)

	_, err := c.Create(context.Background(), Session{}, CreateRequest{
		Title:       "Login fails",
		Description: "d",
		Priority:    models.IssuePriorityLow,
	}, nil)
	assert.ErrorIs(t, err, ErrCreationAborted)
}

func TestCreate_NoDuplicateSkipsDecision(t *testing.T) {
	s := newTestStore(t)
	seedIssue(t, s, "Crash on startup", models.IssueStatusOpen, models.IssuePriorityLow)
	c := NewController(s)

	called := false
	_, err := c.Create(context.Background(), Session{}, CreateRequest{
		Title:       "Dark mode",
		Description: "d",
		Priority:    models.IssuePriorityLow,
	}, func(*models.Issue) Decision {
		called = true
		return Abort
	})
	require.NoError(t, err)
	assert.False(t, called, "decision callback must not run without a candidate")
}

// --- Status transitions ---

func TestChangeStatus_OpenToDoneRejected(t *testing.T) {
	base := newTestStore(t)
	issue := seedIssue(t, base, "a", models.IssueStatusOpen, models.IssuePriorityLow)

	spy := &spyStore{Store: base}
	c := NewController(spy)

	err := c.ChangeStatus(context.Background(), issue, models.IssueStatusDone)
	assert.ErrorIs(t, err, ErrOpenToDone)
	assert.Equal(t, 0, spy.updates, "rejected transition must not reach the store")

	got, err := base.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusOpen, got.Status)
}

func TestChangeStatus_AllowedTransitions(t *testing.T) {
	tests := []struct {
		from, to models.IssueStatus
	}{
		{models.IssueStatusOpen, models.IssueStatusInProgress},
		{models.IssueStatusInProgress, models.IssueStatusDone},
		{models.IssueStatusInProgress, models.IssueStatusOpen},
		{models.IssueStatusDone, models.IssueStatusOpen},
		{models.IssueStatusDone, models.IssueStatusInProgress},
		// Same-state no-ops are persisted harmlessly.
		{models.IssueStatusOpen, models.IssueStatusOpen},
		{models.IssueStatusInProgress, models.IssueStatusInProgress},
		{models.IssueStatusDone, models.IssueStatusDone},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			base := newTestStore(t)
			issue := seedIssue(t, base, "a", tt.from, models.IssuePriorityLow)

			spy := &spyStore{Store: base}
			c := NewController(spy)

			require.NoError(t, c.ChangeStatus(context.Background(), issue, tt.to))
			assert.Equal(t, 1, spy.updates)

			got, err := base.GetIssue(context.Background(), issue.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got.Status)
		})
	}
}

func TestChangeStatus_UnknownStatusRejected(t *testing.T) {
	base := newTestStore(t)
	issue := seedIssue(t, base, "a", models.IssueStatusOpen, models.IssuePriorityLow)

	spy := &spyStore{Store: base}
	c := NewController(spy)

	err := c.ChangeStatus(context.Background(), issue, "Archived")
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 0, spy.updates)
}

// --- Filter view ---

func TestFilter(t *testing.T) {
	issues := []*models.Issue{
		{ID: "1", Status: models.IssueStatusDone, Priority: models.IssuePriorityHigh},
		{ID: "2", Status: models.IssueStatusOpen, Priority: models.IssuePriorityLow},
		{ID: "3", Status: models.IssueStatusInProgress, Priority: models.IssuePriorityHigh},
	}

	tests := []struct {
		name     string
		status   string
		priority string
		wantIDs  []string
	}{
		{"all/all returns input in order", "All", "All", []string{"1", "2", "3"}},
		{"status only", "Done", "All", []string{"1"}},
		{"priority only", "All", "High", []string{"1", "3"}},
		{"both", "In Progress", "High", []string{"3"}},
		{"no matches", "Done", "Low", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(issues, tt.status, tt.priority)
			ids := make([]string, 0, len(got))
			for _, issue := range got {
				ids = append(ids, issue.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFilter_DoesNotMutateInput(t *testing.T) {
	issues := []*models.Issue{
		{ID: "1", Status: models.IssueStatusOpen, Priority: models.IssuePriorityLow},
		{ID: "2", Status: models.IssueStatusDone, Priority: models.IssuePriorityHigh},
	}
	_ = Filter(issues, "Done", "All")
	assert.Equal(t, "1", issues[0].ID)
	assert.Equal(t, "2", issues[1].ID)
}
