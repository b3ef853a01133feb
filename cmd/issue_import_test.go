package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/store"
)

// testEnvWithStore sets up testEnv plus a fresh store in the temp dir.
func testEnvWithStore(t *testing.T) string {
	t.Helper()
	dir := testEnv(t)

	dataStore = nil
	t.Cleanup(func() {
		if dataStore != nil {
			_ = dataStore.Close()
			dataStore = nil
		}
	})

	return dir
}

func TestParseMarkdownIssues(t *testing.T) {
	t.Run("numbered and bulleted items", func(t *testing.T) {
		md := `# Quick Issues

1. Dashboard: show assignee avatars
2. Critical crash when filtering by status
- Add CSV export
* Minor cosmetic button fix
`
		issues := parseMarkdownIssues(md)
		require.Len(t, issues, 4)

		assert.Equal(t, "Dashboard: show assignee avatars", issues[0].Title)
		assert.Equal(t, models.IssuePriorityMedium, issues[0].Priority)

		assert.Equal(t, "Critical crash when filtering by status", issues[1].Title)
		assert.Equal(t, models.IssuePriorityHigh, issues[1].Priority)

		assert.Equal(t, "Add CSV export", issues[2].Title)

		assert.Equal(t, "Minor cosmetic button fix", issues[3].Title)
		assert.Equal(t, models.IssuePriorityLow, issues[3].Priority)
	})

	t.Run("sub-issues inherit parent line in description", func(t *testing.T) {
		md := `1. Rework the filter bar
1.1 Status dropdown keeps stale selection
1.2. Priority filter ignores Medium
`
		issues := parseMarkdownIssues(md)
		require.Len(t, issues, 3)

		assert.Equal(t, "Rework the filter bar", issues[0].Title)

		assert.Equal(t, "Status dropdown keeps stale selection", issues[1].Title)
		assert.Contains(t, issues[1].Description, "Rework the filter bar")
		assert.Contains(t, issues[1].Description, "Status dropdown keeps stale selection")

		assert.Equal(t, "Priority filter ignores Medium", issues[2].Title)
	})

	t.Run("headings and prose are ignored", func(t *testing.T) {
		md := `# Notes

Some prose that is not a list item.

## More notes

1. The only real issue
`
		issues := parseMarkdownIssues(md)
		require.Len(t, issues, 1)
		assert.Equal(t, "The only real issue", issues[0].Title)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, parseMarkdownIssues(""))
	})
}

func TestParseSubIssueNumber(t *testing.T) {
	tests := []struct {
		line  string
		title string
		ok    bool
	}{
		{"1.1 Sub item", "Sub item", true},
		{"2.3. Another sub", "Another sub", true},
		{"1. Regular item", "", false},
		{"1.1", "", false},
		{"not a list item", "", false},
		{"1.1NoSpace", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			title, ok := parseSubIssueNumber(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, title)
		})
	}
}

func TestIssueImportRun_CreatesIssues(t *testing.T) {
	dir := testEnvWithStore(t)

	md := `1. Add search functionality
2. Urgent fix for login
`
	file := filepath.Join(dir, "issues.md")
	require.NoError(t, os.WriteFile(file, []byte(md), 0644))

	require.NoError(t, issueImportRun(file))

	s, err := getStore()
	require.NoError(t, err)
	issues, err := s.ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	require.Len(t, issues, 2)

	for _, issue := range issues {
		assert.Equal(t, models.IssueStatusOpen, issue.Status)
	}
}

func TestIssueImportRun_SkipsDuplicates(t *testing.T) {
	dir := testEnvWithStore(t)

	s, err := getStore()
	require.NoError(t, err)
	require.NoError(t, s.CreateIssue(context.Background(), &models.Issue{
		Title:       "Add search functionality",
		Description: "existing",
		Priority:    models.IssuePriorityLow,
		Status:      models.IssueStatusOpen,
	}))

	md := `1. Add search functionality
2. Something entirely different
`
	file := filepath.Join(dir, "issues.md")
	require.NoError(t, os.WriteFile(file, []byte(md), 0644))

	require.NoError(t, issueImportRun(file))

	issues, err := s.ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestIssueImportRun_DryRun(t *testing.T) {
	dir := testEnvWithStore(t)

	md := "1. Would-be issue\n"
	file := filepath.Join(dir, "issues.md")
	require.NoError(t, os.WriteFile(file, []byte(md), 0644))

	importDryRun = true
	defer func() { importDryRun = false }()

	require.NoError(t, issueImportRun(file))

	s, err := getStore()
	require.NoError(t, err)
	issues, err := s.ListIssues(context.Background(), store.IssueListFilter{})
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestIssueImportRun_MissingFile(t *testing.T) {
	testEnvWithStore(t)

	err := issueImportRun("/nonexistent/issues.md")
	require.Error(t, err)
}

func TestIssueImportRun_EmptyFile(t *testing.T) {
	dir := testEnvWithStore(t)

	file := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(file, []byte("  \n"), 0644))

	err := issueImportRun(file)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
