package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/store"
	"github.com/joescharf/issuedash/internal/workflow"
)

var importDryRun bool

var issueImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import issues from a markdown file",
	Long: `Import issues from a markdown file.

The markdown file should contain issues as numbered or bulleted list
items. Each item becomes one Open issue; priority is inferred from
keywords in the title. Items whose titles match an existing issue are
skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueImportRun(args[0])
	},
}

func init() {
	issueImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Preview extracted issues without creating them")
	issueCmd.AddCommand(issueImportCmd)
}

// importedIssue is one list item extracted from the markdown file.
type importedIssue struct {
	Title       string
	Description string
	Priority    models.IssuePriority
}

func issueImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	content := string(data)
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	extracted := parseMarkdownIssues(content)
	if len(extracted) == 0 {
		ui.Info("No issues found in file.")
		return nil
	}

	// Preview table
	table := ui.Table([]string{"#", "Title", "Priority"})
	for i, e := range extracted {
		_ = table.Append([]string{
			fmt.Sprintf("%d", i+1),
			e.Title,
			string(e.Priority),
		})
	}
	_ = table.Render()

	if importDryRun || dryRun {
		ui.DryRunMsg("Would create %d issues", len(extracted))
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	return createImportedIssues(context.Background(), s, extracted)
}

// parseSubIssueNumber checks if a line starts with a sub-issue number like "1.1" or "2.3."
// Returns the title text and true if it's a sub-issue, or empty and false otherwise.
func parseSubIssueNumber(line string) (title string, ok bool) {
	// Pattern: digits.digits[.] space text (e.g., "1.1 text" or "1.1. text")
	i := 0
	// First number
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	i++ // skip first dot
	// Second number (must have at least one digit after the dot)
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return "", false // no digits after dot, this is a regular "1. text" item
	}
	// Optional trailing dot (e.g., "1.1. text")
	if i < len(line) && line[i] == '.' {
		i++
	}
	// Must be followed by a space and text
	if i >= len(line) || line[i] != ' ' {
		return "", false
	}
	title = strings.TrimSpace(line[i:])
	if title == "" {
		return "", false
	}
	return title, true
}

// parseMarkdownIssues does a simple parse of markdown to extract numbered/bulleted items.
func parseMarkdownIssues(content string) []importedIssue {
	var issues []importedIssue
	lastParentLine := "" // raw line of the last top-level numbered item

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		// Headings reset sub-issue context
		if strings.HasPrefix(line, "#") {
			lastParentLine = ""
			continue
		}

		// Check for sub-issue first (e.g., "1.1 text", "2.3. text")
		if subTitle, ok := parseSubIssueNumber(line); ok {
			desc := line
			if lastParentLine != "" {
				desc = lastParentLine + "\n" + line
			}
			issues = append(issues, importedIssue{
				Title:       subTitle,
				Description: desc,
				Priority:    classifyIssuePriority(subTitle),
			})
			continue
		}

		// Check for numbered list item: "1. Title" or "- Title"
		title := ""
		if len(line) > 2 {
			// Numbered: "1. text", "12. text"
			for i, c := range line {
				if c == '.' && i > 0 && i < 4 {
					rest := strings.TrimSpace(line[i+1:])
					if rest != "" {
						title = rest
					}
					break
				}
				if c < '0' || c > '9' {
					break
				}
			}
			// Bulleted: "- text"
			if title == "" && (strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ")) {
				title = strings.TrimSpace(line[2:])
			}
		}

		if title != "" {
			// Track top-level numbered items as potential parents for sub-issues
			// (only numbered items, not bullets, can be parents)
			if !strings.HasPrefix(line, "- ") && !strings.HasPrefix(line, "* ") {
				lastParentLine = line
			}
			issues = append(issues, importedIssue{
				Title:       title,
				Description: line,
				Priority:    classifyIssuePriority(title),
			})
		}
	}

	return issues
}

// createImportedIssues creates the extracted issues, skipping titles that
// already match an existing issue.
func createImportedIssues(ctx context.Context, s store.Store, extracted []importedIssue) error {
	ctrl := workflow.NewController(s)
	sess := currentSession()
	created := 0
	skipped := 0

	for _, e := range extracted {
		var dup *models.Issue
		decide := func(d *models.Issue) workflow.Decision {
			dup = d
			return workflow.Abort
		}

		_, err := ctrl.Create(ctx, sess, workflow.CreateRequest{
			Title:       e.Title,
			Description: e.Description,
			Priority:    e.Priority,
		}, decide)
		switch {
		case err == nil:
			created++
		case dup != nil:
			ui.Warning("Skipping %q: similar to existing issue %q", e.Title, dup.Title)
			skipped++
		default:
			ui.Warning("Failed to create issue %q: %v", e.Title, err)
			skipped++
		}
	}

	ui.Success("Created %d issues", created)
	if skipped > 0 {
		ui.Warning("Skipped %d issues", skipped)
	}

	return nil
}
