package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/output"
	"github.com/joescharf/issuedash/internal/store"
	"github.com/joescharf/issuedash/internal/workflow"
)

// add and list each get their own priority var: pflag writes a flag's
// default into the bound variable at registration time, so sharing one
// var would let the later registration clobber the earlier default.
var (
	issueTitle        string
	issueDesc         string
	issueAddPriority  string
	issueAssign       string
	issueStatus       string
	issueListPriority string
	issueYes          bool
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "Create, list, and update issues from the terminal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a new issue",
	Long: `Create a new issue with status Open.
If an existing issue has a similar title you are asked to confirm
before the issue is created.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List issues",
	Long:    "List issues newest first, optionally filtered by status and priority.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueStatusCmd = &cobra.Command{
	Use:   "status <issue-id> <new-status>",
	Short: "Change an issue's status",
	Long: `Change an issue's status to Open, "In Progress", or Done.
An Open issue cannot be marked Done directly; move it to In Progress first.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueStatusRun(args[0], args[1])
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	issueAddCmd.Flags().StringVar(&issueAddPriority, "priority", "Low", "Priority: Low, Medium, High")
	issueAddCmd.Flags().StringVar(&issueAssign, "assign", "", "Assignee email")
	issueAddCmd.Flags().BoolVarP(&issueYes, "yes", "y", false, "Create without asking even if a similar issue exists")
	_ = issueAddCmd.MarkFlagRequired("title")
	_ = issueAddCmd.MarkFlagRequired("desc")

	issueListCmd.Flags().StringVar(&issueStatus, "status", "", "Filter by status: Open, \"In Progress\", Done")
	issueListCmd.Flags().StringVar(&issueListPriority, "priority", "", "Filter by priority: Low, Medium, High")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueStatusCmd)
	rootCmd.AddCommand(issueCmd)
}

// confirmDuplicate is the terminal rendition of the duplicate
// confirmation dialog. Replaceable in tests.
var confirmDuplicate = func(dup *models.Issue) workflow.Decision {
	ui.Warning("A similar issue already exists: %s (%s)", dup.Title, shortID(dup.ID))
	fmt.Fprint(ui.Out, "Create anyway? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return workflow.Abort
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return workflow.Proceed
	}
	return workflow.Abort
}

func issueAddRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	priority, ok := models.ParsePriority(issueAddPriority)
	if !ok {
		return fmt.Errorf("unknown priority %q (use Low, Medium, or High)", issueAddPriority)
	}

	if dryRun {
		ui.DryRunMsg("Would create issue: %s [%s]", issueTitle, priority)
		return nil
	}

	decide := confirmDuplicate
	if issueYes {
		decide = workflow.AlwaysProceed
	}

	ctrl := workflow.NewController(s)
	issue, err := ctrl.Create(ctx, currentSession(), workflow.CreateRequest{
		Title:       issueTitle,
		Description: issueDesc,
		Priority:    priority,
		AssignedTo:  issueAssign,
	}, decide)
	if errors.Is(err, workflow.ErrCreationAborted) {
		ui.Info("Issue not created.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", output.Cyan(shortID(issue.ID)), issue.Title)
	return nil
}

func issueListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.IssueListFilter{}
	if issueStatus != "" {
		status, ok := models.ParseStatus(issueStatus)
		if !ok {
			return fmt.Errorf("unknown status %q (use Open, \"In Progress\", or Done)", issueStatus)
		}
		filter.Status = status
	}
	if issueListPriority != "" {
		priority, ok := models.ParsePriority(issueListPriority)
		if !ok {
			return fmt.Errorf("unknown priority %q (use Low, Medium, or High)", issueListPriority)
		}
		filter.Priority = priority
	}

	issues, err := s.ListIssues(ctx, filter)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		ui.Info("No issues found.")
		return nil
	}

	table := ui.Table([]string{"ID", "Title", "Status", "Priority", "Assigned To", "Created"})
	for _, issue := range issues {
		_ = table.Append([]string{
			shortID(issue.ID),
			issue.Title,
			output.StatusColor(string(issue.Status)),
			output.PriorityColor(string(issue.Priority)),
			issue.AssignedTo,
			issue.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	_ = table.Render()
	return nil
}

func issueShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", output.Cyan(shortID(issue.ID)), issue.Title)
	fmt.Fprintf(ui.Out, "  Status:      %s\n", output.StatusColor(string(issue.Status)))
	fmt.Fprintf(ui.Out, "  Priority:    %s\n", output.PriorityColor(string(issue.Priority)))
	fmt.Fprintf(ui.Out, "  Desc:        %s\n", issue.Description)
	if issue.AssignedTo != "" {
		fmt.Fprintf(ui.Out, "  Assigned To: %s\n", issue.AssignedTo)
	}
	if issue.CreatedBy != "" {
		fmt.Fprintf(ui.Out, "  Created By:  %s\n", issue.CreatedBy)
	}
	fmt.Fprintf(ui.Out, "  Created:     %s\n", issue.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(ui.Out, "  Full ID:     %s\n", issue.ID)

	return nil
}

func issueStatusRun(id, statusArg string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	status, ok := models.ParseStatus(statusArg)
	if !ok {
		return fmt.Errorf("unknown status %q (use Open, \"In Progress\", or Done)", statusArg)
	}

	issue, err := findIssue(ctx, s, id)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would set issue %s to %s", shortID(issue.ID), status)
		return nil
	}

	ctrl := workflow.NewController(s)
	if err := ctrl.ChangeStatus(ctx, issue, status); err != nil {
		if errors.Is(err, workflow.ErrOpenToDone) {
			ui.Error("%s", err.Error())
			return nil
		}
		return err
	}

	ui.Success("Issue %s is now %s", output.Cyan(shortID(issue.ID)), output.StatusColor(string(status)))
	return nil
}

// findIssue finds an issue by full ID or prefix match.
func findIssue(ctx context.Context, s store.Store, id string) (*models.Issue, error) {
	// Try exact match first
	if issue, err := s.GetIssue(ctx, id); err == nil {
		return issue, nil
	}

	// Try prefix match - list all and filter
	upper := strings.ToUpper(id)
	issues, err := s.ListIssues(ctx, store.IssueListFilter{})
	if err != nil {
		return nil, err
	}

	var matches []*models.Issue
	for _, issue := range issues {
		if strings.HasPrefix(issue.ID, upper) {
			matches = append(matches, issue)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("issue not found: %s", id)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("ambiguous issue ID %s: matches %d issues", id, len(matches))
	}
}

// shortID returns a truncated ULID for display (first 12 chars).
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
