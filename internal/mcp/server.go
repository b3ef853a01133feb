package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/store"
	"github.com/joescharf/issuedash/internal/workflow"
)

// Server wraps the issuedash data layer and exposes it as MCP tools.
// Tools go through the workflow controller, so the duplicate gate and
// the status transition guard apply to agents exactly as they do to
// the dashboard.
type Server struct {
	store   store.Store
	ctrl    *workflow.Controller
	session workflow.Session
}

// NewServer creates the MCP server wrapper acting as the given session.
func NewServer(s store.Store, session workflow.Session) *Server {
	return &Server{
		store:   s,
		ctrl:    workflow.NewController(s),
		session: session,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("issuedash", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.setStatusTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

type issueOut struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	AssignedTo  string `json:"assigned_to,omitempty"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func issueToOut(issue *models.Issue) issueOut {
	return issueOut{
		ID:          issue.ID,
		Title:       issue.Title,
		Description: issue.Description,
		Priority:    string(issue.Priority),
		Status:      string(issue.Status),
		AssignedTo:  issue.AssignedTo,
		CreatedBy:   issue.CreatedBy,
		CreatedAt:   issue.CreatedAt.Format(time.RFC3339),
	}
}

// issuedash_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedash_list_issues",
		mcp.WithDescription("List issues newest first, optionally filtered by status and/or priority. Returns a JSON array. Each issue has: title, description, status (Open/In Progress/Done), priority (Low/Medium/High), assigned_to, created_by, created_at."),
		mcp.WithString("status", mcp.Description("Status filter: Open, In Progress, Done")),
		mcp.WithString("priority", mcp.Description("Priority filter: Low, Medium, High")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := store.IssueListFilter{}

	if v := request.GetString("status", ""); v != "" {
		status, ok := models.ParseStatus(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown status: %s", v)), nil
		}
		filter.Status = status
	}
	if v := request.GetString("priority", ""); v != "" {
		priority, ok := models.ParsePriority(v)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown priority: %s", v)), nil
		}
		filter.Priority = priority
	}

	issues, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	out := make([]issueOut, len(issues))
	for i, issue := range issues {
		out[i] = issueToOut(issue)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedash_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedash_create_issue",
		mcp.WithDescription("Create a new issue. New issues always start with status Open. If an existing issue has a similar title, creation is refused and the candidate is reported; call again with confirm_duplicate=true to create anyway."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description")),
		mcp.WithString("priority", mcp.Description("Priority: Low, Medium, High (default: Low)")),
		mcp.WithString("assigned_to", mcp.Description("Assignee email")),
		mcp.WithBoolean("confirm_duplicate", mcp.Description("Create even though a similar issue exists")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}
	description, err := request.RequireString("description")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: description"), nil
	}

	priorityStr := request.GetString("priority", string(models.IssuePriorityLow))
	priority, ok := models.ParsePriority(priorityStr)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown priority: %s", priorityStr)), nil
	}

	var duplicate *models.Issue
	decide := func(dup *models.Issue) workflow.Decision {
		duplicate = dup
		return workflow.Abort
	}
	if request.GetBool("confirm_duplicate", false) {
		decide = workflow.AlwaysProceed
	}

	issue, err := s.ctrl.Create(ctx, s.session, workflow.CreateRequest{
		Title:       title,
		Description: description,
		Priority:    priority,
		AssignedTo:  request.GetString("assigned_to", ""),
	}, decide)
	if errors.Is(err, workflow.ErrCreationAborted) && duplicate != nil {
		result := map[string]any{
			"created":   false,
			"reason":    "a similar issue already exists; retry with confirm_duplicate=true to create anyway",
			"duplicate": issueToOut(duplicate),
		}
		data, _ := json.Marshal(result)
		return mcp.NewToolResultText(string(data)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}

	result := map[string]any{
		"created": true,
		"issue":   issueToOut(issue),
	}
	data, err := json.Marshal(result)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issuedash_set_issue_status
func (s *Server) setStatusTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issuedash_set_issue_status",
		mcp.WithDescription("Change an issue's status. Open issues cannot go straight to Done; move them to In Progress first. Provide the issue ID (full ULID or unique prefix)."),
		mcp.WithString("issue_id", mcp.Required(), mcp.Description("Issue ID (full ULID or unique prefix)")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status: Open, In Progress, Done")),
	)
	return tool, s.handleSetStatus
}

func (s *Server) handleSetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueID, err := request.RequireString("issue_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: issue_id"), nil
	}
	statusStr, err := request.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: status"), nil
	}

	status, ok := models.ParseStatus(statusStr)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("unknown status: %s", statusStr)), nil
	}

	issue, err := s.findIssue(ctx, issueID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.ctrl.ChangeStatus(ctx, issue, status); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := s.store.GetIssue(ctx, issue.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to reload issue: %v", err)), nil
	}

	data, err := json.Marshal(issueToOut(updated))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// findIssue finds an issue by full ID or unique prefix.
func (s *Server) findIssue(ctx context.Context, id string) (*models.Issue, error) {
	// Try exact match first
	if issue, err := s.store.GetIssue(ctx, id); err == nil {
		return issue, nil
	}

	// Try prefix match - list all and filter
	upper := strings.ToUpper(id)
	issues, err := s.store.ListIssues(ctx, store.IssueListFilter{})
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
