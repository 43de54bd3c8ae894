package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/segnala/segnala/internal/models"
	"github.com/segnala/segnala/internal/store"
	"github.com/segnala/segnala/internal/workflow"
)

// Server wraps the segnala data layer and exposes it as MCP tools.
type Server struct {
	store  store.Store
	runner *workflow.Runner
}

// NewServer creates the MCP server wrapper with all required dependencies.
func NewServer(s store.Store, runner *workflow.Runner) *Server {
	return &Server{
		store:  s,
		runner: runner,
	}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("segnala", "1.0.0", server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.reportIssueTool())
	srv.AddTool(s.showIssueTool())
	srv.AddTool(s.initiateSolutionTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// issueOut is the JSON shape tools return for an issue.
type issueOut struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	Description         string `json:"description"`
	Category            string `json:"category"`
	Status              string `json:"status"`
	PhotoURL            string `json:"photo_url,omitempty"`
	GeneratedSummary    string `json:"generated_summary,omitempty"`
	SolutionDescription string `json:"solution_description,omitempty"`
	CreatedAt           string `json:"created_at"`
}

func toIssueOut(issue *models.Issue) issueOut {
	out := issueOut{
		ID:                  issue.ID,
		Title:               issue.Title,
		Description:         issue.Description,
		Category:            issue.Category,
		Status:              string(issue.Status),
		PhotoURL:            issue.PhotoURL,
		GeneratedSummary:    issue.GeneratedSummary,
		SolutionDescription: issue.SolutionDescription,
	}
	if !issue.CreatedAt.IsZero() {
		out.CreatedAt = issue.CreatedAt.Format(time.RFC3339)
	}
	return out
}

// ---------------------------------------------------------------------------
// Tool definitions and handlers
// ---------------------------------------------------------------------------

// segnala_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("segnala_list_issues",
		mcp.WithDescription("List every reported issue. Returns a JSON array with id, title, description, category, status, and the generated solution description once the workflow has resolved the issue."),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}

	out := make([]issueOut, len(issues))
	for i, issue := range issues {
		out[i] = toIssueOut(issue)
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issues: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// segnala_report_issue
func (s *Server) reportIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("segnala_report_issue",
		mcp.WithDescription("Report a new municipal issue. The id is store-assigned; any supplied id is ignored."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short issue title")),
		mcp.WithString("description", mcp.Description("Free-text description of the problem")),
		mcp.WithString("category", mcp.Description("Issue category, e.g. strade, illuminazione")),
		mcp.WithString("status", mcp.Description("Initial status (defaults to 'submitted')")),
		mcp.WithString("photo_url", mcp.Description("Optional photo URL")),
	)
	return tool, s.handleReportIssue
}

func (s *Server) handleReportIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := request.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("title is required"), nil
	}

	status := request.GetString("status", string(models.StatusSubmitted))

	issue := &models.Issue{
		Title:       title,
		Description: request.GetString("description", ""),
		Category:    request.GetString("category", ""),
		Status:      models.Status(status),
		PhotoURL:    request.GetString("photo_url", ""),
	}

	if err := s.store.CreateIssue(ctx, issue); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}

	data, err := json.Marshal(toIssueOut(issue))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// segnala_issue_show
func (s *Server) showIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("segnala_issue_show",
		mcp.WithDescription("Show one issue by id, including its workflow status and solution description."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleShowIssue
}

func (s *Server) handleShowIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if !store.ValidID(id) {
		return mcp.NewToolResultError(fmt.Sprintf("malformed issue id: %s", id)), nil
	}

	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("issue not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to get issue: %v", err)), nil
	}

	data, err := json.Marshal(toIssueOut(issue))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal issue: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// segnala_initiate_solution
func (s *Server) initiateSolutionTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("segnala_initiate_solution",
		mcp.WithDescription("Confirm a reported issue and start its deferred solution workflow. The issue is marked 'report confermato' immediately; the remaining transitions run in the background."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Issue id")),
	)
	return tool, s.handleInitiateSolution
}

func (s *Server) handleInitiateSolution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if !store.ValidID(id) {
		return mcp.NewToolResultError(fmt.Sprintf("malformed issue id: %s", id)), nil
	}

	if _, err := s.store.GetIssue(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("issue not found: %s", id)), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("failed to get issue: %v", err)), nil
	}

	if err := s.runner.Confirm(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to confirm issue: %v", err)), nil
	}
	s.runner.Spawn(id)

	return mcp.NewToolResultText(fmt.Sprintf(`{"id":%q,"message":"solution workflow initiated"}`, id)), nil
}
