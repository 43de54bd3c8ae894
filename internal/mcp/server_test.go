package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segnala/segnala/internal/models"
	"github.com/segnala/segnala/internal/store"
	"github.com/segnala/segnala/internal/workflow"
)

// staticGenerator always returns the same text.
type staticGenerator struct {
	text string
}

func (g *staticGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.text, nil
}

func setupTestServer(t *testing.T) (*Server, store.Store, *workflow.Runner) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	runner := workflow.NewRunner(s, &staticGenerator{text: "Intervento completato."},
		10*time.Millisecond, slog.New(slog.DiscardHandler))
	return NewServer(s, runner), s, runner
}

// callToolReq builds a mcpgo.CallToolRequest with the given name and arguments.
func callToolReq(name string, args map[string]any) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultText extracts the concatenated text from a CallToolResult.
func resultText(t *testing.T, result *mcpgo.CallToolResult) string {
	t.Helper()
	var b strings.Builder
	for _, c := range result.Content {
		tc, ok := c.(mcpgo.TextContent)
		if ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// resultJSON parses the text result as JSON into the provided target.
func resultJSON(t *testing.T, result *mcpgo.CallToolResult, target any) {
	t.Helper()
	text := resultText(t, result)
	err := json.Unmarshal([]byte(text), target)
	require.NoError(t, err, "failed to parse result JSON: %s", text)
}

func seedIssue(t *testing.T, s store.Store, title string) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:       title,
		Description: "descrizione",
		Category:    "strade",
		Status:      models.StatusSubmitted,
	}
	require.NoError(t, s.CreateIssue(context.Background(), issue))
	return issue
}

func TestMCPServer_RegistersTools(t *testing.T) {
	srv, _, _ := setupTestServer(t)
	assert.NotNil(t, srv.MCPServer())
}

func TestListIssuesTool(t *testing.T) {
	srv, s, _ := setupTestServer(t)
	seedIssue(t, s, "Buca in via Roma")
	seedIssue(t, s, "Lampione spento")

	result, err := srv.handleListIssues(context.Background(), callToolReq("segnala_list_issues", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var issues []issueOut
	resultJSON(t, result, &issues)
	require.Len(t, issues, 2)
	assert.Equal(t, "Buca in via Roma", issues[0].Title)
	assert.Equal(t, "Lampione spento", issues[1].Title)
}

func TestReportIssueTool(t *testing.T) {
	srv, s, _ := setupTestServer(t)

	result, err := srv.handleReportIssue(context.Background(), callToolReq("segnala_report_issue", map[string]any{
		"title":       "Semaforo guasto",
		"description": "Lampeggia da due giorni",
		"category":    "illuminazione",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var created issueOut
	resultJSON(t, result, &created)
	assert.True(t, store.ValidID(created.ID))
	assert.Equal(t, "submitted", created.Status)

	got, err := s.GetIssue(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Semaforo guasto", got.Title)
}

func TestReportIssueTool_RequiresTitle(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	result, err := srv.handleReportIssue(context.Background(), callToolReq("segnala_report_issue", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestShowIssueTool(t *testing.T) {
	srv, s, _ := setupTestServer(t)
	issue := seedIssue(t, s, "Buca")

	result, err := srv.handleShowIssue(context.Background(), callToolReq("segnala_issue_show", map[string]any{
		"id": issue.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var got issueOut
	resultJSON(t, result, &got)
	assert.Equal(t, issue.ID, got.ID)
	assert.Equal(t, "Buca", got.Title)
}

func TestShowIssueTool_MalformedID(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	result, err := srv.handleShowIssue(context.Background(), callToolReq("segnala_issue_show", map[string]any{
		"id": "nope",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "malformed")
}

func TestInitiateSolutionTool(t *testing.T) {
	srv, s, runner := setupTestServer(t)
	issue := seedIssue(t, s, "Buca")
	ctx := context.Background()

	result, err := srv.handleInitiateSolution(ctx, callToolReq("segnala_initiate_solution", map[string]any{
		"id": issue.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), "initiated")

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)

	runner.Wait()

	got, err = s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "Intervento completato.", got.SolutionDescription)
}

func TestInitiateSolutionTool_NotFound(t *testing.T) {
	srv, _, _ := setupTestServer(t)

	result, err := srv.handleInitiateSolution(context.Background(), callToolReq("segnala_initiate_solution", map[string]any{
		"id": "01ARZ3NDEKTSV4RRFFQ69G5FAV",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "not found")
}
