package textgen

import (
	"strings"

	"github.com/segnala/segnala/internal/models"
)

// SolutionPrompt builds the prompt used to generate a solution description for
// a confirmed issue. It includes title, description, category, and the current
// status so the model sees where the report stands.
func SolutionPrompt(issue *models.Issue) string {
	var sb strings.Builder
	sb.WriteString("You are the operations desk of a municipality. A citizen reported the following issue:\n\n")
	sb.WriteString("Title: ")
	sb.WriteString(issue.Title)
	sb.WriteString("\nDescription: ")
	sb.WriteString(issue.Description)
	sb.WriteString("\nCategory: ")
	sb.WriteString(issue.Category)
	sb.WriteString("\nStatus: ")
	sb.WriteString(string(issue.Status))
	sb.WriteString("\n\nDescribe in a short paragraph the concrete intervention carried out to resolve this issue, addressed to the citizen who reported it.")
	return sb.String()
}

// SummaryPrompt builds the prompt used to summarize a report's description at
// creation time.
func SummaryPrompt(description string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following citizen report in one sentence, keeping the essential facts:\n\n")
	sb.WriteString(description)
	return sb.String()
}
