package textgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/segnala/segnala/internal/models"
)

func TestSolutionPrompt(t *testing.T) {
	issue := &models.Issue{
		Title:       "Buca in via Roma",
		Description: "Grossa buca davanti al civico 12",
		Category:    "strade",
		Status:      models.StatusInProgress,
	}

	prompt := SolutionPrompt(issue)

	assert.Contains(t, prompt, "Buca in via Roma")
	assert.Contains(t, prompt, "Grossa buca davanti al civico 12")
	assert.Contains(t, prompt, "strade")
	assert.Contains(t, prompt, "in lavorazione")
}

func TestSolutionPrompt_EmptyOptionalFields(t *testing.T) {
	issue := &models.Issue{Title: "Lampione spento"}

	prompt := SolutionPrompt(issue)

	assert.Contains(t, prompt, "Lampione spento")
	assert.Contains(t, prompt, "Category:")
}

func TestSummaryPrompt(t *testing.T) {
	longDesc := strings.Repeat("il marciapiede è dissestato ", 50)
	prompt := SummaryPrompt(longDesc)

	assert.Contains(t, prompt, "Summarize")
	assert.Contains(t, prompt, longDesc)
}
