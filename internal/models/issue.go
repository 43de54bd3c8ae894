package models

import "time"

// Status is the lifecycle state of a reported issue. Values are free text on
// the wire; the three workflow-controlled states below advance in strict
// forward order and are never skipped.
type Status string

const (
	// StatusSubmitted is the conventional initial status supplied by reporters.
	StatusSubmitted Status = "submitted"
	// StatusConfirmed is set synchronously when a solution workflow is initiated.
	StatusConfirmed Status = "report confermato"
	// StatusInProgress is set by the workflow after the first delay.
	StatusInProgress Status = "in lavorazione"
	// StatusResolved is the terminal workflow state, set together with the
	// generated solution text.
	StatusResolved Status = "problema risolto"
)

// Issue represents one reported municipal problem.
//
// Title, Description, Category and PhotoURL are immutable after creation; the
// workflow only ever touches Status and SolutionDescription.
type Issue struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	Category            string    `json:"category"`
	Status              Status    `json:"status"`
	PhotoURL            string    `json:"photoUrl,omitempty"`
	GeneratedSummary    string    `json:"generated_summary,omitempty"`
	SolutionDescription string    `json:"solution_description,omitempty"`
	CreatedAt           time.Time `json:"createdAt,omitzero"`
	UpdatedAt           time.Time `json:"-"`
}
