package store

import (
	"context"
	"errors"

	"github.com/oklog/ulid/v2"

	"github.com/segnala/segnala/internal/models"
)

// ErrNotFound is returned by GetIssue when no record matches the id. It is
// distinct from store-unavailable errors, which indicate the connection itself
// is broken.
var ErrNotFound = errors.New("issue not found")

// Store defines the persistence interface for segnala.
type Store interface {
	// CreateIssue persists a new issue. Any caller-supplied ID is discarded
	// and a store-assigned id is written back into the struct.
	CreateIssue(ctx context.Context, issue *models.Issue) error

	// GetIssue returns the issue with the given id, or ErrNotFound.
	GetIssue(ctx context.Context, id string) (*models.Issue, error)

	// ListIssues returns every issue in insertion order.
	ListIssues(ctx context.Context) ([]*models.Issue, error)

	// UpdateIssueFields merges the given fields into an existing record.
	// Unknown ids are a no-op; callers that need to report "not found"
	// must check existence first.
	UpdateIssueFields(ctx context.Context, id string, fields map[string]any) error

	// DeleteIssue removes an issue. Unknown ids are a no-op.
	DeleteIssue(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// ValidID reports whether id has the store's id format. Ids are ULIDs, so a
// malformed id can be rejected before any store round trip.
func ValidID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
