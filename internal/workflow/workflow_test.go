package workflow

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segnala/segnala/internal/models"
	"github.com/segnala/segnala/internal/store"
)

// stubGenerator returns a fixed text or error and counts calls.
type stubGenerator struct {
	text  string
	err   error
	calls atomic.Int32
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls.Add(1)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestIssue(t *testing.T, s store.Store) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:       "Buca in via Roma",
		Description: "Grossa buca davanti al civico 12",
		Category:    "strade",
		Status:      models.StatusSubmitted,
	}
	require.NoError(t, s.CreateIssue(context.Background(), issue))
	return issue
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestPhaseStatus_Order(t *testing.T) {
	assert.Equal(t, models.StatusConfirmed, PhaseConfirmed.Status())
	assert.Equal(t, models.StatusInProgress, PhaseInProgress.Status())
	assert.Equal(t, models.StatusResolved, PhaseResolved.Status())
	assert.True(t, PhaseConfirmed < PhaseInProgress && PhaseInProgress < PhaseResolved)
}

func TestConfirm(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	r := NewRunner(s, &stubGenerator{text: "x"}, time.Millisecond, quietLogger())

	require.NoError(t, r.Confirm(context.Background(), issue.ID))

	got, err := s.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Empty(t, got.SolutionDescription)
}

func TestMarkInProgress(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	r := NewRunner(s, &stubGenerator{text: "x"}, time.Millisecond, quietLogger())

	r.markInProgress(context.Background(), issue.ID)

	got, err := s.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status)
	assert.Empty(t, got.SolutionDescription, "solution must stay unset before the final phase")
}

func TestMarkInProgress_MissingRecord(t *testing.T) {
	s := newTestStore(t)
	r := NewRunner(s, &stubGenerator{text: "x"}, time.Millisecond, quietLogger())

	// Harmless no-op; the workflow would continue to the second wait anyway.
	r.markInProgress(context.Background(), "01ARZ3NDEKTSV4RRFFQ69G5FAV")

	issues, err := s.ListIssues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestResolve_TrimsGeneratedText(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	gen := &stubGenerator{text: "  La buca è stata riasfaltata.  \n"}
	r := NewRunner(s, gen, time.Millisecond, quietLogger())

	r.markInProgress(context.Background(), issue.ID)
	r.resolve(context.Background(), issue.ID)

	got, err := s.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "La buca è stata riasfaltata.", got.SolutionDescription)
	assert.EqualValues(t, 1, gen.calls.Load())
}

func TestResolve_GenerationFailureUsesFallback(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	gen := &stubGenerator{err: errors.New("upstream exploded")}
	r := NewRunner(s, gen, time.Millisecond, quietLogger())

	r.resolve(context.Background(), issue.ID)

	got, err := s.GetIssue(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status, "generation failure must not abort the workflow")
	assert.Contains(t, got.SolutionDescription, "generation failed")
	assert.Contains(t, got.SolutionDescription, "upstream exploded")
}

func TestResolve_RecordDeletedStopsSilently(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	gen := &stubGenerator{text: "x"}
	r := NewRunner(s, gen, time.Millisecond, quietLogger())

	require.NoError(t, s.DeleteIssue(context.Background(), issue.ID))

	r.resolve(context.Background(), issue.ID)

	assert.EqualValues(t, 0, gen.calls.Load(), "no generation for a vanished record")
	issues, err := s.ListIssues(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues, "no further writes after the record is gone")
}

func TestSpawn_FullProgression(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	gen := &stubGenerator{text: "Intervento completato."}
	r := NewRunner(s, gen, 50*time.Millisecond, quietLogger())
	ctx := context.Background()

	require.NoError(t, r.Confirm(ctx, issue.ID))
	r.Spawn(issue.ID)

	// Middle phase: in lavorazione with no solution attached yet.
	require.Eventually(t, func() bool {
		got, err := s.GetIssue(ctx, issue.ID)
		return err == nil && got.Status == models.StatusInProgress && got.SolutionDescription == ""
	}, 2*time.Second, 2*time.Millisecond)

	r.Wait()

	got, err := s.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, got.Status)
	assert.Equal(t, "Intervento completato.", got.SolutionDescription)
}

func TestSpawn_DeletedBetweenPhases(t *testing.T) {
	s := newTestStore(t)
	issue := newTestIssue(t, s)
	gen := &stubGenerator{text: "x"}
	r := NewRunner(s, gen, 50*time.Millisecond, quietLogger())
	ctx := context.Background()

	require.NoError(t, r.Confirm(ctx, issue.ID))
	r.Spawn(issue.ID)

	require.Eventually(t, func() bool {
		got, err := s.GetIssue(ctx, issue.ID)
		return err == nil && got.Status == models.StatusInProgress
	}, 2*time.Second, 2*time.Millisecond)

	require.NoError(t, s.DeleteIssue(ctx, issue.ID))

	r.Wait()

	assert.EqualValues(t, 0, gen.calls.Load())
	issues, err := s.ListIssues(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
}
