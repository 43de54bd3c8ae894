// Package workflow drives the two-phase, timer-driven status progression for a
// reported issue: report confermato → in lavorazione → problema risolto.
//
// Each spawned run is detached from the request that triggered it and always
// runs to completion; there is no cancellation. Nothing guards against
// spawning the workflow twice for the same id — callers are expected not to
// re-initiate while a run is in flight, and concurrent runs race at the store
// with last-write-wins semantics.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segnala/segnala/internal/models"
	"github.com/segnala/segnala/internal/store"
	"github.com/segnala/segnala/internal/textgen"
)

// Phase is one of the workflow-controlled issue states, in strict forward
// order. A phase is never skipped and PhaseResolved is terminal.
type Phase int

const (
	PhaseConfirmed Phase = iota
	PhaseInProgress
	PhaseResolved
)

// Status returns the issue status value a phase writes to the store.
func (p Phase) Status() models.Status {
	switch p {
	case PhaseConfirmed:
		return models.StatusConfirmed
	case PhaseInProgress:
		return models.StatusInProgress
	case PhaseResolved:
		return models.StatusResolved
	}
	return ""
}

// Runner owns the deferred workflow executions. It is constructed once at
// process start with its store and generator handles and shared by every
// initiation.
type Runner struct {
	store     store.Store
	gen       textgen.Generator
	stepDelay time.Duration
	logger    *slog.Logger

	sleep func(ctx context.Context, d time.Duration)
	wg    sync.WaitGroup
}

// NewRunner creates a workflow runner. stepDelay is the wait before each of
// the two deferred transitions (30s in production; tests pass milliseconds).
func NewRunner(s store.Store, gen textgen.Generator, stepDelay time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:     s,
		gen:       gen,
		stepDelay: stepDelay,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Confirm synchronously moves the issue into PhaseConfirmed. It is the only
// transition performed inside the initiating request.
func (r *Runner) Confirm(ctx context.Context, id string) error {
	return r.store.UpdateIssueFields(ctx, id, map[string]any{
		"status": string(PhaseConfirmed.Status()),
	})
}

// Spawn launches the deferred two-phase progression for the given id and
// returns immediately. The run is bound to a fresh background context so it
// survives the initiating request.
func (r *Runner) Spawn(id string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(context.Background(), id)
	}()
}

// Wait blocks until every spawned workflow has finished. Used by tests and by
// graceful shutdown to drain in-flight runs.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) run(ctx context.Context, id string) {
	r.sleep(ctx, r.stepDelay)
	r.markInProgress(ctx, id)

	// Second wait starts unconditionally: the first transition's outcome is
	// not re-checked here.
	r.sleep(ctx, r.stepDelay)
	r.resolve(ctx, id)
}

// markInProgress performs the 1→2 transition. A missing record makes the
// update a store-level no-op, and any failure is logged and disregarded.
func (r *Runner) markInProgress(ctx context.Context, id string) {
	err := r.store.UpdateIssueFields(ctx, id, map[string]any{
		"status": string(PhaseInProgress.Status()),
	})
	if err != nil {
		r.logger.Warn("workflow: in-progress update failed", "issue_id", id, "error", err)
	}
}

// resolve performs the 2→3 transition: re-read the record, compute a solution
// text, and write status and solution in a single update. A record that
// disappeared since initiation ends the workflow without further writes.
func (r *Runner) resolve(ctx context.Context, id string) {
	issue, err := r.store.GetIssue(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Info("workflow: issue gone before resolution, stopping", "issue_id", id)
		return
	}
	if err != nil {
		r.logger.Warn("workflow: re-read failed, stopping", "issue_id", id, "error", err)
		return
	}

	solution := r.solutionText(ctx, issue)

	err = r.store.UpdateIssueFields(ctx, id, map[string]any{
		"status":               string(PhaseResolved.Status()),
		"solution_description": solution,
	})
	if err != nil {
		r.logger.Warn("workflow: resolution update failed", "issue_id", id, "error", err)
		return
	}
	r.logger.Info("workflow: issue resolved", "issue_id", id)
}

// solutionText asks the generator for a solution description. Generation
// trouble never aborts the workflow: any failure degrades to a fallback
// literal so the terminal state always carries some solution text.
func (r *Runner) solutionText(ctx context.Context, issue *models.Issue) string {
	text, err := r.gen.Generate(ctx, textgen.SolutionPrompt(issue))
	if err != nil {
		r.logger.Warn("workflow: solution generation failed, using fallback",
			"issue_id", issue.ID, "error", err)
		return fallbackSolution(err)
	}
	return strings.TrimSpace(text)
}

func fallbackSolution(err error) string {
	return fmt.Sprintf("automatic solution unavailable: generation failed (%v)", err)
}
