package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/segnala/segnala/internal/models"
	"github.com/segnala/segnala/internal/store"
	"github.com/segnala/segnala/internal/textgen"
	"github.com/segnala/segnala/internal/workflow"
)

// Server provides the REST API handlers.
type Server struct {
	store  store.Store
	gen    textgen.Generator
	runner *workflow.Runner
}

// NewServer creates a new API server. All dependencies are constructed once at
// process start and injected here.
func NewServer(s store.Store, gen textgen.Generator, runner *workflow.Runner) *Server {
	return &Server{
		store:  s,
		gen:    gen,
		runner: runner,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /issues/{$}", s.createIssue)
	mux.HandleFunc("GET /issues/{$}", s.listIssues)
	mux.HandleFunc("POST /issues_with_summary/{$}", s.createIssueWithSummary)
	mux.HandleFunc("POST /issues/{id}/initiate_solution", s.initiateSolution)
	mux.HandleFunc("POST /generate", s.generate)

	return corsMiddleware(recoverMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware converts a handler panic into a 500 with a detail string
// instead of leaking a stack trace to the client.
func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("handler panic", "path", r.URL.Path, "panic", rec)
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", rec))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// issueInput accepts an issue plus the alternate id field some clients send;
// both identity fields are stripped before insertion.
type issueInput struct {
	models.Issue
	AltID string `json:"_id"`
}

func decodeIssue(r *http.Request) (*models.Issue, error) {
	var in issueInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, err
	}
	in.Issue.ID = ""
	return &in.Issue, nil
}

// --- Issues ---

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := decodeIssue(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	s.insertAndRespond(w, r, issue)
}

func (s *Server) createIssueWithSummary(w http.ResponseWriter, r *http.Request) {
	issue, err := decodeIssue(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	// Generation trouble never fails the creation: degrade to a fallback
	// string describing the failure.
	text, err := s.gen.Generate(r.Context(), textgen.SummaryPrompt(issue.Description))
	if err != nil {
		slog.Warn("summary generation failed, using fallback", "error", err)
		issue.GeneratedSummary = fallbackSummary(err)
	} else {
		issue.GeneratedSummary = strings.TrimSpace(text)
	}

	s.insertAndRespond(w, r, issue)
}

func fallbackSummary(err error) string {
	return fmt.Sprintf("automatic summary unavailable: generation failed (%v)", err)
}

// insertAndRespond persists the issue, re-reads the stored record, and answers
// with the store's view of it.
func (s *Server) insertAndRespond(w http.ResponseWriter, r *http.Request, issue *models.Issue) {
	if err := s.store.CreateIssue(r.Context(), issue); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	created, err := s.store.GetIssue(r.Context(), issue.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("read back created issue: %v", err))
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.ListIssues(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	writeJSON(w, http.StatusOK, issues)
}

// --- Solution workflow ---

func (s *Server) initiateSolution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !store.ValidID(id) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed issue id: %s", id))
		return
	}

	if _, err := s.store.GetIssue(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.runner.Confirm(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Fire-and-forget: the workflow outlives this request.
	s.runner.Spawn(id)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"id":      id,
		"message": "solution workflow initiated",
	})
}

// --- Direct generation ---

func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	text, err := s.gen.Generate(r.Context(), req.Prompt)
	if err != nil {
		var upstream *textgen.UpstreamError
		if errors.As(err, &upstream) {
			writeError(w, upstream.StatusCode, err.Error())
			return
		}
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}
