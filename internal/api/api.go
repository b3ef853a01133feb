// Package api provides the JSON API and live event feed behind the
// embedded dashboard page.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joescharf/issuedash/internal/models"
	"github.com/joescharf/issuedash/internal/store"
	"github.com/joescharf/issuedash/internal/workflow"
)

// Server provides the REST API handlers.
type Server struct {
	store   store.Store
	ctrl    *workflow.Controller
	session workflow.Session
	log     *slog.Logger
}

// NewServer creates a new API server acting on behalf of the given
// signed-in session.
func NewServer(s store.Store, session workflow.Session) *Server {
	return &Server{
		store:   s,
		ctrl:    workflow.NewController(s),
		session: session,
		log:     slog.Default(),
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/session", s.getSession)
	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("POST /api/v1/issues", s.createIssue)
	mux.HandleFunc("PUT /api/v1/issues/{id}/status", s.updateIssueStatus)
	mux.HandleFunc("GET /api/v1/events", s.streamEvents)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
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

// --- Session ---

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"email": s.session.Email})
}

// --- Issues ---

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := s.store.ListIssues(r.Context(), store.IssueListFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	statusFilter := r.URL.Query().Get("status")
	if statusFilter == "" {
		statusFilter = models.FilterAll
	}
	priorityFilter := r.URL.Query().Get("priority")
	if priorityFilter == "" {
		priorityFilter = models.FilterAll
	}

	writeJSON(w, http.StatusOK, workflow.Filter(issues, statusFilter, priorityFilter))
}

type createIssueRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AssignedTo  string `json:"assignedTo"`
	// Confirm acknowledges a previously reported duplicate candidate.
	Confirm bool `json:"confirm"`
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var req createIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	priority := models.IssuePriority(req.Priority)
	if p, ok := models.ParsePriority(req.Priority); ok {
		priority = p
	}

	// The HTTP rendition of the confirmation dialog: without confirm,
	// a duplicate candidate aborts creation and is reported back so
	// the page can ask the user and retry with confirm set.
	var duplicate *models.Issue
	decide := func(dup *models.Issue) workflow.Decision {
		duplicate = dup
		return workflow.Abort
	}
	if req.Confirm {
		decide = workflow.AlwaysProceed
	}

	issue, err := s.ctrl.Create(r.Context(), s.session, workflow.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		AssignedTo:  req.AssignedTo,
	}, decide)
	switch {
	case errors.Is(err, workflow.ErrCreationAborted):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":     "a similar issue already exists",
			"duplicate": duplicate,
		})
		return
	case errors.Is(err, workflow.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, issue)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) updateIssueStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	newStatus := models.IssueStatus(req.Status)
	if st, ok := models.ParseStatus(req.Status); ok {
		newStatus = st
	}

	err = s.ctrl.ChangeStatus(r.Context(), issue, newStatus)
	switch {
	case errors.Is(err, workflow.ErrOpenToDone):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case errors.Is(err, workflow.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	updated, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// --- Live feed ---

// streamEvents serves the dashboard's long-lived subscription as
// Server-Sent Events. Each event carries the full ordered issue list;
// the page replaces its state wholesale on every event rather than
// patching. The subscription ends when the client disconnects.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	snapshots, cancel := s.store.Subscribe(r.Context())
	defer cancel()

	for snapshot := range snapshots {
		if snapshot == nil {
			snapshot = []*models.Issue{}
		}
		data, err := json.Marshal(snapshot)
		if err != nil {
			s.log.Error("marshal snapshot", "err", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: issues\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}
