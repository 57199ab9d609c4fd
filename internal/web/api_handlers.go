package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/layout"
)

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]string{"error": msg}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

type addRequest struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
}

type layoutResponse struct {
	Viewport   float64            `json:"viewport"`
	Placements []layout.Placement `json:"placements"`
}

// handleHealth reports liveness and the active store.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok", "store": s.store.Kind()}, http.StatusOK)
}

// handleAPIComments routes /api/comments requests.
func (s *Server) handleAPIComments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.apiListComments(w, r)
	case http.MethodPost:
		s.apiAddComment(w, r)
	default:
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) apiListComments(w http.ResponseWriter, r *http.Request) {
	max := parseMax(r.URL.Query().Get("max"), s.wallCfg.Max)

	items, err := s.store.FetchLatest(r.Context(), max)
	if err != nil {
		slog.Error("listing comments", "error", err)
		apiError(w, "comments unavailable", http.StatusServiceUnavailable)
		return
	}

	apiJSON(w, items, http.StatusOK)
}

func (s *Server) apiAddComment(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apiError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	id, err := s.store.Add(r.Context(), req.Name, req.Comment)
	if err != nil {
		if errors.Is(err, comment.ErrValidation) {
			apiError(w, "comment is required", http.StatusBadRequest)
			return
		}
		slog.Error("adding comment", "error", err)
		apiError(w, "comment could not be saved, try again", http.StatusServiceUnavailable)
		return
	}

	apiJSON(w, map[string]string{"id": id}, http.StatusCreated)
}

// handleAPILayout returns placements for the latest comments at a width.
func (s *Server) handleAPILayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		apiError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	viewport := parseWidth(q.Get("width"), s.wallCfg.Viewport)
	max := parseMax(q.Get("max"), s.wallCfg.Max)

	items, err := s.store.FetchLatest(r.Context(), max)
	if err != nil {
		slog.Error("loading comments for layout", "error", err)
		apiError(w, "comments unavailable", http.StatusServiceUnavailable)
		return
	}

	apiJSON(w, layoutResponse{Viewport: viewport, Placements: layout.Compute(items, viewport)}, http.StatusOK)
}
