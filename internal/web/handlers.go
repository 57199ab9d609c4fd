package web

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/submit"
	"github.com/evcraddock/comment-wall/internal/wall"
)

type formData struct {
	Form   submit.Form
	DoneMS int64
}

type wallData struct {
	View wall.View
}

// handleSubmitPage renders the comment form and accepts submissions.
func (s *Server) handleSubmitPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.render(w, "submit.html", s.newFormData(submit.Form{}), http.StatusOK)
	case http.MethodPost:
		s.handleSubmitPost(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSubmitPost posts a comment via HTMX or a plain form POST. The form
// comes back with the input kept on failure and cleared on success.
func (s *Server) handleSubmitPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	next, err := s.submitter.Submit(r.Context(), submit.Form{
		Name:    r.FormValue("name"),
		Comment: r.FormValue("comment"),
	})

	code := http.StatusOK
	switch {
	case errors.Is(err, comment.ErrValidation):
		code = http.StatusUnprocessableEntity
	case err != nil:
		code = http.StatusServiceUnavailable
	}

	// If HTMX request, return just the form partial
	if r.Header.Get("HX-Request") == "true" {
		s.render(w, "form-partial", s.newFormData(next), code)
		return
	}

	s.render(w, "submit.html", s.newFormData(next), code)
}

// handleWall renders the wall screen with the current comments. The page
// then switches to the live socket.
func (s *Server) handleWall(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items, err := s.store.FetchLatest(r.Context(), s.wallCfg.Max)
	if err != nil {
		slog.Warn("wall page fetch failed, rendering empty", "error", err)
		items = nil
	}

	viewport := parseWidth(r.URL.Query().Get("width"), s.wallCfg.Viewport)
	s.render(w, "wall.html", wallData{View: wall.Render(items, viewport)}, http.StatusOK)
}

func (s *Server) newFormData(f submit.Form) formData {
	return formData{Form: f, DoneMS: submit.DoneFor.Milliseconds()}
}

// render executes a named template into a buffer, then writes it with code.
func (s *Server) render(w http.ResponseWriter, name string, data interface{}, code int) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		http.Error(w, fmt.Sprintf("Error rendering template: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("writing response", "template", name, "error", err)
	}
}

// parseWidth reads a positive viewport width, falling back to def.
func parseWidth(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// parseMax reads a positive item cap, falling back to def.
func parseMax(raw string, def int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
