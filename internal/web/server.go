// Package web provides the HTTP server for the comment form, the wall
// screen, and the JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evcraddock/comment-wall/internal/comment"
	"github.com/evcraddock/comment-wall/internal/logging"
	"github.com/evcraddock/comment-wall/internal/metrics"
	"github.com/evcraddock/comment-wall/internal/submit"
	"github.com/evcraddock/comment-wall/internal/wall"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Server is the wall HTTP server.
type Server struct {
	store     comment.Store
	submitter *submit.Submitter
	wallCfg   wall.Config
	templates *template.Template
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
	handler   http.Handler
}

// NewServer creates a web server on store. cfg configures every wall screen.
func NewServer(store comment.Store, cfg wall.Config) (*Server, error) {
	funcMap := template.FuncMap{
		"pct": tmplPercent,
		"px":  tmplPixels,
		"sec": tmplSeconds,
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	def := wall.DefaultConfig()
	if cfg.Max <= 0 {
		cfg.Max = def.Max
	}
	if cfg.Viewport <= 0 {
		cfg.Viewport = def.Viewport
	}

	s := &Server{
		store:     store,
		submitter: submit.New(store),
		wallCfg:   cfg,
		templates: tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		mux: http.NewServeMux(),
	}

	staticContent, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}

	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))
	s.mux.HandleFunc("/", s.handleSubmitPage)
	s.mux.HandleFunc("/wall", s.handleWall)
	s.mux.HandleFunc("/wall/ws", s.handleWallSocket)
	s.mux.HandleFunc("/api/comments", s.handleAPIComments)
	s.mux.HandleFunc("/api/layout", s.handleAPILayout)
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", metrics.Handler())

	s.handler = logging.RequestID(logging.RequestLogger(s.mux))

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down.
// Request contexts derive from ctx so open wall sockets close with it.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", "http://localhost"+srv.Addr, "store", s.store.Kind())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}

// Template helper functions

func tmplPercent(f float64) string {
	return fmt.Sprintf("%.4f%%", f)
}

func tmplPixels(i int) string {
	return fmt.Sprintf("%dpx", i)
}

func tmplSeconds(f float64) string {
	return fmt.Sprintf("%gs", f)
}
