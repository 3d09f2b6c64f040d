// Package server provides the HTTP server and handlers.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/bryan-buckman/feedsync/internal/app"
	"github.com/bryan-buckman/feedsync/internal/model"
	"github.com/bryan-buckman/feedsync/internal/opml"
	"github.com/bryan-buckman/feedsync/internal/rss"
	"github.com/bryan-buckman/feedsync/internal/state"
	"github.com/bryan-buckman/feedsync/internal/view"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Server is the main HTTP server.
type Server struct {
	app       *app.App
	poller    *rss.Poller
	store     *state.Store
	page      *view.Page
	router    chi.Router
	templates *template.Template
}

// New creates a new server. The page is only read; all writes go through
// the app and the poller.
func New(a *app.App, poller *rss.Poller, store *state.Store, page *view.Page) (*Server, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		app:       a,
		poller:    poller,
		store:     store,
		page:      page,
		templates: tmpl,
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Pages.
	r.Get("/", s.handleHome)
	r.Handle("/metrics", promhttp.Handler())

	// API.
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/input", s.handleInput)
		r.Post("/submit", s.handleSubmit)
		r.Post("/posts/{postID}/preview", s.handlePreview)
		r.Delete("/preview", s.handleClosePreview)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/import-opml", s.handleImportOPML)
		r.Get("/export-opml", s.handleExportOPML)
	})

	s.router = r
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Server starting on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("Shutting down server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

// --- Page Handlers ---

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "layout.html", s.page.Snapshot()); err != nil {
		log.Errorf("Template error: %v", err)
		http.Error(w, "Render error", http.StatusInternalServerError)
	}
}

// --- API Handlers ---

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.writeSnapshot(w, http.StatusOK)
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = model.FieldLink
	}
	if err := s.app.Input(r.Context(), req.Name, req.Value); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	err := s.app.Submit(r.Context())
	var ferrs model.FieldErrors
	if errors.As(err, &ferrs) {
		s.writeSnapshot(w, http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.app.OpenPost(r.Context(), chi.URLParam(r, "postID")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

func (s *Server) handleClosePreview(w http.ResponseWriter, r *http.Request) {
	if err := s.app.ClosePreview(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeSnapshot(w, http.StatusOK)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.poller.RunCycle(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleImportOPML(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("opml")
	if err != nil {
		http.Error(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	entries, err := opml.Parse(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to parse OPML: %v", err), http.StatusBadRequest)
		return
	}

	results, err := s.app.Import(r.Context(), opml.URLs(entries))
	if err != nil {
		s.writeError(w, err)
		return
	}

	imported := 0
	for _, res := range results {
		if res.State == model.StateFinished {
			imported++
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"imported": imported,
		"total":    len(entries),
		"results":  results,
	})
}

func (s *Server) handleExportOPML(w http.ResponseWriter, r *http.Request) {
	data, err := opml.Export("feedsync feeds", s.store.Feeds())
	if err != nil {
		http.Error(w, "Failed to export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", "attachment; filename=feedsync-feeds.opml")
	w.Write(data)
}

// --- Helpers ---

func (s *Server) writeSnapshot(w http.ResponseWriter, status int) {
	writeJSON(w, status, s.page.Snapshot())
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrBusy), errors.Is(err, rss.ErrCycleInProgress):
		status = http.StatusConflict
	case errors.Is(err, app.ErrPostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	default:
		log.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("Encode response: %v", err)
	}
}
