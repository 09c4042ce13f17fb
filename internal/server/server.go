// Package server exposes the download service over HTTP: a static page,
// metadata preview, task submission, status polling and file retrieval.
package server

import (
	"context"
	"embed"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"

	"github.com/ytget/yt-web/internal/download"
	"github.com/ytget/yt-web/internal/extract"
	"github.com/ytget/yt-web/internal/history"
)

// Server timeouts
const (
	ReadHeaderTimeout = 5 * time.Second
	IdleTimeout       = 60 * time.Second
	ShutdownTimeout   = 15 * time.Second
)

//go:embed static/index.html
var staticFiles embed.FS

// HistoryLister lists archived tasks
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Server serves the HTTP API
type Server struct {
	downloads download.Downloader
	extractor extract.Extractor
	history   HistoryLister
	debug     bool
}

// Option configures a Server
type Option func(*Server)

// WithHistory enables GET /history
func WithHistory(h HistoryLister) Option {
	return func(s *Server) {
		s.history = h
	}
}

// WithDebug enables request logging
func WithDebug(debug bool) Option {
	return func(s *Server) {
		s.debug = debug
	}
}

// New creates a server on top of the download service and the extractor used for previews
func New(downloads download.Downloader, extractor extract.Extractor, opts ...Option) *Server {
	s := &Server{
		downloads: downloads,
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.debug {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", api(s.handleHealth))
	r.Post("/preview", api(s.handlePreview))
	r.Post("/download", api(s.handleDownload))
	r.Get("/status/{taskID}", api(s.handleStatus))
	r.Get("/file/{taskID}", s.handleFile)
	r.Get("/history", api(s.handleHistory))

	return r
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		IdleTimeout:       IdleTimeout,
		// no WriteTimeout: file downloads stream for as long as they need
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	log.Printf("Server listening on %s", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP shutdown")
	}
	log.Printf("Server stopped")
	return nil
}
