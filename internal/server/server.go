// Package server is the composition root: it opens the store, seeds it,
// builds services and handlers, mounts routes and runs the HTTP server.
//
// Dependency chain:
//
//	config → Store (memory | sqlite) → FolderService/NoteService → handlers → chi router
//	                                   ↘ ws.Hub (change events)
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/forgenotes/internal/auth"
	"github.com/sakif/forgenotes/internal/config"
	"github.com/sakif/forgenotes/internal/handler"
	"github.com/sakif/forgenotes/internal/middleware"
	"github.com/sakif/forgenotes/internal/repository"
	"github.com/sakif/forgenotes/internal/repository/memory"
	sqliteRepo "github.com/sakif/forgenotes/internal/repository/sqlite"
	"github.com/sakif/forgenotes/internal/seed"
	"github.com/sakif/forgenotes/internal/service"
	"github.com/sakif/forgenotes/internal/ws"
)

const shutdownTimeout = 30 * time.Second

// Server owns the store and the websocket hub; both are released when Run
// returns.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	store  repository.Store
	hub    *ws.Hub
	tokens *auth.TokenService // nil when writes are open
}

// New opens and seeds the configured store and wires every route.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
		hub:    ws.NewHub(logger),
	}

	if err := s.seed(context.Background()); err != nil {
		store.Close()
		return nil, err
	}

	if cfg.WriteProtected() {
		s.tokens, err = auth.NewTokenService(cfg.JWTSecret)
		if err != nil {
			store.Close()
			return nil, err
		}
	}

	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil
	default:
		return memory.New(), nil
	}
}

// seed fills an empty store with the starter content. A sqlite file that
// already has data is left alone.
func (s *Server) seed(ctx context.Context) error {
	data, err := seed.Load(s.config.SeedFile)
	if err != nil {
		return err
	}

	seeded, err := seed.IfEmpty(ctx, s.store, data)
	if err != nil {
		return fmt.Errorf("seeding store: %w", err)
	}
	if seeded {
		s.logger.Info("store seeded",
			slog.Int("folders", len(data.Folders)),
			slog.Int("notes", len(data.Notes)),
		)
	}
	return nil
}

// setupRoutes mounts:
//
//	GET    /                          notes page
//	GET    /notes/{id}                rendered note with backlinks
//	GET    /healthz                   liveness
//	GET    /ws                        change events (WebSocket)
//	GET    /api/folders               POST /api/folders       DELETE /api/folders/{id}
//	GET    /api/notes[?folderId&q]    POST /api/notes
//	GET    /api/notes/{id}            PATCH /api/notes/{id}   DELETE /api/notes/{id}
//	GET    /api/notes/{id}/html|backlinks|export
//	POST   /api/render
//	GET    /api/password              POST /api/password/strength
//
// Mutating routes sit behind RequireAuth when a JWT secret is configured.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	folderService := service.NewFolderService(s.store, s.hub, s.logger)
	noteService := service.NewNoteService(s.store, s.hub, s.logger)

	folderHandler := handler.NewFolderHandler(folderService, s.logger)
	noteHandler := handler.NewNoteHandler(noteService, s.logger)
	pageHandler, err := handler.NewPageHandler(folderService, noteService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	s.router.Get("/", pageHandler.HandleIndex)
	s.router.Get("/notes/{id}", pageHandler.HandleNote)
	s.router.Get("/healthz", handler.HandleHealth)
	s.router.Handle("/ws", s.hub)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/folders", folderHandler.HandleList)
		r.Get("/notes", noteHandler.HandleList)
		r.Get("/notes/{id}", noteHandler.HandleGet)
		r.Get("/notes/{id}/html", noteHandler.HandleHTML)
		r.Get("/notes/{id}/backlinks", noteHandler.HandleBacklinks)
		r.Get("/notes/{id}/export", noteHandler.HandleExport)
		r.Post("/render", noteHandler.HandleRender)
		r.Get("/password", handler.HandleGeneratePassword)
		r.Post("/password/strength", handler.HandlePasswordStrength)

		r.Group(func(r chi.Router) {
			if s.tokens != nil {
				r.Use(auth.RequireAuth(s.tokens))
			}
			r.Post("/folders", folderHandler.HandleCreate)
			r.Delete("/folders/{id}", folderHandler.HandleDelete)
			r.Post("/notes", noteHandler.HandleCreate)
			r.Patch("/notes/{id}", noteHandler.HandleUpdate)
			r.Delete("/notes/{id}", noteHandler.HandleDelete)
		})
	})

	return nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves HTTP until ctx is cancelled, then drains in-flight requests
// for up to 30s and closes the store.
func (s *Server) Run(ctx context.Context) error {
	defer s.store.Close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("storage", s.config.StorageBackend),
			slog.Bool("write_protected", s.tokens != nil),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		s.logger.Info("shutdown signal received")

		// Websocket connections are hijacked and ignored by Shutdown;
		// stopping the hub closes them.
		stopHub()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
