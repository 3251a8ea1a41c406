// Package server wires the local web front: router, middleware, handlers,
// and the visit registry's lifecycle.
//
// ROUTES:
//
//	GET    /                                        feed page (HTML)
//	GET    /api/session                             who am I
//	POST   /api/session                             log in
//	DELETE /api/session                             log out
//	POST   /api/register                            create an account
//	GET    /api/feed                                public feed
//	GET    /api/profile                             my resources
//	POST   /api/profile/resources                   create a resource
//	DELETE /api/profile/resources/{id}?confirm=true delete a resource
//	POST   /api/resources/{id}/visit                open a detail view
//	DELETE /api/resources/{id}/visit                close it
//	GET    /api/resources/{id}                      view snapshot
//	POST   /api/resources/{id}/like                 toggle like
//	POST   /api/resources/{id}/comments             add a comment
//	DELETE /api/resources/{id}/comments/{commentID} delete own comment
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/resourcehub/internal/app"
	"github.com/sakif/resourcehub/internal/auth"
	"github.com/sakif/resourcehub/internal/handler"
	"github.com/sakif/resourcehub/internal/middleware"
	"github.com/sakif/resourcehub/internal/service"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 30 * time.Second

// Server is the local web front.
type Server struct {
	router *chi.Mux
	app    *app.App
	visits *service.VisitRegistry
	logger *slog.Logger
}

// New builds the router over a.
func New(a *app.App, logger *slog.Logger) (*Server, error) {
	if err := a.Config.EnsureVisitSecret(); err != nil {
		return nil, err
	}
	tokens, err := auth.NewVisitTokens(a.Config.VisitSecret)
	if err != nil {
		return nil, fmt.Errorf("server: visit tokens: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		app:    a,
		visits: service.NewVisitRegistry(func() *service.ResourceDetail { return a.NewDetail() }, a.Config.VisitTTL, logger),
		logger: logger,
	}

	if err := s.setupRoutes(tokens); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Visits exposes the visit registry.
func (s *Server) Visits() *service.VisitRegistry {
	return s.visits
}

func (s *Server) setupRoutes(tokens *auth.VisitTokens) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	pages, err := handler.NewPageHandler(s.app.Feed, s.app.Identity, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	s.router.Get("/", pages.HandleFeedPage)

	sessions := handler.NewSessionHandler(s.app.Auth, s.app.Identity, s.logger)
	feed := handler.NewFeedHandler(s.app.Feed, s.logger)
	profile := handler.NewProfileHandler(s.app.NewProfile(), s.logger)
	resources := handler.NewResourceHandler(s.visits, tokens, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/session", sessions.HandleWhoAmI)
		r.Post("/session", sessions.HandleLogin)
		r.Delete("/session", sessions.HandleLogout)
		r.Post("/register", sessions.HandleRegister)

		r.Get("/feed", feed.HandleFeed)

		r.Get("/profile", profile.HandleGet)
		r.Post("/profile/resources", profile.HandleCreate)
		r.Delete("/profile/resources/{id}", profile.HandleDelete)

		r.Route("/resources/{id}", func(r chi.Router) {
			r.Use(auth.OptionalVisit(tokens))
			r.Post("/visit", resources.HandleVisit)
			r.Delete("/visit", resources.HandleLeave)
			r.Get("/", resources.HandleGet)
			r.Post("/like", resources.HandleLike)
			r.Post("/comments", resources.HandleComment)
			r.Delete("/comments/{commentID}", resources.HandleDeleteComment)
		})
	})

	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully: stop
// accepting connections, let in-flight requests finish, close every mounted
// view.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.app.Config.Addr(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.visits.Start()
	defer s.visits.Stop()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.String("url", "http://localhost"+srv.Addr),
			slog.String("api", s.app.Config.APIURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
