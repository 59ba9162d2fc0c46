// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package web wires together the HTTP router, middleware chain, and all page
handlers of the local web surface into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/stagectl are allowed to import net/http server primitives.

The surface mirrors the hosted application's route map: public entry pages,
the role dispatcher, and role-gated dashboards. Everything else lands on the
under-construction page.
*/
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/studentsstage/stagectl/internal/guard"
	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/platform/config"
	"github.com/studentsstage/stagectl/internal/platform/constants"
	"github.com/studentsstage/stagectl/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in cmd/stagectl with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers every page route.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, handler *Handler) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(middleware.PanicRecovery(log))
	r.Use(chimw.CleanPath)

	// # Public Entry Pages
	r.Get(constants.RouteHome, handler.home)
	r.Get(constants.RouteLogin, handler.loginPage)
	r.Get(constants.RouteRegister, handler.registerPage)

	// Credential-bearing form submissions carry a per-client throttle.
	r.Group(func(forms chi.Router) {
		forms.Use(middleware.LoginThrottle(ctx))
		forms.Post(constants.RouteLogin, handler.loginSubmit)
		forms.Post(constants.RouteRegister, handler.registerSubmit)
	})

	// # Session Actions
	r.Get(constants.RouteDispatch, handler.dispatch)
	r.Post("/logout", handler.logout)
	r.Post("/theme", handler.setTheme)

	// # Role-Gated Dashboards
	r.Group(func(student chi.Router) {
		student.Use(guard.Require(handler.sessions, identity.RoleStudent))
		student.Get(constants.RouteStudentHome, handler.studentDashboard)
	})
	r.Group(func(tutor chi.Router) {
		tutor.Use(guard.Require(handler.sessions, identity.RoleTutor))
		tutor.Get(constants.RouteTutorHome, handler.tutorDashboard)
	})
	r.Group(func(admin chi.Router) {
		admin.Use(guard.Require(handler.sessions, identity.RoleAdmin))
		admin.Get(constants.RouteAdminHome, handler.adminDashboard)
		admin.Get(constants.RouteAdminUsers, handler.adminUsers)
		admin.Post(constants.RouteAdminUsers, handler.adminPromote)
	})

	// # Catch-All
	r.NotFound(handler.underConstruction)

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("local surface starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}
