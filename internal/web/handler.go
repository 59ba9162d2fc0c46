// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/studentsstage/stagectl/internal/credstore"
	"github.com/studentsstage/stagectl/internal/guard"
	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/platform/apperr"
	"github.com/studentsstage/stagectl/internal/platform/constants"
	"github.com/studentsstage/stagectl/internal/platform/ctxutil"
	"github.com/studentsstage/stagectl/internal/session"
	"github.com/studentsstage/stagectl/internal/stageapi"
)

// # Definitions & Constructors

// Sessions is the session surface the pages consume. Satisfied by
// [*session.Controller].
type Sessions interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, email, password string) (json.RawMessage, error)
	Register(ctx context.Context, input stageapi.RegisterInput) (json.RawMessage, error)
	Logout(ctx context.Context)
	ClearError()
}

// Handler implements every page of the local surface.
//
// # Scope
//
// This handler manages transport concerns only (form parsing, redirects,
// template rendering); all session decisions live in the controller and
// all policy in the guard.
type Handler struct {
	sessions Sessions
	admin    *stageapi.AdminService
	prefs    *credstore.Prefs
	log      *slog.Logger
}

// NewHandler constructs a [*Handler] with its dependencies injected.
func NewHandler(sessions Sessions, admin *stageapi.AdminService, prefs *credstore.Prefs, log *slog.Logger) *Handler {
	return &Handler{sessions: sessions, admin: admin, prefs: prefs, log: log}
}

// # Public Entry Pages

func (handler *Handler) home(writer http.ResponseWriter, request *http.Request) {
	snapshot := handler.sessions.Snapshot()
	handler.render(writer, request, "home", pageData{
		Title:    "Student's Stage",
		Snapshot: snapshot,
	})
}

func (handler *Handler) loginPage(writer http.ResponseWriter, request *http.Request) {
	snapshot := handler.sessions.Snapshot()
	if snapshot.Authenticated {
		http.Redirect(writer, request, constants.RouteDispatch, http.StatusSeeOther)
		return
	}
	handler.render(writer, request, "login", pageData{Title: "Sign In", Snapshot: snapshot})
}

func (handler *Handler) registerPage(writer http.ResponseWriter, request *http.Request) {
	snapshot := handler.sessions.Snapshot()
	if snapshot.Authenticated {
		http.Redirect(writer, request, constants.RouteDispatch, http.StatusSeeOther)
		return
	}
	handler.render(writer, request, "register", pageData{Title: "Create Account", Snapshot: snapshot})
}

// # Form Submissions

func (handler *Handler) loginSubmit(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		http.Redirect(writer, request, constants.RouteLogin, http.StatusSeeOther)
		return
	}

	_, err := handler.sessions.Login(request.Context(),
		request.PostFormValue("email"),
		request.PostFormValue("password"),
	)
	if err != nil {
		// The controller published the reduced message; re-render with it.
		handler.render(writer, request, "login", pageData{
			Title:    "Sign In",
			Snapshot: handler.sessions.Snapshot(),
		})
		return
	}

	http.Redirect(writer, request, constants.RouteDispatch, http.StatusSeeOther)
}

func (handler *Handler) registerSubmit(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		http.Redirect(writer, request, constants.RouteRegister, http.StatusSeeOther)
		return
	}

	_, err := handler.sessions.Register(request.Context(), stageapi.RegisterInput{
		Username:        request.PostFormValue("username"),
		Email:           request.PostFormValue("email"),
		Password:        request.PostFormValue("password"),
		ConfirmPassword: request.PostFormValue("confirm_password"),
	})
	if err != nil {
		handler.render(writer, request, "register", pageData{
			Title:    "Create Account",
			Snapshot: handler.sessions.Snapshot(),
		})
		return
	}

	http.Redirect(writer, request, constants.RouteDispatch, http.StatusSeeOther)
}

// # Session Actions

// dispatch routes an authenticated session to its role home. Unknown roles
// land on the student dashboard.
func (handler *Handler) dispatch(writer http.ResponseWriter, request *http.Request) {
	snapshot := handler.sessions.Snapshot()
	if !snapshot.Authenticated {
		http.Redirect(writer, request, constants.RouteLogin, http.StatusSeeOther)
		return
	}
	http.Redirect(writer, request, guard.DispatchRoute(snapshot.Role), http.StatusSeeOther)
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.sessions.Logout(request.Context())
	http.Redirect(writer, request, constants.RouteLogin, http.StatusSeeOther)
}

func (handler *Handler) setTheme(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err == nil {
		if err := handler.prefs.SetTheme(request.PostFormValue("theme")); err != nil {
			ctxutil.GetLogger(request.Context()).Warn("theme rejected", slog.Any("error", err))
		}
	}
	referer := request.Referer()
	if referer == "" {
		referer = constants.RouteHome
	}
	http.Redirect(writer, request, referer, http.StatusSeeOther)
}

// # Dashboards

func (handler *Handler) studentDashboard(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, "dashboard", pageData{
		Title:    "Dashboard",
		Snapshot: handler.sessions.Snapshot(),
	})
}

func (handler *Handler) tutorDashboard(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, "dashboard", pageData{
		Title:    "Tutor Dashboard",
		Snapshot: handler.sessions.Snapshot(),
	})
}

func (handler *Handler) adminDashboard(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, "dashboard", pageData{
		Title:    "Admin Dashboard",
		Snapshot: handler.sessions.Snapshot(),
	})
}

// # User Management

func (handler *Handler) adminUsers(writer http.ResponseWriter, request *http.Request) {
	profiles, err := handler.admin.Profiles(request.Context())
	if err != nil {
		if handler.redirectIfLoggedOut(writer, request, err) {
			return
		}
		ctxutil.GetLogger(request.Context()).Error("profile listing failed", slog.Any("error", err))
	}

	users := make([]userRow, 0, len(profiles))
	for _, blob := range profiles {
		parsed := identity.Parse(blob)
		users = append(users, userRow{
			ID:       identity.ResolveID(parsed),
			Username: identity.ResolveUsername(parsed),
			Role:     identity.ResolveRole(parsed),
		})
	}

	handler.render(writer, request, "users", pageData{
		Title:    "User Management",
		Snapshot: handler.sessions.Snapshot(),
		Users:    users,
	})
}

func (handler *Handler) adminPromote(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseForm(); err != nil {
		http.Redirect(writer, request, constants.RouteAdminUsers, http.StatusSeeOther)
		return
	}

	role := identity.ParseRole(request.PostFormValue("role"))
	userID := request.PostFormValue("user_id")
	if err := handler.admin.AddToGroup(request.Context(), role, userID); err != nil {
		if handler.redirectIfLoggedOut(writer, request, err) {
			return
		}
		ctxutil.GetLogger(request.Context()).Error("group assignment failed",
			slog.String("user_id", userID),
			slog.String("role", string(role)),
			slog.Any("error", err),
		)
	}

	http.Redirect(writer, request, constants.RouteAdminUsers, http.StatusSeeOther)
}

// redirectIfLoggedOut completes the gateway's 401 interception on this
// surface: the session is already cleared, so the page force-navigates to
// the login route.
func (handler *Handler) redirectIfLoggedOut(writer http.ResponseWriter, request *http.Request, err error) bool {
	if !apperr.IsAuthRejected(err) {
		return false
	}
	http.Redirect(writer, request, constants.RouteLogin, http.StatusSeeOther)
	return true
}

// # Catch-All

// underConstruction is the catch-all. Unknown paths render a friendly page
// with a 200, never a bare 404.
func (handler *Handler) underConstruction(writer http.ResponseWriter, request *http.Request) {
	handler.render(writer, request, "under_construction", pageData{
		Title:    "Under Construction",
		Snapshot: handler.sessions.Snapshot(),
	})
}
