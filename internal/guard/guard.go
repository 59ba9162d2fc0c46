// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package guard gates role-restricted surfaces on the current session snapshot.

A guard never renders a denial. Its only outcomes are waiting for the session
to settle, redirecting to login, redirecting to the role dispatcher, or
allowing the request through. A user with the wrong role is silently bounced
to their own home surface via the dispatcher.
*/
package guard

import (
	"net/http"

	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/platform/constants"
	"github.com/studentsstage/stagectl/internal/session"
)

// Outcome is the verdict of a guard evaluation.
type Outcome int

const (
	// Wait means the session is still validating and no decision can be made.
	Wait Outcome = iota

	// RedirectLogin means there is no authenticated session.
	RedirectLogin

	// RedirectDispatch means the session is authenticated with a different
	// role than the surface requires.
	RedirectDispatch

	// Allow admits the request.
	Allow
)

func (outcome Outcome) String() string {
	switch outcome {
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	case RedirectDispatch:
		return "redirect-dispatch"
	case Allow:
		return "allow"
	default:
		return "unknown"
	}
}

// Decide evaluates a snapshot against the role a surface requires.
//
// A zero required role means any authenticated session is admitted. An
// authenticated session whose role does not match is sent to the dispatcher,
// which routes it to its own home surface.
func Decide(snapshot session.Snapshot, required identity.Role) Outcome {
	if snapshot.Loading {
		return Wait
	}
	if !snapshot.Authenticated {
		return RedirectLogin
	}
	if required == identity.RoleNone || snapshot.Role == required {
		return Allow
	}
	return RedirectDispatch
}

// DispatchRoute maps a role to its home surface. An unresolved role falls
// through to the student dashboard.
func DispatchRoute(role identity.Role) string {
	switch role {
	case identity.RoleAdmin:
		return constants.RouteAdminHome
	case identity.RoleTutor:
		return constants.RouteTutorHome
	default:
		return constants.RouteStudentHome
	}
}

// Sessions supplies the current snapshot to the middleware. Satisfied by
// [*session.Controller].
type Sessions interface {
	Snapshot() session.Snapshot
}

// Require builds middleware admitting only sessions that carry the given
// role. Pass [identity.RoleNone] to require authentication without a
// specific role.
func Require(sessions Sessions, required identity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			snapshot := sessions.Snapshot()

			switch Decide(snapshot, required) {
			case Wait:
				// The local surface has no async render cycle to suspend, so
				// a still-validating session retries through the dispatcher.
				http.Redirect(writer, request, constants.RouteDispatch, http.StatusSeeOther)
			case RedirectLogin:
				http.Redirect(writer, request, constants.RouteLogin, http.StatusSeeOther)
			case RedirectDispatch:
				http.Redirect(writer, request, constants.RouteDispatch, http.StatusSeeOther)
			default:
				next.ServeHTTP(writer, request)
			}
		})
	}
}
