// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package guard_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studentsstage/stagectl/internal/guard"
	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/session"
)

/*
TestDecide verifies the guard verdict table: waiting sessions hold, anonymous
sessions go to login, role mismatches bounce to the dispatcher, and a match
or an unrestricted surface admits.
*/
func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		snapshot session.Snapshot
		required identity.Role
		want     guard.Outcome
	}{
		{
			name:     "still validating",
			snapshot: session.Snapshot{Loading: true},
			required: identity.RoleAdmin,
			want:     guard.Wait,
		},
		{
			name:     "anonymous hitting admin surface",
			snapshot: session.Snapshot{State: session.StateAnonymous},
			required: identity.RoleAdmin,
			want:     guard.RedirectLogin,
		},
		{
			name:     "student hitting admin surface",
			snapshot: session.Snapshot{State: session.StateAuthenticated, Authenticated: true, Role: identity.RoleStudent},
			required: identity.RoleAdmin,
			want:     guard.RedirectDispatch,
		},
		{
			name:     "admin hitting admin surface",
			snapshot: session.Snapshot{State: session.StateAuthenticated, Authenticated: true, Role: identity.RoleAdmin},
			required: identity.RoleAdmin,
			want:     guard.Allow,
		},
		{
			name:     "unresolved role hitting admin surface",
			snapshot: session.Snapshot{State: session.StateAuthenticated, Authenticated: true},
			required: identity.RoleAdmin,
			want:     guard.RedirectDispatch,
		},
		{
			name:     "any authenticated session on unrestricted surface",
			snapshot: session.Snapshot{State: session.StateAuthenticated, Authenticated: true, Role: identity.RoleTutor},
			required: identity.RoleNone,
			want:     guard.Allow,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, guard.Decide(tc.snapshot, tc.required))
		})
	}
}

/*
TestDispatchRoute verifies the role-to-home mapping, including the silent
student fallback for an unresolved role.
*/
func TestDispatchRoute(t *testing.T) {
	assert.Equal(t, "/admin/dashboard", guard.DispatchRoute(identity.RoleAdmin))
	assert.Equal(t, "/tutor/dashboard", guard.DispatchRoute(identity.RoleTutor))
	assert.Equal(t, "/dashboard", guard.DispatchRoute(identity.RoleStudent))
	assert.Equal(t, "/dashboard", guard.DispatchRoute(identity.RoleNone))
	assert.Equal(t, "/dashboard", guard.DispatchRoute(identity.Role("MODERATOR")))
}

type fixedSessions struct{ snapshot session.Snapshot }

func (f fixedSessions) Snapshot() session.Snapshot { return f.snapshot }

/*
TestRequire verifies the middleware translation of verdicts into redirects,
and that an admitted request reaches the wrapped handler.
*/
func TestRequire(t *testing.T) {
	probe := func(snapshot session.Snapshot, required identity.Role) (int, string, bool) {
		reached := false
		handler := guard.Require(fixedSessions{snapshot}, required)(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true }),
		)

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
		return recorder.Code, recorder.Header().Get("Location"), reached
	}

	code, location, reached := probe(session.Snapshot{State: session.StateAnonymous}, identity.RoleAdmin)
	assert.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/login", location)
	assert.False(t, reached)

	code, location, reached = probe(
		session.Snapshot{State: session.StateAuthenticated, Authenticated: true, Role: identity.RoleStudent},
		identity.RoleAdmin,
	)
	assert.Equal(t, http.StatusSeeOther, code)
	assert.Equal(t, "/redirect", location)
	assert.False(t, reached)

	code, _, reached = probe(
		session.Snapshot{State: session.StateAuthenticated, Authenticated: true, Role: identity.RoleAdmin},
		identity.RoleAdmin,
	)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, reached)
}
