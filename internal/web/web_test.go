// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package web_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsstage/stagectl/internal/credstore"
	"github.com/studentsstage/stagectl/internal/gateway"
	"github.com/studentsstage/stagectl/internal/platform/config"
	"github.com/studentsstage/stagectl/internal/session"
	"github.com/studentsstage/stagectl/internal/stageapi"
	"github.com/studentsstage/stagectl/internal/web"
)

// newSurface builds a full local surface against a fake backend: memory
// store, real controller, real services.
func newSurface(t *testing.T, backendHandler http.HandlerFunc) (http.Handler, *session.Controller) {
	t.Helper()

	backend := httptest.NewServer(backendHandler)
	t.Cleanup(backend.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := credstore.NewMemStore()
	gw := gateway.New(backend.URL, store, logger)
	auth := stageapi.NewAuthService(gw)
	admin := stageapi.NewAdminService(gw)

	ctrl := session.NewController(store, auth, logger, session.RefreshPolicy{
		StartDelay: time.Millisecond,
		RetryDelay: time.Millisecond,
		Attempts:   3,
	})
	t.Cleanup(ctrl.Dispose)
	gw.OnAuthRejected(ctrl.NoteAuthRejected)
	ctrl.Initialize(context.Background())

	prefs, err := credstore.NewPrefs(t.TempDir())
	require.NoError(t, err)
	handler := web.NewHandler(ctrl, admin, prefs, logger)
	server := web.NewServer(context.Background(), &config.Config{ServerPort: "0"}, logger, handler)
	return server.Router(), ctrl
}

func stageBackend(userBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			_, _ = w.Write([]byte(`{"Access Token":"tok-1","user":{"username":"amina"}}`))
		case "/api/me":
			_, _ = w.Write([]byte(userBody))
		case "/api/logout":
			w.WriteHeader(http.StatusOK)
		case "/api/profiles":
			_, _ = w.Write([]byte(`{"results":[{"id":1,"username":"amina","role":"TUTOR"},{"id":2,"username":"joseph"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func doLogin(t *testing.T, router http.Handler) {
	t.Helper()
	form := url.Values{"email": {"amina@stage.app"}, "password": {"pw"}}
	request := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusSeeOther, recorder.Code)
	require.Equal(t, "/redirect", recorder.Header().Get("Location"))
}

/*
TestLoginFlow verifies the full form journey: submit, dispatch, land on the
role's dashboard.
*/
func TestLoginFlow(t *testing.T) {
	router, ctrl := newSurface(t, stageBackend(`{"username":"amina","profile":{"role":"admin"}}`))
	doLogin(t, router)

	// Wait for the background role upgrade.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !ctrl.Snapshot().Role.Resolved() {
		time.Sleep(2 * time.Millisecond)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/redirect", nil))
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/admin/dashboard", recorder.Header().Get("Location"))

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "amina")
	assert.Contains(t, recorder.Body.String(), "ADMIN")
}

/*
TestLoginFailure verifies the reduced backend message is rendered on the
login page.
*/
func TestLoginFailure(t *testing.T) {
	router, _ := newSurface(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	form := url.Values{"email": {"amina@stage.app"}, "password": {"wrong"}}
	request := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Invalid credentials")
}

/*
TestGuardRedirects verifies that dashboards bounce anonymous visitors to
login and mismatched roles to the dispatcher.
*/
func TestGuardRedirects(t *testing.T) {
	router, _ := newSurface(t, stageBackend(`{"username":"amina","role":"STUDENT"}`))

	// Anonymous visitor.
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))

	// Student hitting the admin surface bounces through the dispatcher.
	doLogin(t, router)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		recorder = httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
		if recorder.Header().Get("Location") == "/redirect" {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	assert.Equal(t, "/redirect", recorder.Header().Get("Location"))

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/redirect", nil))
	assert.Equal(t, "/dashboard", recorder.Header().Get("Location"))
}

/*
TestUnknownRoleDashboard verifies the deliberate split behavior: routing
treats an unresolved role as a student, while the page reports the role as
not detected.
*/
func TestUnknownRoleDashboard(t *testing.T) {
	router, _ := newSurface(t, stageBackend(`{"username":"amina"}`))
	doLogin(t, router)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/redirect", nil))
	assert.Equal(t, "/dashboard", recorder.Header().Get("Location"))

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Role not detected")
}

/*
TestAdminUsers verifies the management table renders profiles from both the
list endpoint shapes the backend emits.
*/
func TestAdminUsers(t *testing.T) {
	router, ctrl := newSurface(t, stageBackend(`{"username":"root","role":"ADMIN"}`))
	doLogin(t, router)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !ctrl.Snapshot().Role.Resolved() {
		time.Sleep(2 * time.Millisecond)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "amina")
	assert.Contains(t, body, "joseph")
	assert.Contains(t, body, "TUTOR")
}

/*
TestBackendRejection_ForcesLogin verifies the 401 completion on this
surface: a rejected backend call during page rendering redirects straight to
the login route, and the session is gone for subsequent requests.
*/
func TestBackendRejection_ForcesLogin(t *testing.T) {
	router, ctrl := newSurface(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			_, _ = w.Write([]byte(`{"Access Token":"tok-1","user":{"username":"root"}}`))
		case "/api/me":
			_, _ = w.Write([]byte(`{"username":"root","role":"ADMIN"}`))
		case "/api/logout":
			w.WriteHeader(http.StatusOK)
		case "/api/profiles":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Invalid token."}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	doLogin(t, router)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !ctrl.Snapshot().Role.Resolved() {
		time.Sleep(2 * time.Millisecond)
	}

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/users", nil))
	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))

	// The session ended with the rejection; dashboards are gone too.
	assert.False(t, ctrl.Snapshot().Authenticated)
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}

/*
TestUnderConstruction verifies the catch-all page.
*/
func TestUnderConstruction(t *testing.T) {
	router, _ := newSurface(t, stageBackend(`{}`))

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/courses/history", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Under Construction")
}

/*
TestThemeSwitch verifies the preference round-trips into rendered pages.
*/
func TestThemeSwitch(t *testing.T) {
	router, _ := newSurface(t, stageBackend(`{}`))

	form := url.Values{"theme": {"dark"}}
	request := httptest.NewRequest(http.MethodPost, "/theme", strings.NewReader(form.Encode()))
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	require.Equal(t, http.StatusSeeOther, recorder.Code)

	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, recorder.Body.String(), `data-theme="dark"`)
}
