// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package session owns the in-memory authentication state of the client.

# Architecture

The [Controller] is the single writer of session state. It coordinates the
credential store (persistence), the stageapi auth service (backend calls),
and the identity resolvers (normalization), and republishes derived values
through immutable [Snapshot] projections to subscribers.

It is an explicit, constructor-injected service with a defined lifecycle
(Initialize, Dispose), never a package-level singleton.

# State Machine

	UNINITIALIZED → VALIDATING → {AUTHENTICATED, ANONYMOUS}

AUTHENTICATED falls back to ANONYMOUS on logout or on a backend 401;
ANONYMOUS becomes AUTHENTICATED through a successful login or register.

# Background Refresh

Login and register publish the basic user immediately and upgrade to
role-bearing profile data in a bounded background task. Each task is keyed
by a session generation counter; logout bumps the counter, so a stale
refresh can never resurrect a session it no longer belongs to.
*/
package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/studentsstage/stagectl/internal/credstore"
	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/platform/apperr"
	"github.com/studentsstage/stagectl/internal/platform/constants"
	"github.com/studentsstage/stagectl/internal/stageapi"
)

// State is a phase of the session lifecycle.
type State string

const (
	StateUninitialized State = "UNINITIALIZED"
	StateValidating    State = "VALIDATING"
	StateAuthenticated State = "AUTHENTICATED"
	StateAnonymous     State = "ANONYMOUS"
)

// Snapshot is an immutable projection of session state. Derived fields are
// recomputed whenever the current user changes; consumers must never treat
// them as independently settable.
type Snapshot struct {
	State State

	// User is the raw backend user blob, shape not fixed.
	User json.RawMessage

	// Loading is true from controller creation until the initial session
	// validation completes.
	Loading bool

	// Err is the last human-readable error from a login/register attempt.
	Err string

	// Derived projections.
	Authenticated bool
	Role          identity.Role
	Username      string
}

// RefreshPolicy bounds the background profile upgrade after login/register.
type RefreshPolicy struct {
	StartDelay time.Duration
	RetryDelay time.Duration
	Attempts   int
}

// DefaultRefreshPolicy mirrors the production timings.
func DefaultRefreshPolicy() RefreshPolicy {
	return RefreshPolicy{
		StartDelay: constants.RefreshStartDelay,
		RetryDelay: constants.RefreshRetryDelay,
		Attempts:   constants.RefreshAttempts,
	}
}

// Controller is the session state machine. All exported methods are safe for
// concurrent use.
type Controller struct {
	store  credstore.Store
	auth   *stageapi.AuthService
	log    *slog.Logger
	policy RefreshPolicy

	lifecycleCtx context.Context
	dispose      context.CancelFunc

	mu         sync.Mutex
	state      State
	user       json.RawMessage
	loading    bool
	errMsg     string
	generation uint64
	observers  []func(Snapshot)
	background sync.WaitGroup
}

// NewController constructs a [*Controller] in the UNINITIALIZED state,
// seeded with whatever user blob the store already holds.
func NewController(store credstore.Store, auth *stageapi.AuthService, logger *slog.Logger, policy RefreshPolicy) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		store:        store,
		auth:         auth,
		log:          logger,
		policy:       policy,
		lifecycleCtx: ctx,
		dispose:      cancel,
		state:        StateUninitialized,
		user:         store.GetUser(ctx),
		loading:      true,
	}
}

// Dispose cancels every background task owned by the controller and waits
// for them to drain. The controller must not be used afterwards.
func (ctrl *Controller) Dispose() {
	ctrl.dispose()
	ctrl.background.Wait()
}

// OnChange subscribes to snapshot updates. The callback runs synchronously
// on the mutating goroutine and must not call back into the controller.
func (ctrl *Controller) OnChange(fn func(Snapshot)) {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	ctrl.observers = append(ctrl.observers, fn)
}

// Snapshot returns the current projection.
func (ctrl *Controller) Snapshot() Snapshot {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	return ctrl.snapshotLocked()
}

// # Operations

// Initialize validates any persisted session. Runs once after construction.
//
// Without a token the session is immediately ANONYMOUS. With one, a single
// refresh attempts to load complete profile data; regardless of its outcome
// the terminal state follows token presence, and loading ends.
func (ctrl *Controller) Initialize(ctx context.Context) {
	ctrl.setState(StateValidating)

	if !ctrl.store.IsAuthenticated(ctx) {
		ctrl.finishLoading(StateAnonymous)
		return
	}

	if err := ctrl.refreshOnce(ctx, ctrl.currentGeneration()); err != nil {
		// Validation errors are ambient: swallowed, never surfaced.
		ctrl.log.Warn("session validation failed", slog.Any("error", err))
	}

	if ctrl.store.IsAuthenticated(ctx) {
		ctrl.finishLoading(StateAuthenticated)
	} else {
		ctrl.finishLoading(StateAnonymous)
	}
}

// Login authenticates against the backend.
//
// On success the basic (pre-role) user payload is persisted and published
// immediately so that callers can proceed, and a background refresh upgrades
// to role-bearing data. On failure the reduced error message is published as
// the session error.
func (ctrl *Controller) Login(ctx context.Context, email, password string) (json.RawMessage, error) {
	ctrl.resetError()

	result, err := ctrl.auth.Login(ctx, email, password)
	if err != nil {
		ctrl.publishError(apperr.DisplayMessage(err, "Login failed. Please check your credentials."))
		return nil, err
	}

	generation := ctrl.beginSession(ctx, result)
	ctrl.scheduleBackgroundRefresh(generation)
	return result.User, nil
}

// Register enrolls a new account. Mirrors Login's token extraction and
// background-refresh pattern; field-map validation errors are reduced to the
// first error of the first offending field.
func (ctrl *Controller) Register(ctx context.Context, input stageapi.RegisterInput) (json.RawMessage, error) {
	ctrl.resetError()

	result, err := ctrl.auth.Register(ctx, input)
	if err != nil {
		ctrl.publishError(apperr.DisplayMessage(err, "Registration failed. Please try again."))
		return nil, err
	}

	generation := ctrl.beginSession(ctx, result)
	ctrl.scheduleBackgroundRefresh(generation)
	return result.User, nil
}

// Refresh synchronously upgrades the session to complete profile data.
func (ctrl *Controller) Refresh(ctx context.Context) error {
	return ctrl.refreshOnce(ctx, ctrl.currentGeneration())
}

// Logout ends the session. The backend call is best-effort; local state is
// cleared unconditionally and the session generation is bumped so in-flight
// background refreshes become no-ops.
func (ctrl *Controller) Logout(ctx context.Context) {
	if err := ctrl.auth.Logout(ctx); err != nil {
		ctrl.log.Debug("logout call failed", slog.Any("error", err))
	}

	// The generation bump, state reset, and store clear share one lock hold
	// so an in-flight refresh either lands entirely before the logout or
	// observes the stale generation and writes nothing.
	ctrl.mu.Lock()
	ctrl.generation++
	ctrl.user = nil
	ctrl.errMsg = ""
	ctrl.state = StateAnonymous
	if err := ctrl.store.ClearAuthData(ctx); err != nil {
		ctrl.log.Warn("failed to clear credentials on logout", slog.Any("error", err))
	}
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
}

// ClearError dismisses the published session error.
func (ctrl *Controller) ClearError() {
	ctrl.resetError()
}

// NoteAuthRejected resets in-memory state after the gateway handled a 401.
func (ctrl *Controller) NoteAuthRejected() {
	ctrl.mu.Lock()
	ctrl.generation++
	ctrl.user = nil
	ctrl.state = StateAnonymous

	// The gateway already cleared the store, but a refresh racing the 401
	// may have re-persisted between that clear and this bump. Clearing
	// again under the lock undoes any such write.
	if err := ctrl.store.ClearAuthData(ctrl.lifecycleCtx); err != nil {
		ctrl.log.Warn("failed to clear credentials after auth rejection", slog.Any("error", err))
	}

	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
}

// ResyncFromStore re-reads the persisted user blob after another process
// changed the store. Best effort only.
func (ctrl *Controller) ResyncFromStore(ctx context.Context) {
	user := ctrl.store.GetUser(ctx)
	authenticated := ctrl.store.IsAuthenticated(ctx)

	ctrl.mu.Lock()
	ctrl.user = user
	if authenticated {
		ctrl.state = StateAuthenticated
	} else {
		ctrl.state = StateAnonymous
	}
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
}

// # Internals

// beginSession persists and publishes a fresh authenticated session, bumping
// the generation so refreshes of any earlier session are orphaned.
func (ctrl *Controller) beginSession(ctx context.Context, result *stageapi.AuthResult) uint64 {
	if err := ctrl.store.SetAuthData(ctx, result.Token, result.User); err != nil {
		ctrl.log.Warn("failed to persist credentials", slog.Any("error", err))
	}

	ctrl.mu.Lock()
	ctrl.generation++
	generation := ctrl.generation
	ctrl.user = result.User
	ctrl.state = StateAuthenticated
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
	return generation
}

// scheduleBackgroundRefresh launches the bounded role upgrade for the given
// session generation. Failures are logged, never surfaced: the user stays
// logged in with whatever role information is available.
func (ctrl *Controller) scheduleBackgroundRefresh(generation uint64) {
	ctrl.background.Add(1)
	go func() {
		defer ctrl.background.Done()

		select {
		case <-time.After(ctrl.policy.StartDelay):
		case <-ctrl.lifecycleCtx.Done():
			return
		}

		var lastErr error
		for attempt := 1; attempt <= ctrl.policy.Attempts; attempt++ {
			if ctrl.lifecycleCtx.Err() != nil || ctrl.currentGeneration() != generation {
				return
			}

			lastErr = ctrl.refreshOnce(ctrl.lifecycleCtx, generation)
			if lastErr == nil {
				return
			}

			if attempt < ctrl.policy.Attempts {
				select {
				case <-time.After(ctrl.policy.RetryDelay):
				case <-ctrl.lifecycleCtx.Done():
					return
				}
			}
		}

		ctrl.log.Warn("background profile refresh abandoned",
			slog.Int("attempts", ctrl.policy.Attempts),
			slog.Any("error", lastErr),
		)
	}()
}

// refreshOnce fetches complete user data and, if the session generation is
// still current, persists and publishes it.
func (ctrl *Controller) refreshOnce(ctx context.Context, generation uint64) error {
	user, err := ctrl.auth.FullUserData(ctx)
	if err != nil {
		return err
	}

	// The session may have ended or been replaced while the fetch was in
	// flight. The generation recheck, the token read, and the persist share
	// one lock hold so they serialize with the bump in Logout and
	// NoteAuthRejected; a stale generation writes nothing, anywhere.
	ctrl.mu.Lock()
	if ctrl.generation != generation {
		ctrl.mu.Unlock()
		return nil
	}

	if token := ctrl.store.GetToken(ctx); token != "" {
		if err := ctrl.store.SetAuthData(ctx, token, user); err != nil {
			ctrl.log.Warn("failed to persist refreshed user", slog.Any("error", err))
		}
	}

	ctrl.user = user
	ctrl.state = StateAuthenticated
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
	return nil
}

func (ctrl *Controller) currentGeneration() uint64 {
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	return ctrl.generation
}

func (ctrl *Controller) setState(state State) {
	ctrl.mu.Lock()
	ctrl.state = state
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
}

func (ctrl *Controller) finishLoading(state State) {
	ctrl.mu.Lock()
	ctrl.state = state
	ctrl.loading = false
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
}

func (ctrl *Controller) publishError(message string) {
	ctrl.mu.Lock()
	ctrl.errMsg = message
	snapshot := ctrl.snapshotLocked()
	observers := ctrl.observersLocked()
	ctrl.mu.Unlock()

	notify(observers, snapshot)
}

func (ctrl *Controller) resetError() {
	ctrl.mu.Lock()
	ctrl.errMsg = ""
	ctrl.mu.Unlock()
}

// snapshotLocked recomputes the derived projections. Callers hold ctrl.mu.
func (ctrl *Controller) snapshotLocked() Snapshot {
	parsed := identity.Parse(ctrl.user)
	return Snapshot{
		State:         ctrl.state,
		User:          ctrl.user,
		Loading:       ctrl.loading,
		Err:           ctrl.errMsg,
		Authenticated: ctrl.store.IsAuthenticated(ctrl.lifecycleCtx),
		Role:          identity.ResolveRole(parsed),
		Username:      identity.ResolveUsername(parsed),
	}
}

func (ctrl *Controller) observersLocked() []func(Snapshot) {
	observers := make([]func(Snapshot), len(ctrl.observers))
	copy(observers, ctrl.observers)
	return observers
}

func notify(observers []func(Snapshot), snapshot Snapshot) {
	for _, observer := range observers {
		observer(snapshot)
	}
}
