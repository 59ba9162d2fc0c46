// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package constants provides centralized, immutable values for the entire client.

It defines default timeouts, retry policies, and cross-cutting keys that are
shared between different layers of the system.

Categories:

  - Backend API: default base URL and authentication header shape.
  - Credential Storage: persisted key names and file names.
  - Background Refresh: retry counts and delays for role upgrades after login.
  - Local Web Surface: server timing and login throttling.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "stagectl"
	AppVersion = "0.1.0-dev"
)

// # Backend API

const (
	// DefaultAPIBaseURL is used when STAGE_API_URL is not set. The gateway
	// normalizes any override so that exactly one /api suffix remains.
	DefaultAPIBaseURL = "https://student-stage-backend-apis.onrender.com/api"

	// APISuffix is the required path suffix on every base URL.
	APISuffix = "/api"

	// AuthScheme is the Authorization header scheme expected by the backend.
	// The backend expects DRF-style "Token <value>", not "Bearer".
	AuthScheme = "Token"

	// HeaderAuthorization is the outgoing credential header.
	HeaderAuthorization = "Authorization"

	// HeaderXRequestID is the correlation header attached to every request.
	HeaderXRequestID = "X-Request-ID"
)

// # Credential Storage

const (
	// KeyAccessToken is the persisted key holding the opaque bearer token.
	KeyAccessToken = "access_token"

	// KeyUserData is the persisted key holding the raw user JSON blob.
	KeyUserData = "user_data"

	// KeyTheme is the persisted key holding the UI theme preference.
	KeyTheme = "theme"

	// CredentialsFileName is the on-disk file of the file-backed store.
	CredentialsFileName = "credentials.json"

	// PrefsFileName is the on-disk file holding non-credential preferences.
	PrefsFileName = "prefs.json"

	// RedisPrefixCredentials namespaces credential keys in the Redis store.
	RedisPrefixCredentials = "stage:credentials:"

	// StoreWatchInterval is the polling cadence for cross-process change
	// detection on the file store. Best effort only.
	StoreWatchInterval = 2 * time.Second
)

// # Background Refresh

const (
	// RefreshStartDelay is the pause between a successful login/register and
	// the first background attempt to fetch role-bearing profile data.
	RefreshStartDelay = 100 * time.Millisecond

	// RefreshAttempts bounds the background refresh retries after login.
	RefreshAttempts = 3

	// RefreshRetryDelay is the fixed wait between background refresh attempts.
	RefreshRetryDelay = 500 * time.Millisecond
)

// # Local Web Surface Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second
)

// # Login Throttling

const (
	// LoginRateLimitRPS is the login/register form submissions per second allowed per IP.
	LoginRateLimitRPS = 1.0

	// LoginRateLimitBurst is the burst capacity of the login throttle.
	LoginRateLimitBurst = 5

	// RateLimitCleanupInterval is how often idle throttle entries are removed.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Client Routes

const (
	RouteHome        = "/"
	RouteLogin       = "/login"
	RouteRegister    = "/register"
	RouteDispatch    = "/redirect"
	RouteStudentHome = "/dashboard"
	RouteTutorHome   = "/tutor/dashboard"
	RouteAdminHome   = "/admin/dashboard"
	RouteAdminUsers  = "/admin/users"
)

// # Theme Preferences

const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)
