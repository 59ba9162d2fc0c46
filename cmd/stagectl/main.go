// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

// Command stagectl is the local companion client for the Student's Stage
// platform.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the credential store (file, memory, or redis).
//  4. Wire the gateway, backend services, and session controller.
//  5. Dispatch the requested subcommand.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/studentsstage/stagectl/internal/credstore"
	"github.com/studentsstage/stagectl/internal/gateway"
	"github.com/studentsstage/stagectl/internal/platform/config"
	"github.com/studentsstage/stagectl/internal/platform/constants"
	"github.com/studentsstage/stagectl/internal/session"
	"github.com/studentsstage/stagectl/internal/stageapi"
)

// app bundles every wired dependency a subcommand may need.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	store   credstore.Store
	watcher *credstore.FileStore // nil unless the file driver is active
	prefs   *credstore.Prefs
	gw      *gateway.Gateway
	auth    *stageapi.AuthService
	profile *stageapi.ProfileService
	admin   *stageapi.AdminService
	ctrl    *session.Controller
}

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Structured logs go to stderr; stdout is reserved for command output.
	rawLog := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	log := rawLog.With(slog.String("app", constants.AppName))
	slog.SetDefault(log)

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", constants.AppName))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	// ── 3. Credential Store ───────────────────────────────────────────────
	application := &app{cfg: cfg, log: log}

	switch cfg.StoreDriver {
	case "file":
		fileStore, err := credstore.NewFileStore(cfg.StoreDir)
		must(log, err, "open credential store")
		application.store = fileStore
		application.watcher = fileStore
	case "memory":
		application.store = credstore.NewMemStore()
	case "redis":
		client, err := credstore.NewRedisClient(context.Background(), cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			if cerr := client.Close(); cerr != nil {
				log.Error("redis close error", slog.Any("error", cerr))
			}
		}()
		application.store = credstore.NewRedisStore(client, log)
	default:
		must(log, fmt.Errorf("unknown store driver %q", cfg.StoreDriver), "open credential store")
	}

	prefs, err := credstore.NewPrefs(cfg.StoreDir)
	must(log, err, "open preferences")
	application.prefs = prefs

	// ── 4. Backend Wiring ─────────────────────────────────────────────────
	application.gw = gateway.New(cfg.APIBaseURL, application.store, log)
	application.auth = stageapi.NewAuthService(application.gw)
	application.profile = stageapi.NewProfileService(application.gw)
	application.admin = stageapi.NewAdminService(application.gw)

	application.ctrl = session.NewController(application.store, application.auth, log, session.DefaultRefreshPolicy())
	defer application.ctrl.Dispose()
	application.gw.OnAuthRejected(application.ctrl.NoteAuthRejected)

	// ── 5. Subcommand Dispatch ────────────────────────────────────────────
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	var runErr error
	switch os.Args[1] {
	case "login":
		runErr = runLogin(application, os.Args[2:])
	case "register":
		runErr = runRegister(application, os.Args[2:])
	case "logout":
		runErr = runLogout(application, os.Args[2:])
	case "whoami":
		runErr = runWhoami(application, os.Args[2:])
	case "profile":
		runErr = runProfile(application, os.Args[2:])
	case "admin":
		runErr = runAdmin(application, os.Args[2:])
	case "serve":
		runErr = runServe(application, os.Args[2:])
	case "version":
		fmt.Println(constants.AppName + " " + constants.AppVersion)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: stagectl <command> [flags]

Session:
  login       Sign in and persist credentials
  register    Create an account and sign in
  logout      End the session and clear credentials
  whoami      Show the signed-in user and role

Profile:
  profile get [-id <id>]          Show a profile (default: your own)
  profile update [k=v ...]        Update profile fields
  profile update -image <path>    Update with a profile picture

Administration (ADMIN role):
  admin users                     List all user profiles
  admin promote -user <id> -role <role>

Local surface:
  serve       Run the local web dashboard

Other:
  version     Print the version
  help        Show this help

Environment:
  STAGE_API_URL       Backend base URL (default ` + constants.DefaultAPIBaseURL + `)
  STAGE_STORE_DRIVER  Credential store driver: file, memory, redis
  STAGE_REDIS_URL     Redis URL when the redis driver is selected
`)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
