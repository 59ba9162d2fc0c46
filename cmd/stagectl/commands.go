// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/studentsstage/stagectl/internal/identity"
	"github.com/studentsstage/stagectl/internal/platform/constants"
	"github.com/studentsstage/stagectl/internal/session"
	"github.com/studentsstage/stagectl/internal/stageapi"
	"github.com/studentsstage/stagectl/internal/web"
)

// settleTimeout bounds how long interactive commands wait for the background
// role upgrade after a successful login or register.
const settleTimeout = 3 * time.Second

// # Session Commands

func runLogin(application *app, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "account email (prompted when omitted)")
	passwordFlag := flags.String("password", "", "account password (prompted when omitted)")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	application.ctrl.Initialize(ctx)

	address := *email
	if address == "" {
		fmt.Print("Email: ")
		if _, err := fmt.Scanln(&address); err != nil {
			return fmt.Errorf("read email: %w", err)
		}
	}

	password := *passwordFlag
	if password == "" {
		prompted, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		password = prompted
	}

	if _, err := application.ctrl.Login(ctx, address, password); err != nil {
		return errors.New(application.ctrl.Snapshot().Err)
	}

	snapshot := waitForRole(application)
	fmt.Printf("Signed in as %s (%s)\n", snapshot.Username, roleLabel(snapshot.Role))
	return nil
}

func runRegister(application *app, args []string) error {
	flags := flag.NewFlagSet("register", flag.ExitOnError)
	username := flags.String("username", "", "account username")
	email := flags.String("email", "", "account email")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return errors.New("register requires -username and -email")
	}

	ctx := context.Background()
	application.ctrl.Initialize(ctx)

	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}

	input := stageapi.RegisterInput{
		Username:        *username,
		Email:           *email,
		Password:        password,
		ConfirmPassword: confirm,
	}
	if _, err := application.ctrl.Register(ctx, input); err != nil {
		return errors.New(application.ctrl.Snapshot().Err)
	}

	snapshot := waitForRole(application)
	fmt.Printf("Account created. Signed in as %s (%s)\n", snapshot.Username, roleLabel(snapshot.Role))
	return nil
}

func runLogout(application *app, args []string) error {
	flags := flag.NewFlagSet("logout", flag.ExitOnError)
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	application.ctrl.Initialize(ctx)
	application.ctrl.Logout(ctx)
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(application *app, args []string) error {
	flags := flag.NewFlagSet("whoami", flag.ExitOnError)
	remote := flags.Bool("remote", false, "verify against the backend instead of the local store")
	if err := flags.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	if !application.store.IsAuthenticated(ctx) {
		fmt.Println("Not signed in.")
		return nil
	}

	user := application.store.GetUser(ctx)
	if *remote {
		fresh, err := application.auth.FullUserData(ctx)
		if err != nil {
			return fmt.Errorf("verify session: %w", err)
		}
		user = fresh
	}

	parsed := identity.Parse(user)
	fmt.Printf("%s (%s)\n", identity.ResolveUsername(parsed), roleLabel(identity.ResolveRole(parsed)))
	return nil
}

// # Profile Commands

func runProfile(application *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: stagectl profile <get|update> [flags]")
	}

	ctx := context.Background()
	switch args[0] {
	case "get":
		flags := flag.NewFlagSet("profile get", flag.ExitOnError)
		profileID := flags.String("id", "", "profile id (defaults to the signed-in user)")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}

		if *profileID != "" {
			profile, err := application.profile.Get(ctx, *profileID)
			if err != nil {
				return err
			}
			fmt.Println(string(profile))
			return nil
		}

		user, err := application.auth.FullUserData(ctx)
		if err != nil {
			return err
		}
		fmt.Println(string(user))
		return nil

	case "update":
		return runProfileUpdate(application, ctx, args[1:])

	default:
		return fmt.Errorf("unknown profile command %q", args[0])
	}
}

func runProfileUpdate(application *app, ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("profile update", flag.ExitOnError)
	imagePath := flags.String("image", "", "path to a profile picture to upload")
	if err := flags.Parse(args); err != nil {
		return err
	}

	user, err := application.auth.Me(ctx)
	if err != nil {
		return err
	}
	profileID := identity.ResolveID(identity.Parse(user))
	if profileID == "" {
		return errors.New("current user has no profile id")
	}

	fields, err := parseFieldArgs(flags.Args())
	if err != nil {
		return err
	}

	if *imagePath != "" {
		image, err := os.Open(*imagePath)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		defer image.Close()

		stringFields := make(map[string]string, len(fields))
		for key, value := range fields {
			stringFields[key] = fmt.Sprint(value)
		}

		updated, uerr := application.profile.UpdateWithImage(ctx, profileID, stringFields, filepath.Base(*imagePath), image)
		if uerr != nil {
			return uerr
		}
		fmt.Println(string(updated))
		return nil
	}

	if len(fields) == 0 {
		return errors.New("nothing to update: pass key=value pairs or -image")
	}

	updated, err := application.profile.Update(ctx, profileID, fields)
	if err != nil {
		return err
	}
	fmt.Println(string(updated))
	return nil
}

// # Admin Commands

func runAdmin(application *app, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: stagectl admin <users|promote> [flags]")
	}

	ctx := context.Background()
	switch args[0] {
	case "users":
		profiles, err := application.admin.Profiles(ctx)
		if err != nil {
			return err
		}
		for _, blob := range profiles {
			parsed := identity.Parse(blob)
			fmt.Printf("%s\t%s\t%s\n",
				identity.ResolveID(parsed),
				identity.ResolveUsername(parsed),
				roleLabel(identity.ResolveRole(parsed)),
			)
		}
		return nil

	case "promote":
		flags := flag.NewFlagSet("admin promote", flag.ExitOnError)
		userID := flags.String("user", "", "target user id")
		roleName := flags.String("role", "", "target role: STUDENT, TUTOR, or ADMIN")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *userID == "" || *roleName == "" {
			return errors.New("promote requires -user and -role")
		}

		role := identity.ParseRole(*roleName)
		if !role.Known() {
			return fmt.Errorf("unknown role %q", *roleName)
		}

		if err := application.admin.AddToGroup(ctx, role, *userID); err != nil {
			return err
		}
		fmt.Printf("User %s assigned to %s.\n", *userID, role)
		return nil

	default:
		return fmt.Errorf("unknown admin command %q", args[0])
	}
}

// # Local Surface

func runServe(application *app, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	port := flags.String("port", "", "listen port (overrides SERVER_PORT)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *port != "" {
		application.cfg.ServerPort = *port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application.ctrl.Initialize(ctx)

	// With the file driver, changes made by other stagectl processes are
	// folded back into the running session.
	if application.watcher != nil {
		go application.watcher.Watch(ctx, func() {
			application.ctrl.ResyncFromStore(ctx)
		})
	}

	handler := web.NewHandler(application.ctrl, application.admin, application.prefs, application.log)
	server := web.NewServer(ctx, application.cfg, application.log, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		application.log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return err
	}

	return server.Shutdown(constants.ShutdownTimeout)
}

// # Helpers

// promptPassword reads a password without echo when stdin is a terminal,
// falling back to a plain line read otherwise (pipes, tests).
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}

	var line string
	if _, err := fmt.Scanln(&line); err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return line, nil
}

// parseFieldArgs turns trailing key=value arguments into an update payload.
func parseFieldArgs(args []string) (map[string]any, error) {
	fields := make(map[string]any, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", arg)
		}
		fields[key] = value
	}
	return fields, nil
}

// waitForRole blocks until the background refresh resolves a role or the
// settle timeout passes. The session stays valid either way.
func waitForRole(application *app) session.Snapshot {
	deadline := time.Now().Add(settleTimeout)
	for time.Now().Before(deadline) {
		snapshot := application.ctrl.Snapshot()
		if snapshot.Role.Resolved() {
			return snapshot
		}
		time.Sleep(50 * time.Millisecond)
	}
	return application.ctrl.Snapshot()
}

func roleLabel(role identity.Role) string {
	if !role.Resolved() {
		return "role not detected"
	}
	return string(role)
}
