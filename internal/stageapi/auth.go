// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package stageapi contains the typed client operations for the Student's Stage
backend REST API.

# Architecture

Services in this package are thin, shape-aware wrappers over the [gateway]:
they know endpoint paths and response quirks (token header casing, optional
result envelopes, nested profiles) and nothing about session state. The
session controller composes them; they never touch the credential store
directly.
*/
package stageapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/studentsstage/stagectl/internal/gateway"
	"github.com/studentsstage/stagectl/internal/identity"
)

// ErrNoAccessToken is returned when a login/register response carries no
// recognizable token field.
var ErrNoAccessToken = errors.New("stageapi: no access token in response")

// AuthService wraps the authentication endpoints.
type AuthService struct {
	gw *gateway.Gateway
}

// NewAuthService constructs an [*AuthService] over the shared gateway.
func NewAuthService(gw *gateway.Gateway) *AuthService {
	return &AuthService{gw: gw}
}

// AuthResult is a successful login or register response.
type AuthResult struct {
	// Token is the opaque bearer token.
	Token string
	// User is the basic (pre-role) user payload.
	User json.RawMessage
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Login calls POST /login and extracts the token and basic user payload.
//
// # Token Header Casing
//
// The backend has been observed to name the token field either "Access Token"
// or "ACCESS TOKEN". Both are checked; behaviorally they are identical.
func (service *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var response map[string]json.RawMessage
	err := service.gw.Post(ctx, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &response)
	if err != nil {
		return nil, err
	}
	return extractAuthResult(response)
}

// Register calls POST /register. The response mirrors Login's shape.
func (service *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	var response map[string]json.RawMessage
	if err := service.gw.Post(ctx, "/register", input, &response); err != nil {
		return nil, err
	}
	return extractAuthResult(response)
}

// Logout calls POST /logout. The backend needs no body; callers treat
// failures as best-effort.
func (service *AuthService) Logout(ctx context.Context) error {
	return service.gw.Post(ctx, "/logout", nil, nil)
}

// Me calls GET /me and returns the raw current-user blob.
func (service *AuthService) Me(ctx context.Context) (json.RawMessage, error) {
	var user json.RawMessage
	if err := service.gw.Get(ctx, "/me", &user); err != nil {
		return nil, err
	}
	return user, nil
}

// FullUserData returns the current user with role information attached.
//
// # Flow
//
//  1. GET /me. If any known shape already carries a role, that blob is
//     complete.
//  2. Otherwise GET /profiles/{id} and graft the result under "profile".
//  3. Without an id the bare /me blob is returned as-is.
func (service *AuthService) FullUserData(ctx context.Context) (json.RawMessage, error) {
	user, err := service.Me(ctx)
	if err != nil {
		return nil, err
	}

	parsed := identity.Parse(user)
	if identity.ResolveRole(parsed).Resolved() {
		return user, nil
	}

	id := identity.ResolveID(parsed)
	if id == "" {
		return user, nil
	}

	var profile json.RawMessage
	if err := service.gw.Get(ctx, "/profiles/"+id, &profile); err != nil {
		return nil, fmt.Errorf("stageapi: profile lookup for user %s: %w", id, err)
	}

	return identity.MergeProfile(user, profile), nil
}

// extractAuthResult pulls the dual-cased token field and the user payload out
// of a login/register response.
func extractAuthResult(response map[string]json.RawMessage) (*AuthResult, error) {
	token := stringValue(response["Access Token"])
	if token == "" {
		token = stringValue(response["ACCESS TOKEN"])
	}
	if token == "" {
		return nil, ErrNoAccessToken
	}

	return &AuthResult{Token: token, User: response["user"]}, nil
}

func stringValue(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}
