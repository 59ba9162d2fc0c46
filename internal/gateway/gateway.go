// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package gateway provides the single configured HTTP client for all backend
calls.

Architecture:

  - One base URL, normalized so that exactly one /api suffix remains.
  - A request interceptor ([http.RoundTripper]) that attaches the stored
    bearer token as "Authorization: Token <value>" and a correlation ID.
  - A response interceptor that reacts to HTTP 401 by clearing the credential
    store and firing a process-wide logged-out notification, independent of
    which call triggered it.

Failure semantics: network failures and non-401 statuses propagate to the
caller (the latter decoded into [apperr.APIError]); the gateway itself never
retries and sets no per-call timeout beyond the client default.
*/
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/studentsstage/stagectl/internal/credstore"
	"github.com/studentsstage/stagectl/internal/platform/apperr"
	"github.com/studentsstage/stagectl/internal/platform/constants"
)

// maxErrorBody bounds how much of an error response is retained for decoding.
const maxErrorBody = 32 * 1024

// Gateway is the shared backend HTTP client.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	store      credstore.Store
	log        *slog.Logger

	hookMu         sync.RWMutex
	onAuthRejected func()
}

// New builds a [*Gateway] whose transport performs the token-attach and
// 401-handling interception.
func New(rawBaseURL string, store credstore.Store, logger *slog.Logger) *Gateway {
	gw := &Gateway{
		baseURL: NormalizeBaseURL(rawBaseURL),
		store:   store,
		log:     logger,
	}
	gw.httpClient = &http.Client{
		Transport: &interceptTransport{gateway: gw, base: http.DefaultTransport},
	}
	return gw
}

// BaseURL returns the normalized backend base URL.
func (gw *Gateway) BaseURL() string {
	return gw.baseURL
}

// OnAuthRejected registers the process-wide logged-out notification fired
// when any response comes back 401. At most one subscriber; the session
// controller owns it.
func (gw *Gateway) OnAuthRejected(fn func()) {
	gw.hookMu.Lock()
	defer gw.hookMu.Unlock()
	gw.onAuthRejected = fn
}

// NormalizeBaseURL strips trailing slashes and guarantees exactly one /api
// suffix, so overrides behave identically with or without it.
func NormalizeBaseURL(raw string) string {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = constants.DefaultAPIBaseURL
	}
	normalized = strings.TrimRight(normalized, "/")
	if !strings.HasSuffix(normalized, constants.APISuffix) {
		normalized += constants.APISuffix
	}
	return normalized
}

// # Interceptors

// interceptTransport is the request/response interceptor pair.
type interceptTransport struct {
	gateway *Gateway
	base    http.RoundTripper
}

// RoundTrip attaches credentials on the way out and handles authentication
// rejection on the way back. All other statuses pass through unmodified.
func (transport *interceptTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	gw := transport.gateway

	// Request interception: bearer token (when present) and correlation ID.
	// Clone first; RoundTrippers must not mutate the caller's request.
	cloned := request.Clone(request.Context())
	if token := gw.store.GetToken(request.Context()); token != "" {
		cloned.Header.Set(constants.HeaderAuthorization, constants.AuthScheme+" "+token)
	}
	if cloned.Header.Get(constants.HeaderXRequestID) == "" {
		cloned.Header.Set(constants.HeaderXRequestID, uuid.NewString())
	}

	response, err := transport.base.RoundTrip(cloned)
	if err != nil {
		return nil, err
	}

	// Response interception: a 401 from any call force-logs-out the client.
	if response.StatusCode == http.StatusUnauthorized {
		gw.handleAuthRejected(request.Context())
	}

	return response, nil
}

// handleAuthRejected clears the credential store and fires the logged-out
// notification exactly once per rejected response.
func (gw *Gateway) handleAuthRejected(ctx context.Context) {
	if err := gw.store.ClearAuthData(ctx); err != nil {
		gw.log.Warn("failed to clear credentials after 401", slog.Any("error", err))
	}

	gw.hookMu.RLock()
	hook := gw.onAuthRejected
	gw.hookMu.RUnlock()
	if hook != nil {
		hook()
	}
}

// # JSON Calls

// Get issues a GET request and decodes a 2xx JSON body into out.
func (gw *Gateway) Get(ctx context.Context, path string, out any) error {
	return gw.doJSON(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with an optional JSON body.
func (gw *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return gw.doJSON(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (gw *Gateway) Put(ctx context.Context, path string, body, out any) error {
	return gw.doJSON(ctx, http.MethodPut, path, body, out)
}

func (gw *Gateway) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gateway: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, gw.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gateway: failed to build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	return gw.send(request, out)
}

// PutMultipart issues a PUT with a multipart form: text fields plus an
// optional file part named fileField. Used for profile image uploads.
func (gw *Gateway) PutMultipart(ctx context.Context, path string, fields map[string]string, fileField, fileName string, file io.Reader, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("gateway: failed to write form field: %w", err)
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(fileField, fileName)
		if err != nil {
			return fmt.Errorf("gateway: failed to create file part: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return fmt.Errorf("gateway: failed to copy file part: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("gateway: failed to finalize multipart body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPut, gw.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("gateway: failed to build request: %w", err)
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())

	return gw.send(request, out)
}

// send executes the request and maps the response: 2xx decodes into out,
// anything else becomes an [*apperr.APIError].
func (gw *Gateway) send(request *http.Request, out any) error {
	response, err := gw.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("gateway: %s %s failed: %w", request.Method, request.URL.Path, err)
	}
	defer func() { _ = response.Body.Close() }()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		return apperr.Decode(response.StatusCode, body)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}

	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("gateway: invalid response body for %s %s: %w", request.Method, request.URL.Path, err)
	}
	return nil
}
