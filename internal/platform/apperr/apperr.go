// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

/*
Package apperr defines the centralized error handling framework for the client.

It provides a rich error type that bridges the gap between raw backend HTTP
responses and the single human-readable message surfaced in the UI.

Architecture:

  - APIError: A struct carrying the HTTP status plus every error shape the
    backend has been observed to emit (message field, detail field, per-field
    validation maps, bare strings).
  - Reduction: A fixed precedence collapses those shapes into one display
    string (message, then detail, then the first error of the first offending
    field, then a caller-supplied fallback).
  - Tolerance: Decoding never fails. Unrecognized bodies still produce a
    usable APIError.

Every non-2xx response that leaves the gateway is wrapped as an [APIError] so
callers reduce errors the same way everywhere.
*/
package apperr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// FieldError represents a single field-level validation failure reported by
// the backend, e.g. {"email": ["Email already exists"]}.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// APIError is the canonical error type for failed backend calls.
//
// # Shape Tolerance
//
// The backend is inconsistent: login failures carry "message" or "detail",
// registration failures carry a mapping of field names to arrays of error
// strings, and some endpoints return bare strings. APIError preserves all of
// them; [APIError.DisplayMessage] applies the reduction precedence.
type APIError struct {
	// StatusCode is the HTTP response status.
	StatusCode int `json:"-"`
	// Message is the backend's "message" field, when present.
	Message string `json:"message,omitempty"`
	// Detail is the backend's "detail" field, when present.
	Detail string `json:"detail,omitempty"`
	// Fields holds field-level validation errors in document order.
	Fields []FieldError `json:"fields,omitempty"`
	// Raw is the trimmed response body, kept for logging only.
	Raw string `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.DisplayMessage("request failed"))
}

// DisplayMessage reduces the error to a single human-readable string using
// the fixed precedence: message field, detail field, first error of the first
// offending field, then the supplied fallback.
func (e *APIError) DisplayMessage(fallback string) string {
	if e.Message != "" {
		return e.Message
	}
	if e.Detail != "" {
		return e.Detail
	}
	if len(e.Fields) > 0 {
		return e.Fields[0].Message
	}
	return fallback
}

// IsAuthRejected reports whether the error chain contains an [*APIError]
// with HTTP 401, i.e. the backend rejected our credentials.
func IsAuthRejected(err error) bool {
	api := As(err)
	return api != nil && api.StatusCode == http.StatusUnauthorized
}

// As extracts the [*APIError] from err's chain. It returns nil if not found.
func As(err error) *APIError {
	var api *APIError
	if errors.As(err, &api) {
		return api
	}
	return nil
}

// # Response Decoding

// Decode builds an [*APIError] from a non-2xx response body.
//
// It never returns nil and never fails: bodies that are not JSON, or JSON of
// an unknown shape, still yield an APIError carrying the status code.
//
// # Field Ordering
//
// Validation bodies are walked with a token decoder so that the document
// order of fields is preserved. The reduction contract is "first error of the
// first field", which a Go map cannot honor.
func Decode(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Raw:        strings.TrimSpace(string(body)),
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return apiErr
	}

	// ── 1. Bare JSON String ───────────────────────────────────────────────
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			apiErr.Message = s
		}
		return apiErr
	}

	if trimmed[0] != '{' {
		return apiErr
	}

	// ── 2. Ordered Object Walk ────────────────────────────────────────────
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil { // consume '{'
		return apiErr
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			break
		}
		key, _ := keyTok.(string)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			break
		}

		switch key {
		case "message":
			var s string
			if json.Unmarshal(value, &s) == nil {
				apiErr.Message = s
			}
		case "detail":
			var s string
			if json.Unmarshal(value, &s) == nil {
				apiErr.Detail = s
			}
		default:
			// Any other key is treated as a validation entry: either an
			// array of error strings or a single string.
			appendFieldErrors(apiErr, key, value)
		}
	}

	return apiErr
}

// appendFieldErrors records the errors of one validation field, keeping
// document order.
func appendFieldErrors(apiErr *APIError, field string, value json.RawMessage) {
	var list []string
	if json.Unmarshal(value, &list) == nil {
		for _, msg := range list {
			apiErr.Fields = append(apiErr.Fields, FieldError{Field: field, Message: msg})
		}
		return
	}

	var single string
	if json.Unmarshal(value, &single) == nil && single != "" {
		apiErr.Fields = append(apiErr.Fields, FieldError{Field: field, Message: single})
	}
}

// # Reduction Helper

// DisplayMessage reduces any error to a single human-readable string.
//
// APIErrors go through their own precedence chain; other errors fall back to
// their Error() text, and nil-safe callers get the fallback.
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if api := As(err); api != nil {
		return api.DisplayMessage(fallback)
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
