// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package identity

import (
	"bytes"
	"encoding/json"
)

// RawUser is the typed projection of a backend user payload.
//
// # Shape Variants
//
// Exactly four role locations have been observed in the wild, probed in this
// fixed precedence order (flat shape wins over nested shapes):
//
//  1. role
//  2. profile.role
//  3. user.profile.role
//  4. user.role
//
// The precedence is a compatibility contract with the backend's inconsistent
// payloads and must not be reordered.
type RawUser struct {
	Role     string
	Username string
	ID       string

	Profile *RawProfile
	User    *RawNestedUser
}

// RawProfile is the optional "profile" object of a user payload.
type RawProfile struct {
	Role string
	ID   string
}

// RawNestedUser is the optional "user" object wrapping another user payload.
type RawNestedUser struct {
	Role     string
	Username string
	ID       string
	Profile  *RawProfile
}

// # Parsing

// Parse decodes an arbitrary backend user blob into a [*RawUser].
//
// It is total: nil input, empty input, corrupt JSON, and fields of unexpected
// types all yield a usable (possibly empty) RawUser. Each field is probed
// independently so one malformed field never discards the rest.
func Parse(raw []byte) *RawUser {
	user := &RawUser{}

	fields := objectFields(raw)
	if fields == nil {
		return user
	}

	user.Role = stringField(fields, "role")
	user.Username = stringField(fields, "username")
	user.ID = idField(fields, "id")

	if profileRaw, ok := fields["profile"]; ok {
		user.Profile = parseProfile(profileRaw)
	}

	if nestedRaw, ok := fields["user"]; ok {
		if nestedFields := objectFields(nestedRaw); nestedFields != nil {
			nested := &RawNestedUser{
				Role:     stringField(nestedFields, "role"),
				Username: stringField(nestedFields, "username"),
				ID:       idField(nestedFields, "id"),
			}
			if profileRaw, ok := nestedFields["profile"]; ok {
				nested.Profile = parseProfile(profileRaw)
			}
			user.User = nested
		}
	}

	return user
}

func parseProfile(raw json.RawMessage) *RawProfile {
	fields := objectFields(raw)
	if fields == nil {
		return nil
	}
	return &RawProfile{
		Role: stringField(fields, "role"),
		ID:   idField(fields, "id"),
	}
}

// # Normalized Projections

// ResolveRole extracts the normalized uppercase role tag from a user blob.
//
// Probe order: role, profile.role, user.profile.role, user.role. The first
// non-empty string wins. Returns [RoleNone] when no shape carries a role.
func ResolveRole(user *RawUser) Role {
	if user == nil {
		return RoleNone
	}

	if user.Role != "" {
		return ParseRole(user.Role)
	}
	if user.Profile != nil && user.Profile.Role != "" {
		return ParseRole(user.Profile.Role)
	}
	if user.User != nil {
		if user.User.Profile != nil && user.User.Profile.Role != "" {
			return ParseRole(user.User.Profile.Role)
		}
		if user.User.Role != "" {
			return ParseRole(user.User.Role)
		}
	}

	return RoleNone
}

// ResolveUsername extracts a display name: username, then user.username,
// then the literal "User".
func ResolveUsername(user *RawUser) string {
	if user == nil {
		return "User"
	}
	if user.Username != "" {
		return user.Username
	}
	if user.User != nil && user.User.Username != "" {
		return user.User.Username
	}
	return "User"
}

// ResolveID returns the user id usable for /profiles/{id} lookups, preferring
// the top-level id over the nested one. Empty when absent.
func ResolveID(user *RawUser) string {
	if user == nil {
		return ""
	}
	if user.ID != "" {
		return user.ID
	}
	if user.User != nil {
		return user.User.ID
	}
	return ""
}

// # Payload Surgery

// MergeProfile grafts a profile blob under the "profile" key of a user blob,
// preserving every other field. Used when /me lacks role information and the
// profile had to be fetched separately.
func MergeProfile(user, profile json.RawMessage) json.RawMessage {
	fields := objectFields(user)
	if fields == nil {
		return user
	}

	merged := make(map[string]json.RawMessage, len(fields)+1)
	for key, value := range fields {
		merged[key] = value
	}
	merged["profile"] = profile

	out, err := json.Marshal(merged)
	if err != nil {
		return user
	}
	return out
}

// # Probing Helpers

// objectFields decodes raw into a field map, or nil when raw is not a JSON
// object.
func objectFields(raw []byte) map[string]json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil
	}
	return fields
}

// stringField extracts a string value, tolerating absent or non-string fields.
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value
}

// idField extracts an identifier that may be a JSON number or string.
func idField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String()
	}

	return ""
}
