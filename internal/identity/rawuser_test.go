// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package identity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studentsstage/stagectl/internal/identity"
)

/*
TestResolveRole_ShapeGrid verifies every known payload shape plus degenerate
inputs. The probe order (flat wins over nested) is a backend compatibility
contract.
*/
func TestResolveRole_ShapeGrid(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected identity.Role
	}{
		{"flat role", `{"role":"admin"}`, identity.RoleAdmin},
		{"profile role", `{"profile":{"role":"tutor"}}`, identity.RoleTutor},
		{"deep nested role", `{"user":{"profile":{"role":"student"}}}`, identity.RoleStudent},
		{"nested user role", `{"user":{"role":"TUTOR"}}`, identity.RoleTutor},
		{"flat wins over profile", `{"role":"admin","profile":{"role":"student"}}`, identity.RoleAdmin},
		{"profile wins over deep nested", `{"profile":{"role":"tutor"},"user":{"profile":{"role":"student"}}}`, identity.RoleTutor},
		{"deep nested wins over nested user", `{"user":{"role":"student","profile":{"role":"admin"}}}`, identity.RoleAdmin},
		{"lowercase normalized", `{"role":"sTuDeNt"}`, identity.RoleStudent},
		{"no role anywhere", `{"username":"amina"}`, identity.RoleNone},
		{"empty object", `{}`, identity.RoleNone},
		{"null input", `null`, identity.RoleNone},
		{"corrupt json", `{"role":`, identity.RoleNone},
		{"role of wrong type", `{"role":42}`, identity.RoleNone},
		{"empty input", ``, identity.RoleNone},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			user := identity.Parse([]byte(testCase.payload))
			assert.Equal(t, testCase.expected, identity.ResolveRole(user))
		})
	}

	// Nil receiver must also be total.
	assert.Equal(t, identity.RoleNone, identity.ResolveRole(nil))
}

/*
TestResolveUsername verifies the display-name fallback chain.
*/
func TestResolveUsername(t *testing.T) {
	testCases := []struct {
		name     string
		payload  string
		expected string
	}{
		{"top level username", `{"username":"amina"}`, "amina"},
		{"nested username", `{"user":{"username":"joseph"}}`, "joseph"},
		{"top level wins", `{"username":"amina","user":{"username":"joseph"}}`, "amina"},
		{"default literal", `{"email":"a@b.c"}`, "User"},
		{"null input", `null`, "User"},
		{"corrupt json", `{{`, "User"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			user := identity.Parse([]byte(testCase.payload))
			assert.Equal(t, testCase.expected, identity.ResolveUsername(user))
		})
	}

	assert.Equal(t, "User", identity.ResolveUsername(nil))
}

/*
TestResolveID verifies identifier extraction across numeric and string ids.
*/
func TestResolveID(t *testing.T) {
	assert.Equal(t, "17", identity.ResolveID(identity.Parse([]byte(`{"id":17}`))))
	assert.Equal(t, "abc", identity.ResolveID(identity.Parse([]byte(`{"id":"abc"}`))))
	assert.Equal(t, "9", identity.ResolveID(identity.Parse([]byte(`{"user":{"id":9}}`))))
	assert.Equal(t, "", identity.ResolveID(identity.Parse([]byte(`{}`))))
	assert.Equal(t, "", identity.ResolveID(nil))
}

/*
TestParseRole verifies normalization and the closed-set check.
*/
func TestParseRole(t *testing.T) {
	assert.Equal(t, identity.RoleAdmin, identity.ParseRole(" admin "))
	assert.True(t, identity.RoleAdmin.Known())
	assert.False(t, identity.ParseRole("superuser").Known())
	assert.True(t, identity.ParseRole("superuser").Resolved())
	assert.False(t, identity.RoleNone.Resolved())
}

/*
TestMergeProfile verifies that a fetched profile is grafted under "profile"
without disturbing other fields.
*/
func TestMergeProfile(t *testing.T) {
	user := json.RawMessage(`{"id":3,"username":"amina"}`)
	profile := json.RawMessage(`{"role":"tutor","bio":"hi"}`)

	merged := identity.MergeProfile(user, profile)

	parsed := identity.Parse(merged)
	require.NotNil(t, parsed.Profile)
	assert.Equal(t, identity.RoleTutor, identity.ResolveRole(parsed))
	assert.Equal(t, "amina", identity.ResolveUsername(parsed))
	assert.Equal(t, "3", identity.ResolveID(parsed))

	// Non-object user blobs pass through untouched.
	assert.Equal(t, json.RawMessage(`null`), identity.MergeProfile(json.RawMessage(`null`), profile))
}
