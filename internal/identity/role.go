// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

// Package identity normalizes the heterogeneous user payloads returned by the
// Student's Stage backend into a stable role and display name.
//
// # Architecture
//
// The backend returns the current user in several shapes: the role may sit at
// the top level, under "profile", doubly nested under "user.profile", or under
// "user". This package is the single place that knows all shapes; every other
// component sees only the normalized projections.
package identity

import "strings"

// Role is the normalized authorization tag of an account.
//
// # Usage
//
// Used by the route guard to pick the dashboard a session may access. An empty
// Role means the backend has not (yet) disclosed one.
type Role string

const (
	RoleStudent Role = "STUDENT" // Default role for registered learners.
	RoleTutor   Role = "TUTOR"   // Can run tutoring sessions and manage students.
	RoleAdmin   Role = "ADMIN"   // Unrestricted platform access.

	// RoleNone marks a session whose role has not been resolved. Routing
	// treats it as STUDENT; display surfaces report it as not detected.
	RoleNone Role = ""
)

// ParseRole uppercases a raw role string into a [Role]. Unknown tags are kept
// as-is (uppercased) so that routing can still apply its default handling.
func ParseRole(raw string) Role {
	return Role(strings.ToUpper(strings.TrimSpace(raw)))
}

// Known reports whether the role belongs to the closed platform set.
func (r Role) Known() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

// Resolved reports whether any role information is present.
func (r Role) Resolved() bool {
	return r != RoleNone
}
