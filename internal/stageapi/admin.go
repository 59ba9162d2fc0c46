// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package stageapi

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/studentsstage/stagectl/internal/gateway"
	"github.com/studentsstage/stagectl/internal/identity"
)

// AdminService wraps the admin-only endpoints (profile listing and role
// assignment). The backend enforces authorization; this client merely gates
// navigation.
type AdminService struct {
	gw *gateway.Gateway
}

// NewAdminService constructs an [*AdminService] over the shared gateway.
func NewAdminService(gw *gateway.Gateway) *AdminService {
	return &AdminService{gw: gw}
}

// Profiles calls GET /profiles and returns the profile list.
//
// The backend returns either a bare array or a {"results": [...]} envelope;
// both are accepted.
func (service *AdminService) Profiles(ctx context.Context) ([]json.RawMessage, error) {
	var response json.RawMessage
	if err := service.gw.Get(ctx, "/profiles", &response); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(response)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var envelope struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	return envelope.Results, nil
}

// AddToGroup calls POST /addtogroup/{role}/{userId}, assigning the user to a
// role group. The backend expects the lowercase group name in the path.
func (service *AdminService) AddToGroup(ctx context.Context, role identity.Role, userID string) error {
	group := strings.ToLower(string(role))
	return service.gw.Post(ctx, "/addtogroup/"+group+"/"+userID, nil, nil)
}
