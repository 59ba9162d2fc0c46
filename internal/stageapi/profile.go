// Copyright (c) 2026 Student's Stage. All rights reserved.
// Author: platform@studentsstage.app

package stageapi

import (
	"context"
	"encoding/json"
	"io"

	"github.com/studentsstage/stagectl/internal/gateway"
)

// ProfileService wraps the profile endpoints.
type ProfileService struct {
	gw *gateway.Gateway
}

// NewProfileService constructs a [*ProfileService] over the shared gateway.
func NewProfileService(gw *gateway.Gateway) *ProfileService {
	return &ProfileService{gw: gw}
}

// Get calls GET /profiles/{id}.
func (service *ProfileService) Get(ctx context.Context, profileID string) (json.RawMessage, error) {
	var profile json.RawMessage
	if err := service.gw.Get(ctx, "/profiles/"+profileID, &profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// Update calls PUT /profiles/{id} with a JSON payload and returns the
// updated profile.
func (service *ProfileService) Update(ctx context.Context, profileID string, fields map[string]any) (json.RawMessage, error) {
	var updated json.RawMessage
	if err := service.gw.Put(ctx, "/profiles/"+profileID, fields, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateWithImage calls PUT /profiles/{id} as a multipart form carrying text
// fields plus an "image" file part.
func (service *ProfileService) UpdateWithImage(ctx context.Context, profileID string, fields map[string]string, imageName string, image io.Reader) (json.RawMessage, error) {
	var updated json.RawMessage
	err := service.gw.PutMultipart(ctx, "/profiles/"+profileID, fields, "image", imageName, image, &updated)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
