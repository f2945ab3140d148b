// Package invites wraps the invite lifecycle: teachers mint and manage
// invite tokens, anyone can preview one, authenticated users accept them.
package invites

import (
	"context"
	"fmt"
	"time"

	"github.com/fluentive/fluentive-go/groups"
	"github.com/fluentive/fluentive-go/rest"
)

// CreateRequest configures a new invite. Nil fields use backend defaults
// (STUDENT role, unlimited uses, default expiry).
type CreateRequest struct {
	RoleGranted      *groups.Role `json:"roleGranted,omitempty"`
	MaxUses          *int         `json:"maxUses,omitempty"`
	ExpiresInMinutes *int         `json:"expiresInMinutes,omitempty"`
}

// Created is the creation response; Token is the plaintext invite token,
// returned exactly once.
type Created struct {
	InviteID    int64       `json:"inviteId"`
	Token       string      `json:"token"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	MaxUses     *int        `json:"maxUses"`
	RoleGranted groups.Role `json:"roleGranted"`
}

// Summary is a row in the teacher's invite list; no plaintext tokens.
type Summary struct {
	InviteID    int64       `json:"inviteId"`
	CreatedAt   time.Time   `json:"createdAt"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	Revoked     bool        `json:"revoked"`
	MaxUses     *int        `json:"maxUses"`
	UsedCount   int         `json:"usedCount"`
	RoleGranted groups.Role `json:"roleGranted"`
}

// Preview tells a prospective member what they are about to join and why an
// invite might not work.
type Preview struct {
	Valid         bool        `json:"valid"`
	GroupName     string      `json:"groupName"`
	RoleGranted   groups.Role `json:"roleGranted"`
	ExpiresAt     time.Time   `json:"expiresAt"`
	MaxUses       *int        `json:"maxUses"`
	UsedCount     int         `json:"usedCount"`
	Exhausted     bool        `json:"exhausted"`
	Revoked       bool        `json:"revoked"`
	Expired       bool        `json:"expired"`
	AlreadyMember bool        `json:"alreadyMember"`
}

// Accepted is the accept response.
type Accepted struct {
	GroupID   int64       `json:"groupId"`
	GroupName string      `json:"groupName"`
	MyRole    groups.Role `json:"myRole"`
}

// Service wraps the invite endpoints.
type Service struct {
	api *rest.Client
}

func New(api *rest.Client) *Service {
	return &Service{api: api}
}

// Create mints an invite for a group. Teacher only.
func (s *Service) Create(ctx context.Context, groupID int64, req CreateRequest) (Created, error) {
	var out Created
	err := s.api.Post(ctx, fmt.Sprintf("/api/groups/%d/invites", groupID), req, &out)
	return out, err
}

// List lists a group's invites. Teacher only.
func (s *Service) List(ctx context.Context, groupID int64) ([]Summary, error) {
	var out []Summary
	err := s.api.Get(ctx, fmt.Sprintf("/api/groups/%d/invites", groupID), &out)
	return out, err
}

// Revoke invalidates an invite. Teacher only.
func (s *Service) Revoke(ctx context.Context, groupID, inviteID int64) error {
	return s.api.Post(ctx, fmt.Sprintf("/api/groups/%d/invites/%d/revoke", groupID, inviteID), nil, nil)
}

// Recreate revokes an invite and mints a replacement with the same
// parameters, returning the new plaintext token. Teacher only.
func (s *Service) Recreate(ctx context.Context, groupID, inviteID int64) (Created, error) {
	var out Created
	err := s.api.Post(ctx, fmt.Sprintf("/api/groups/%d/invites/%d/recreate", groupID, inviteID), nil, &out)
	return out, err
}

// Preview validates a token and describes the group it grants access to.
// Works without a session; AlreadyMember is only meaningful when one exists.
func (s *Service) Preview(ctx context.Context, token string) (Preview, error) {
	var out Preview
	err := s.api.Post(ctx, "/api/invites/preview", map[string]string{"token": token}, &out, rest.WithoutAuth())
	return out, err
}

// Accept consumes an invite and joins the group.
func (s *Service) Accept(ctx context.Context, token string) (Accepted, error) {
	var out Accepted
	err := s.api.Post(ctx, "/api/invites/accept", map[string]string{"token": token}, &out)
	return out, err
}
