// Package groups wraps the group and group-membership endpoints.
package groups

import (
	"context"
	"fmt"
	"time"

	"github.com/fluentive/fluentive-go/rest"
)

// Role is a member's role within a group.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

// Group is the list-view shape: no join code.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MyRole    Role      `json:"myRole"`
	CreatedAt time.Time `json:"createdAt"`
}

// Created is returned from group creation; the creator is the TEACHER and
// the join code is present.
type Created struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	JoinCode  string    `json:"joinCode"`
	MyRole    Role      `json:"myRole"`
	CreatedAt time.Time `json:"createdAt"`
}

// Details is the single-group view. JoinCode is nil for students.
type Details struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MyRole    Role      `json:"myRole"`
	JoinCode  *string   `json:"joinCode"`
	CreatedAt time.Time `json:"createdAt"`
}

// Member is a row in the teacher's member list.
type Member struct {
	UserID   int64     `json:"userId"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
	Owner    bool      `json:"owner"`
}

// JoinCode is the rotate-join-code response.
type JoinCode struct {
	JoinCode string `json:"joinCode"`
}

// Service wraps the /api/groups endpoints.
type Service struct {
	api *rest.Client
}

func New(api *rest.Client) *Service {
	return &Service{api: api}
}

// Create creates a group owned by the caller.
func (s *Service) Create(ctx context.Context, name string) (Created, error) {
	var out Created
	err := s.api.Post(ctx, "/api/groups", map[string]string{"name": name}, &out)
	return out, err
}

// Join joins a group by its join code.
func (s *Service) Join(ctx context.Context, code string) (Group, error) {
	var out Group
	err := s.api.Post(ctx, "/api/groups/join", map[string]string{"code": code}, &out)
	return out, err
}

// Mine lists the caller's groups.
func (s *Service) Mine(ctx context.Context) ([]Group, error) {
	var out []Group
	err := s.api.Get(ctx, "/api/groups/me", &out)
	return out, err
}

// Details fetches one group.
func (s *Service) Details(ctx context.Context, groupID int64) (Details, error) {
	var out Details
	err := s.api.Get(ctx, fmt.Sprintf("/api/groups/%d", groupID), &out)
	return out, err
}

// ResetJoinCode rotates the group's join code. Teacher only.
func (s *Service) ResetJoinCode(ctx context.Context, groupID int64) (JoinCode, error) {
	var out JoinCode
	err := s.api.Post(ctx, fmt.Sprintf("/api/groups/%d/join-code/reset", groupID), nil, &out)
	return out, err
}

// Members lists group members. Teacher only.
func (s *Service) Members(ctx context.Context, groupID int64) ([]Member, error) {
	var out []Member
	err := s.api.Get(ctx, fmt.Sprintf("/api/groups/%d/members", groupID), &out)
	return out, err
}

// RemoveMember removes a member. Teachers remove students; only the owner
// removes other teachers.
func (s *Service) RemoveMember(ctx context.Context, groupID, userID int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/api/groups/%d/members/remove/%d", groupID, userID))
}

// Leave removes the caller from the group. The owner cannot leave.
func (s *Service) Leave(ctx context.Context, groupID int64) error {
	return s.api.Post(ctx, fmt.Sprintf("/api/groups/%d/members/leave", groupID), nil, nil)
}
