// Package lessons wraps reusable lessons (ordered bundles of tasks owned by
// a teacher) and their assignment to groups or individual students.
package lessons

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fluentive/fluentive-go/rest"
)

// Status is the lesson's publication state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// Item is one ordered task reference inside a lesson.
type Item struct {
	TaskID   int64 `json:"taskId"`
	Position int   `json:"position"`
}

// Lesson is a reusable bundle of tasks.
type Lesson struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      Status    `json:"status"`
	Items       []Item    `json:"items"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CreateRequest creates a lesson; Status defaults to DRAFT.
type CreateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Status      Status  `json:"status,omitempty"`
}

// UpdateRequest replaces a lesson's mutable fields.
type UpdateRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      Status  `json:"status"`
}

// ListParams filters and pages the lesson library.
type ListParams struct {
	IncludeArchived bool
	Query           string
	Page            int
	Size            int
}

// Assignment places a lesson in front of a group (AssignedToUserID nil) or a
// single student. Lower DisplayOrder sorts first; new assignments land on
// top.
type Assignment struct {
	ID               int64      `json:"id"`
	GroupID          int64      `json:"groupId"`
	LessonID         int64      `json:"lessonId"`
	LessonTitle      string     `json:"lessonTitle"`
	LessonStatus     Status     `json:"lessonStatus"`
	AssignedToUserID *int64     `json:"assignedToUserId"`
	DisplayOrder     int        `json:"displayOrder"`
	VisibleFrom      *time.Time `json:"visibleFrom"`
	VisibleTo        *time.Time `json:"visibleTo"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// AssignRequest scopes and schedules an assignment. Nil fields are sent as
// explicit nulls, matching the backend contract.
type AssignRequest struct {
	AssignedToUserID *int64     `json:"assignedToUserId"`
	VisibleFrom      *time.Time `json:"visibleFrom"`
	VisibleTo        *time.Time `json:"visibleTo"`
}

// UpdateAssignmentRequest adjusts an assignment's visibility window.
type UpdateAssignmentRequest struct {
	VisibleFrom *time.Time `json:"visibleFrom"`
	VisibleTo   *time.Time `json:"visibleTo"`
}

// ListAssignmentsParams pages the teacher's view of a group's assignments:
// the group-wide bucket when UserID is nil, a student's personal bucket
// otherwise.
type ListAssignmentsParams struct {
	GroupID int64
	UserID  *int64
	Page    int
	Size    int
}

// Service wraps the lesson and assignment endpoints.
type Service struct {
	api *rest.Client
}

func New(api *rest.Client) *Service {
	return &Service{api: api}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Lesson, error) {
	var out Lesson
	err := s.api.Post(ctx, "/api/lessons", req, &out)
	return out, err
}

func (s *Service) List(ctx context.Context, params ListParams) (rest.Page[Lesson], error) {
	values := url.Values{}
	values.Set("includeArchived", strconv.FormatBool(params.IncludeArchived))
	values.Set("page", strconv.Itoa(params.Page))
	size := params.Size
	if size == 0 {
		size = 20
	}
	values.Set("size", strconv.Itoa(size))
	if q := strings.TrimSpace(params.Query); q != "" {
		values.Set("q", q)
	}

	var out rest.Page[Lesson]
	err := s.api.Get(ctx, "/api/lessons?"+values.Encode(), &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, lessonID int64) (Lesson, error) {
	var out Lesson
	err := s.api.Get(ctx, fmt.Sprintf("/api/lessons/%d", lessonID), &out)
	return out, err
}

func (s *Service) Update(ctx context.Context, lessonID int64, req UpdateRequest) (Lesson, error) {
	var out Lesson
	err := s.api.Put(ctx, fmt.Sprintf("/api/lessons/%d", lessonID), req, &out)
	return out, err
}

// ReplaceItems replaces the whole ordered task list in one call; it covers
// reorder as well as add/remove.
func (s *Service) ReplaceItems(ctx context.Context, lessonID int64, taskIDs []int64) (Lesson, error) {
	var out Lesson
	body := map[string][]int64{"taskIds": taskIDs}
	err := s.api.Put(ctx, fmt.Sprintf("/api/lessons/%d/items", lessonID), body, &out)
	return out, err
}

// Archive marks the lesson ARCHIVED. The backend answers 204.
func (s *Service) Archive(ctx context.Context, lessonID int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/api/lessons/%d", lessonID))
}

// Assign puts a lesson in front of a group, or of one student when
// req.AssignedToUserID is set. Teacher only.
func (s *Service) Assign(ctx context.Context, groupID, lessonID int64, req AssignRequest) (Assignment, error) {
	var out Assignment
	err := s.api.Post(ctx, fmt.Sprintf("/api/groups/%d/lessons/%d/assign", groupID, lessonID), req, &out)
	return out, err
}

// Reorder rewrites the display order of one bucket: group-wide when userID
// is nil, a student's personal bucket otherwise. Teacher only.
func (s *Service) Reorder(ctx context.Context, groupID int64, userID *int64, assignmentIDs []int64) error {
	body := struct {
		UserID        *int64  `json:"userId"`
		AssignmentIDs []int64 `json:"assignmentIds"`
	}{UserID: userID, AssignmentIDs: assignmentIDs}
	return s.api.Put(ctx, fmt.Sprintf("/api/groups/%d/lessons/assignments/order", groupID), body, nil)
}

// MyPersonal lists assignments targeted at the caller personally.
func (s *Service) MyPersonal(ctx context.Context, page, size int) (rest.Page[Assignment], error) {
	var out rest.Page[Assignment]
	err := s.api.Get(ctx, "/api/lessons/assignments/me/personal?"+pageQuery(page, size), &out)
	return out, err
}

// MyGroupWide lists group-wide assignments across the caller's groups.
func (s *Service) MyGroupWide(ctx context.Context, page, size int) (rest.Page[Assignment], error) {
	var out rest.Page[Assignment]
	err := s.api.Get(ctx, "/api/lessons/assignments/me/group?"+pageQuery(page, size), &out)
	return out, err
}

// ListForGroup is the teacher's paged view of a group's assignment buckets.
func (s *Service) ListForGroup(ctx context.Context, params ListAssignmentsParams) (rest.Page[Assignment], error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(params.Page))
	size := params.Size
	if size == 0 {
		size = 20
	}
	values.Set("size", strconv.Itoa(size))
	if params.UserID != nil {
		values.Set("userId", strconv.FormatInt(*params.UserID, 10))
	}

	var out rest.Page[Assignment]
	err := s.api.Get(ctx, fmt.Sprintf("/api/groups/%d/lessons/assignments?%s", params.GroupID, values.Encode()), &out)
	return out, err
}

// Unassign removes an assignment. Teacher only.
func (s *Service) Unassign(ctx context.Context, groupID, assignmentID int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/api/groups/%d/lessons/assignments/%d", groupID, assignmentID))
}

// UpdateAssignment adjusts an assignment's visibility window. Teacher only.
func (s *Service) UpdateAssignment(ctx context.Context, groupID, assignmentID int64, req UpdateAssignmentRequest) (Assignment, error) {
	var out Assignment
	err := s.api.Patch(ctx, fmt.Sprintf("/api/groups/%d/lessons/assignments/%d", groupID, assignmentID), req, &out)
	return out, err
}

func pageQuery(page, size int) string {
	if size == 0 {
		size = 20
	}
	values := url.Values{}
	values.Set("page", strconv.Itoa(page))
	values.Set("size", strconv.Itoa(size))
	return values.Encode()
}
