// Package tasks wraps the reusable task bank: flashcards, matching, multiple
// choice, typing drills, essays, reading comprehension, video exercises and
// free-form custom content.
package tasks

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fluentive/fluentive-go/rest"
)

// Type discriminates the task payload.
type Type string

const (
	TypeVocabFlashcards Type = "VOCAB_FLASHCARDS"
	TypeVocabMatching   Type = "VOCAB_MATCHING"
	TypeVocabMCQ        Type = "VOCAB_MCQ"
	TypeVocabTyping     Type = "VOCAB_TYPING"
	TypeEssay           Type = "ESSAY"
	TypeReadingText     Type = "READING_TEXT"
	TypeYoutubeVideo    Type = "YOUTUBE_VIDEO"
	TypeCustom          Type = "CUSTOM"
)

// Status is the task's publication state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// Task is a bank entry. Payload is the type-specific document stored by the
// backend as JSON; its shape depends on Type.
type Task struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Type          Type           `json:"type"`
	Status        Status         `json:"status"`
	Payload       map[string]any `json:"payload"`
	VocabularyIDs []int64        `json:"vocabularyIds"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// CreateRequest creates a task. Status defaults to DRAFT on the backend.
type CreateRequest struct {
	Title         string         `json:"title"`
	Type          Type           `json:"type"`
	Status        Status         `json:"status,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
	VocabularyIDs []int64        `json:"vocabularyIds,omitempty"`
}

// UpdateRequest replaces a task's mutable fields. The type is fixed at
// creation.
type UpdateRequest struct {
	Title   string         `json:"title"`
	Status  Status         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
}

// SearchParams filters and pages the task listing.
type SearchParams struct {
	Query  string
	Type   Type
	Status Status
	Page   int
	Size   int
}

// Service wraps the /api/tasks endpoints.
type Service struct {
	api *rest.Client
}

func New(api *rest.Client) *Service {
	return &Service{api: api}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Task, error) {
	var out Task
	err := s.api.Post(ctx, "/api/tasks", req, &out)
	return out, err
}

func (s *Service) Search(ctx context.Context, params SearchParams) (rest.Page[Task], error) {
	values := url.Values{}
	values.Set("page", strconv.Itoa(params.Page))
	size := params.Size
	if size == 0 {
		size = 20
	}
	values.Set("size", strconv.Itoa(size))
	if q := strings.TrimSpace(params.Query); q != "" {
		values.Set("q", q)
	}
	if params.Type != "" {
		values.Set("type", string(params.Type))
	}
	if params.Status != "" {
		values.Set("status", string(params.Status))
	}

	var out rest.Page[Task]
	err := s.api.Get(ctx, "/api/tasks?"+values.Encode(), &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, taskID int64) (Task, error) {
	var out Task
	err := s.api.Get(ctx, fmt.Sprintf("/api/tasks/%d", taskID), &out)
	return out, err
}

func (s *Service) Update(ctx context.Context, taskID int64, req UpdateRequest) (Task, error) {
	var out Task
	err := s.api.Put(ctx, fmt.Sprintf("/api/tasks/%d", taskID), req, &out)
	return out, err
}

// ReplaceVocabulary swaps the full set of vocabulary entries linked to a
// task.
func (s *Service) ReplaceVocabulary(ctx context.Context, taskID int64, vocabularyIDs []int64) (Task, error) {
	var out Task
	body := map[string][]int64{"vocabularyIds": vocabularyIDs}
	err := s.api.Put(ctx, fmt.Sprintf("/api/tasks/%d/vocabulary", taskID), body, &out)
	return out, err
}

func (s *Service) Delete(ctx context.Context, taskID int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/api/tasks/%d", taskID))
}
