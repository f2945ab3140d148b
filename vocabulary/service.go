// Package vocabulary wraps the teacher's vocabulary bank endpoints.
package vocabulary

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fluentive/fluentive-go/rest"
)

// Entry is one vocabulary item: an English/Polish term pair with optional
// examples and attached media.
type Entry struct {
	ID           int64     `json:"id"`
	TermEN       string    `json:"termEn"`
	TermPL       string    `json:"termPl"`
	ExampleEN    *string   `json:"exampleEn"`
	ExamplePL    *string   `json:"examplePl"`
	ImageMediaID *int64    `json:"imageMediaId"`
	AudioMediaID *int64    `json:"audioMediaId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UpsertRequest creates or fully replaces an entry.
type UpsertRequest struct {
	TermEN       string  `json:"termEn"`
	TermPL       string  `json:"termPl"`
	ExampleEN    *string `json:"exampleEn,omitempty"`
	ExamplePL    *string `json:"examplePl,omitempty"`
	ImageMediaID *int64  `json:"imageMediaId,omitempty"`
	AudioMediaID *int64  `json:"audioMediaId,omitempty"`
}

// SearchParams narrows and pages the bank listing. Size 0 means the backend
// default of 20.
type SearchParams struct {
	Query string
	Page  int
	Size  int
}

// Service wraps the /api/vocabulary endpoints.
type Service struct {
	api *rest.Client
}

func New(api *rest.Client) *Service {
	return &Service{api: api}
}

func (s *Service) Create(ctx context.Context, req UpsertRequest) (Entry, error) {
	var out Entry
	err := s.api.Post(ctx, "/api/vocabulary", req, &out)
	return out, err
}

func (s *Service) Search(ctx context.Context, params SearchParams) (rest.Page[Entry], error) {
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

	var out rest.Page[Entry]
	err := s.api.Get(ctx, "/api/vocabulary?"+values.Encode(), &out)
	return out, err
}

func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	var out Entry
	err := s.api.Get(ctx, fmt.Sprintf("/api/vocabulary/%d", id), &out)
	return out, err
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertRequest) (Entry, error) {
	var out Entry
	err := s.api.Put(ctx, fmt.Sprintf("/api/vocabulary/%d", id), req, &out)
	return out, err
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.api.Delete(ctx, fmt.Sprintf("/api/vocabulary/%d", id))
}
