// Package media uploads and fetches private media files. Uploads are
// multipart and downloads are raw bytes, so these calls go straight to the
// HTTP client with the bearer attached instead of through the JSON executor.
// A held token is required up front; there is no refresh-and-retry here.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/fluentive/fluentive-go/rest"
	"github.com/fluentive/fluentive-go/session"
)

// Type classifies stored media.
type Type string

const (
	TypeImage Type = "IMAGE"
	TypeAudio Type = "AUDIO"
)

// Upload is the upload response; URL serves the file back.
type Upload struct {
	ID          int64     `json:"id"`
	Type        Type      `json:"type"`
	URL         string    `json:"url"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Info is the metadata view of a stored file.
type Info struct {
	ID           int64     `json:"id"`
	Type         Type      `json:"type"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Service wraps the /api/media endpoints.
type Service struct {
	baseURL    string
	httpClient *http.Client
	sessions   *session.Store
}

func New(baseURL string, httpClient *http.Client, sessions *session.Store) *Service {
	return &Service{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		sessions:   sessions,
	}
}

// Upload stores a file under the given name, classifying it by content type.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (Upload, error) {
	var out Upload

	token := s.sessions.Get()
	if token == "" {
		return out, rest.ErrUnauthorized
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return out, fmt.Errorf("media upload: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return out, fmt.Errorf("media upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return out, fmt.Errorf("media upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/media", &buf)
	if err != nil {
		return out, fmt.Errorf("media upload: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	if err := s.do(req, jsonInto(&out)); err != nil {
		return out, err
	}
	return out, nil
}

// Info fetches a file's metadata.
func (s *Service) Info(ctx context.Context, id int64) (Info, error) {
	var out Info
	req, err := s.authedRequest(ctx, http.MethodGet, fmt.Sprintf("/api/media/%d/info", id))
	if err != nil {
		return out, err
	}
	if err := s.do(req, jsonInto(&out)); err != nil {
		return out, err
	}
	return out, nil
}

// Download fetches the file bytes and their content type.
func (s *Service) Download(ctx context.Context, id int64) ([]byte, string, error) {
	req, err := s.authedRequest(ctx, http.MethodGet, fmt.Sprintf("/api/media/%d", id))
	if err != nil {
		return nil, "", err
	}

	var data []byte
	var contentType string
	err = s.do(req, func(resp *http.Response) error {
		contentType = resp.Header.Get("Content-Type")
		var readErr error
		data, readErr = io.ReadAll(resp.Body)
		return readErr
	})
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

// Delete removes a file. Owner only.
func (s *Service) Delete(ctx context.Context, id int64) error {
	req, err := s.authedRequest(ctx, http.MethodDelete, fmt.Sprintf("/api/media/%d", id))
	if err != nil {
		return err
	}
	return s.do(req, nil)
}

func (s *Service) authedRequest(ctx context.Context, method, path string) (*http.Request, error) {
	token := s.sessions.Get()
	if token == "" {
		return nil, rest.ErrUnauthorized
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (s *Service) do(req *http.Request, consume func(*http.Response) error) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return &rest.StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(text))}
	}
	if consume == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return consume(resp)
}

func jsonInto(out any) func(*http.Response) error {
	return func(resp *http.Response) error {
		return json.NewDecoder(resp.Body).Decode(out)
	}
}
