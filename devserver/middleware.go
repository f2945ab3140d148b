package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("request")
		next.ServeHTTP(w, r)
	})
}

// auth wraps a handler with bearer-token validation, putting the user id in
// the request context.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.bearerUser(r)
		if !ok {
			httpError(w, http.StatusUnauthorized, "invalid or missing access token")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyUserID, userID)))
	}
}

// bearerUser extracts and validates the Authorization header.
func (s *Server) bearerUser(r *http.Request) (int64, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	userID, err := s.verifyAccessToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return 0, false
	}
	s.state.mu.Lock()
	_, exists := s.state.users[userID]
	s.state.mu.Unlock()
	return userID, exists
}

func requestUser(r *http.Request) int64 {
	id, _ := r.Context().Value(contextKeyUserID).(int64)
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func httpError(w http.ResponseWriter, status int, message string) {
	http.Error(w, message, status)
}

func readJSON(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		httpError(w, http.StatusBadRequest, "malformed JSON body")
		return false
	}
	return true
}

// pageOf slices items into the backend's paged envelope.
func pageOf[T any](items []T, page, size int) map[string]any {
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if page < 0 {
		page = 0
	}
	total := len(items)
	totalPages := (total + size - 1) / size

	start := page * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}
	content := items[start:end]
	if content == nil {
		content = []T{}
	}
	return map[string]any{
		"content":       content,
		"totalElements": total,
		"totalPages":    totalPages,
		"size":          size,
		"number":        page,
	}
}
