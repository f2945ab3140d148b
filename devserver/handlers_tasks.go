package devserver

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

var taskTypes = map[string]bool{
	"VOCAB_FLASHCARDS": true,
	"VOCAB_MATCHING":   true,
	"VOCAB_MCQ":        true,
	"VOCAB_TYPING":     true,
	"ESSAY":            true,
	"READING_TEXT":     true,
	"YOUTUBE_VIDEO":    true,
	"CUSTOM":           true,
}

var contentStatuses = map[string]bool{
	"DRAFT":     true,
	"PUBLISHED": true,
	"ARCHIVED":  true,
}

type taskJSON struct {
	ID            int64          `json:"id"`
	Title         string         `json:"title"`
	Type          string         `json:"type"`
	Status        string         `json:"status"`
	Payload       map[string]any `json:"payload"`
	VocabularyIDs []int64        `json:"vocabularyIds"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func taskToJSON(t *task) taskJSON {
	payload := t.payload
	if payload == nil {
		payload = map[string]any{}
	}
	ids := t.vocabularyIDs
	if ids == nil {
		ids = []int64{}
	}
	return taskJSON{
		ID: t.id, Title: t.title, Type: t.taskType, Status: t.status,
		Payload: payload, VocabularyIDs: ids,
		CreatedAt: t.createdAt, UpdatedAt: t.updatedAt,
	}
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title         string         `json:"title"`
		Type          string         `json:"type"`
		Status        string         `json:"status"`
		Payload       map[string]any `json:"payload"`
		VocabularyIDs []int64        `json:"vocabularyIds"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		httpError(w, http.StatusBadRequest, "title is required")
		return
	}
	if !taskTypes[req.Type] {
		httpError(w, http.StatusBadRequest, "unknown task type")
		return
	}
	status := req.Status
	if status == "" {
		status = "DRAFT"
	}
	if !contentStatuses[status] {
		httpError(w, http.StatusBadRequest, "unknown status")
		return
	}

	s.state.mu.Lock()
	t := &task{
		id:            s.state.id(),
		ownerID:       requestUser(r),
		title:         req.Title,
		taskType:      req.Type,
		status:        status,
		payload:       req.Payload,
		vocabularyIDs: req.VocabularyIDs,
		createdAt:     s.now(),
		updatedAt:     s.now(),
	}
	s.state.tasks[t.id] = t
	s.state.mu.Unlock()

	writeJSON(w, http.StatusCreated, taskToJSON(t))
}

func (s *Server) handleSearchTasks(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	query := r.URL.Query()
	q := strings.ToLower(strings.TrimSpace(query.Get("q")))
	typeFilter := query.Get("type")
	statusFilter := query.Get("status")
	page, size := pageParams(r)

	s.state.mu.Lock()
	var matches []taskJSON
	for _, t := range s.state.tasks {
		if t.ownerID != userID {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(t.title), q) {
			continue
		}
		if typeFilter != "" && t.taskType != typeFilter {
			continue
		}
		if statusFilter != "" && t.status != statusFilter {
			continue
		}
		matches = append(matches, taskToJSON(t))
	}
	s.state.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	writeJSON(w, http.StatusOK, pageOf(matches, page, size))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	t, ok := s.ownedTaskLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, taskToJSON(t))
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string         `json:"title"`
		Status  string         `json:"status"`
		Payload map[string]any `json:"payload"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if !contentStatuses[req.Status] {
		httpError(w, http.StatusBadRequest, "unknown status")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	t, ok := s.ownedTaskLocked(w, r)
	if !ok {
		return
	}
	t.title = req.Title
	t.status = req.Status
	if req.Payload != nil {
		t.payload = req.Payload
	}
	t.updatedAt = s.now()
	writeJSON(w, http.StatusOK, taskToJSON(t))
}

func (s *Server) handleReplaceTaskVocabulary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VocabularyIDs []int64 `json:"vocabularyIds"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	t, ok := s.ownedTaskLocked(w, r)
	if !ok {
		return
	}
	for _, id := range req.VocabularyIDs {
		v := s.state.vocabulary[id]
		if v == nil || v.ownerID != requestUser(r) {
			httpError(w, http.StatusBadRequest, "unknown vocabulary entry")
			return
		}
	}
	t.vocabularyIDs = req.VocabularyIDs
	t.updatedAt = s.now()
	writeJSON(w, http.StatusOK, taskToJSON(t))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	t, ok := s.ownedTaskLocked(w, r)
	if !ok {
		return
	}
	delete(s.state.tasks, t.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ownedTaskLocked(w http.ResponseWriter, r *http.Request) (*task, bool) {
	t := s.state.tasks[pathID(r, "taskID")]
	if t == nil || t.ownerID != requestUser(r) {
		httpError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	return t, true
}
