package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

type lessonItemJSON struct {
	TaskID   int64 `json:"taskId"`
	Position int   `json:"position"`
}

type lessonJSON struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Status      string           `json:"status"`
	Items       []lessonItemJSON `json:"items"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func lessonToJSON(l *lesson) lessonJSON {
	items := make([]lessonItemJSON, 0, len(l.taskIDs))
	for i, taskID := range l.taskIDs {
		items = append(items, lessonItemJSON{TaskID: taskID, Position: i})
	}
	return lessonJSON{
		ID: l.id, Title: l.title, Description: l.description, Status: l.status,
		Items: items, CreatedAt: l.createdAt, UpdatedAt: l.updatedAt,
	}
}

type assignmentJSON struct {
	ID               int64      `json:"id"`
	GroupID          int64      `json:"groupId"`
	LessonID         int64      `json:"lessonId"`
	LessonTitle      string     `json:"lessonTitle"`
	LessonStatus     string     `json:"lessonStatus"`
	AssignedToUserID *int64     `json:"assignedToUserId"`
	DisplayOrder     int        `json:"displayOrder"`
	VisibleFrom      *time.Time `json:"visibleFrom"`
	VisibleTo        *time.Time `json:"visibleTo"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// callers hold state.mu
func (s *Server) assignmentToJSON(a *assignment) assignmentJSON {
	out := assignmentJSON{
		ID: a.id, GroupID: a.groupID, LessonID: a.lessonID,
		AssignedToUserID: a.assignedToUserID, DisplayOrder: a.displayOrder,
		VisibleFrom: a.visibleFrom, VisibleTo: a.visibleTo, CreatedAt: a.createdAt,
	}
	if l := s.state.lessons[a.lessonID]; l != nil {
		out.LessonTitle = l.title
		out.LessonStatus = l.status
	}
	return out
}

func (s *Server) handleCreateLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Status      string  `json:"status"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		httpError(w, http.StatusBadRequest, "title is required")
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
	l := &lesson{
		id:          s.state.id(),
		ownerID:     requestUser(r),
		title:       req.Title,
		description: req.Description,
		status:      status,
		createdAt:   s.now(),
		updatedAt:   s.now(),
	}
	s.state.lessons[l.id] = l
	s.state.mu.Unlock()

	writeJSON(w, http.StatusCreated, lessonToJSON(l))
}

func (s *Server) handleListLessons(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)
	query := r.URL.Query()
	includeArchived := query.Get("includeArchived") == "true"
	q := strings.ToLower(strings.TrimSpace(query.Get("q")))
	page, size := pageParams(r)

	s.state.mu.Lock()
	var matches []lessonJSON
	for _, l := range s.state.lessons {
		if l.ownerID != userID {
			continue
		}
		if !includeArchived && l.status == "ARCHIVED" {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(l.title), q) {
			continue
		}
		matches = append(matches, lessonToJSON(l))
	}
	s.state.mu.Unlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].ID > matches[j].ID })
	writeJSON(w, http.StatusOK, pageOf(matches, page, size))
}

func (s *Server) handleGetLesson(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	l, ok := s.ownedLessonLocked(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, lessonToJSON(l))
}

func (s *Server) handleUpdateLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string  `json:"title"`
		Description *string `json:"description"`
		Status      string  `json:"status"`
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

	l, ok := s.ownedLessonLocked(w, r)
	if !ok {
		return
	}
	l.title = req.Title
	l.description = req.Description
	l.status = req.Status
	l.updatedAt = s.now()
	writeJSON(w, http.StatusOK, lessonToJSON(l))
}

// handleArchiveLesson soft-deletes: the lesson flips to ARCHIVED and keeps
// its assignments.
func (s *Server) handleArchiveLesson(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	l, ok := s.ownedLessonLocked(w, r)
	if !ok {
		return
	}
	l.status = "ARCHIVED"
	l.updatedAt = s.now()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReplaceLessonItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskIDs []int64 `json:"taskIds"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	l, ok := s.ownedLessonLocked(w, r)
	if !ok {
		return
	}
	for _, id := range req.TaskIDs {
		t := s.state.tasks[id]
		if t == nil || t.ownerID != requestUser(r) {
			httpError(w, http.StatusBadRequest, "unknown task")
			return
		}
	}
	l.taskIDs = req.TaskIDs
	l.updatedAt = s.now()
	writeJSON(w, http.StatusOK, lessonToJSON(l))
}

// handleAssignLesson puts a lesson in front of a group-wide or personal
// bucket. New assignments land on top of their bucket.
func (s *Server) handleAssignLesson(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedToUserID *int64     `json:"assignedToUserId"`
		VisibleFrom      *time.Time `json:"visibleFrom"`
		VisibleTo        *time.Time `json:"visibleTo"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.requireTeacherLocked(w, pathID(r, "groupID"), requestUser(r))
	if !ok {
		return
	}
	l := s.state.lessons[pathID(r, "lessonID")]
	if l == nil || l.ownerID != requestUser(r) {
		httpError(w, http.StatusNotFound, "lesson not found")
		return
	}
	if req.AssignedToUserID != nil {
		if _, member := s.state.roleOf(g.id, *req.AssignedToUserID); !member {
			httpError(w, http.StatusBadRequest, "user is not a group member")
			return
		}
	}

	order := 0
	if bucket := s.state.bucket(g.id, req.AssignedToUserID); len(bucket) > 0 {
		order = bucket[0].displayOrder - 1
	}
	a := &assignment{
		id:               s.state.id(),
		groupID:          g.id,
		lessonID:         l.id,
		assignedToUserID: req.AssignedToUserID,
		displayOrder:     order,
		visibleFrom:      req.VisibleFrom,
		visibleTo:        req.VisibleTo,
		createdAt:        s.now(),
	}
	s.state.assignments[a.id] = a
	writeJSON(w, http.StatusCreated, s.assignmentToJSON(a))
}

// handleReorderAssignments rewrites one bucket's display order from the
// given id sequence.
func (s *Server) handleReorderAssignments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID        *int64  `json:"userId"`
		AssignmentIDs []int64 `json:"assignmentIds"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.requireTeacherLocked(w, pathID(r, "groupID"), requestUser(r))
	if !ok {
		return
	}
	for _, id := range req.AssignmentIDs {
		a := s.state.assignments[id]
		if a == nil || a.groupID != g.id {
			httpError(w, http.StatusBadRequest, "unknown assignment")
			return
		}
		if (a.assignedToUserID == nil) != (req.UserID == nil) ||
			(req.UserID != nil && *a.assignedToUserID != *req.UserID) {
			httpError(w, http.StatusBadRequest, "assignment outside the target bucket")
			return
		}
	}
	for i, id := range req.AssignmentIDs {
		s.state.assignments[id].displayOrder = i
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListGroupAssignments(w http.ResponseWriter, r *http.Request) {
	page, size := pageParams(r)
	var userID *int64
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid userId")
			return
		}
		userID = &id
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.requireTeacherLocked(w, pathID(r, "groupID"), requestUser(r))
	if !ok {
		return
	}
	var out []assignmentJSON
	for _, a := range s.state.bucket(g.id, userID) {
		out = append(out, s.assignmentToJSON(a))
	}
	writeJSON(w, http.StatusOK, pageOf(out, page, size))
}

func (s *Server) handleUnassignLesson(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	a, ok := s.groupAssignmentLocked(w, r)
	if !ok {
		return
	}
	delete(s.state.assignments, a.id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VisibleFrom *time.Time `json:"visibleFrom"`
		VisibleTo   *time.Time `json:"visibleTo"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	a, ok := s.groupAssignmentLocked(w, r)
	if !ok {
		return
	}
	a.visibleFrom = req.VisibleFrom
	a.visibleTo = req.VisibleTo
	writeJSON(w, http.StatusOK, s.assignmentToJSON(a))
}

// handleMyPersonalAssignments is the student view: assignments targeted at
// the caller personally, currently visible, published lessons only.
func (s *Server) handleMyPersonalAssignments(w http.ResponseWriter, r *http.Request) {
	s.listMyAssignments(w, r, true)
}

// handleMyGroupAssignments is the student view of group-wide assignments
// across every group the caller belongs to.
func (s *Server) handleMyGroupAssignments(w http.ResponseWriter, r *http.Request) {
	s.listMyAssignments(w, r, false)
}

func (s *Server) listMyAssignments(w http.ResponseWriter, r *http.Request, personal bool) {
	userID := requestUser(r)
	page, size := pageParams(r)
	now := s.now()

	s.state.mu.Lock()
	var out []assignmentJSON
	for _, m := range s.state.membershipsOf(userID) {
		var bucketUser *int64
		if personal {
			bucketUser = &userID
		}
		for _, a := range s.state.bucket(m.groupID, bucketUser) {
			if !s.visibleLocked(a, now) {
				continue
			}
			out = append(out, s.assignmentToJSON(a))
		}
	}
	s.state.mu.Unlock()

	writeJSON(w, http.StatusOK, pageOf(out, page, size))
}

// callers hold state.mu
func (s *Server) visibleLocked(a *assignment, now time.Time) bool {
	if a.visibleFrom != nil && now.Before(*a.visibleFrom) {
		return false
	}
	if a.visibleTo != nil && now.After(*a.visibleTo) {
		return false
	}
	l := s.state.lessons[a.lessonID]
	return l != nil && l.status == "PUBLISHED"
}

// callers hold state.mu
func (s *Server) groupAssignmentLocked(w http.ResponseWriter, r *http.Request) (*assignment, bool) {
	g, ok := s.requireTeacherLocked(w, pathID(r, "groupID"), requestUser(r))
	if !ok {
		return nil, false
	}
	a := s.state.assignments[pathID(r, "assignmentID")]
	if a == nil || a.groupID != g.id {
		httpError(w, http.StatusNotFound, "assignment not found")
		return nil, false
	}
	return a, true
}

func (s *Server) ownedLessonLocked(w http.ResponseWriter, r *http.Request) (*lesson, bool) {
	l := s.state.lessons[pathID(r, "lessonID")]
	if l == nil || l.ownerID != requestUser(r) {
		httpError(w, http.StatusNotFound, "lesson not found")
		return nil, false
	}
	return l, true
}
