package devserver

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type groupJSON struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	MyRole    string    `json:"myRole"`
	JoinCode  *string   `json:"joinCode,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpError(w, http.StatusBadRequest, "group name is required")
		return
	}
	userID := requestUser(r)

	s.state.mu.Lock()
	g := &group{
		id:        s.state.id(),
		name:      req.Name,
		joinCode:  newJoinCode(),
		ownerID:   userID,
		createdAt: s.now(),
	}
	s.state.groups[g.id] = g
	s.state.memberships = append(s.state.memberships, &membership{
		groupID:  g.id,
		userID:   userID,
		role:     roleTeacher,
		joinedAt: g.createdAt,
	})
	s.state.mu.Unlock()

	code := g.joinCode
	writeJSON(w, http.StatusCreated, groupJSON{
		ID: g.id, Name: g.name, MyRole: roleTeacher, JoinCode: &code, CreatedAt: g.createdAt,
	})
}

func (s *Server) handleJoinGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	userID := requestUser(r)

	s.state.mu.Lock()
	g := s.state.groupByJoinCode(strings.TrimSpace(req.Code))
	if g == nil {
		s.state.mu.Unlock()
		httpError(w, http.StatusNotFound, "unknown join code")
		return
	}
	if _, member := s.state.roleOf(g.id, userID); member {
		s.state.mu.Unlock()
		httpError(w, http.StatusConflict, "already a member")
		return
	}
	s.state.memberships = append(s.state.memberships, &membership{
		groupID:  g.id,
		userID:   userID,
		role:     roleStudent,
		joinedAt: s.now(),
	})
	s.state.mu.Unlock()

	writeJSON(w, http.StatusOK, groupJSON{ID: g.id, Name: g.name, MyRole: roleStudent, CreatedAt: g.createdAt})
}

func (s *Server) handleMyGroups(w http.ResponseWriter, r *http.Request) {
	userID := requestUser(r)

	s.state.mu.Lock()
	var out []groupJSON
	for _, m := range s.state.membershipsOf(userID) {
		g := s.state.groups[m.groupID]
		out = append(out, groupJSON{ID: g.id, Name: g.name, MyRole: m.role, CreatedAt: g.createdAt})
	}
	s.state.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if out == nil {
		out = []groupJSON{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGroupDetails(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")
	userID := requestUser(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g := s.state.groups[groupID]
	if g == nil {
		httpError(w, http.StatusNotFound, "group not found")
		return
	}
	role, member := s.state.roleOf(groupID, userID)
	if !member {
		httpError(w, http.StatusForbidden, "not a member")
		return
	}
	resp := groupJSON{ID: g.id, Name: g.name, MyRole: role, CreatedAt: g.createdAt}
	if role == roleTeacher {
		code := g.joinCode
		resp.JoinCode = &code
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResetJoinCode(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.requireTeacherLocked(w, groupID, requestUser(r))
	if !ok {
		return
	}
	g.joinCode = newJoinCode()
	writeJSON(w, http.StatusOK, map[string]string{"joinCode": g.joinCode})
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.requireTeacherLocked(w, groupID, requestUser(r))
	if !ok {
		return
	}

	type memberJSON struct {
		UserID   int64     `json:"userId"`
		Email    string    `json:"email"`
		Role     string    `json:"role"`
		JoinedAt time.Time `json:"joinedAt"`
		Owner    bool      `json:"owner"`
	}
	out := []memberJSON{}
	for _, m := range s.state.memberships {
		if m.groupID != groupID {
			continue
		}
		u := s.state.users[m.userID]
		out = append(out, memberJSON{
			UserID:   u.id,
			Email:    u.email,
			Role:     m.role,
			JoinedAt: m.joinedAt,
			Owner:    u.id == g.ownerID,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")
	targetID := pathID(r, "userID")
	callerID := requestUser(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g, ok := s.requireTeacherLocked(w, groupID, callerID)
	if !ok {
		return
	}
	targetRole, member := s.state.roleOf(groupID, targetID)
	if !member {
		httpError(w, http.StatusNotFound, "not a member")
		return
	}
	if targetID == g.ownerID {
		httpError(w, http.StatusConflict, "owner cannot be removed")
		return
	}
	// Teachers remove students; removing another teacher takes the owner.
	if targetRole == roleTeacher && callerID != g.ownerID {
		httpError(w, http.StatusForbidden, "only the owner removes teachers")
		return
	}
	s.state.removeMembership(groupID, targetID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")
	userID := requestUser(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	g := s.state.groups[groupID]
	if g == nil {
		httpError(w, http.StatusNotFound, "group not found")
		return
	}
	if _, member := s.state.roleOf(groupID, userID); !member {
		httpError(w, http.StatusForbidden, "not a member")
		return
	}
	if userID == g.ownerID {
		httpError(w, http.StatusConflict, "owner cannot leave")
		return
	}
	s.state.removeMembership(groupID, userID)
	w.WriteHeader(http.StatusNoContent)
}

// requireTeacherLocked checks group existence and the caller's TEACHER role.
// The state mutex must be held.
func (s *Server) requireTeacherLocked(w http.ResponseWriter, groupID, userID int64) (*group, bool) {
	g := s.state.groups[groupID]
	if g == nil {
		httpError(w, http.StatusNotFound, "group not found")
		return nil, false
	}
	role, member := s.state.roleOf(groupID, userID)
	if !member || role != roleTeacher {
		httpError(w, http.StatusForbidden, "teacher role required")
		return nil, false
	}
	return g, true
}

func pathID(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	return id
}
