package devserver

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultInviteExpiry = 7 * 24 * time.Hour

type inviteCreatedJSON struct {
	InviteID    int64     `json:"inviteId"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
	MaxUses     *int      `json:"maxUses"`
	RoleGranted string    `json:"roleGranted"`
}

func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")
	var req struct {
		RoleGranted      *string `json:"roleGranted"`
		MaxUses          *int    `json:"maxUses"`
		ExpiresInMinutes *int    `json:"expiresInMinutes"`
	}
	if !readJSON(w, r, &req) {
		return
	}

	role := roleStudent
	if req.RoleGranted != nil {
		role = *req.RoleGranted
		if role != roleStudent && role != roleTeacher {
			httpError(w, http.StatusBadRequest, "unknown role")
			return
		}
	}
	expiry := defaultInviteExpiry
	if req.ExpiresInMinutes != nil {
		expiry = time.Duration(*req.ExpiresInMinutes) * time.Minute
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.requireTeacherLocked(w, groupID, requestUser(r)); !ok {
		return
	}
	inv := &invite{
		id:          s.state.id(),
		groupID:     groupID,
		token:       uuid.NewString(),
		roleGranted: role,
		maxUses:     req.MaxUses,
		expiresAt:   s.now().Add(expiry),
		createdAt:   s.now(),
	}
	s.state.invites[inv.id] = inv

	writeJSON(w, http.StatusCreated, inviteCreatedJSON{
		InviteID: inv.id, Token: inv.token, ExpiresAt: inv.expiresAt,
		MaxUses: inv.maxUses, RoleGranted: inv.roleGranted,
	})
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.requireTeacherLocked(w, groupID, requestUser(r)); !ok {
		return
	}

	type summaryJSON struct {
		InviteID    int64     `json:"inviteId"`
		CreatedAt   time.Time `json:"createdAt"`
		ExpiresAt   time.Time `json:"expiresAt"`
		Revoked     bool      `json:"revoked"`
		MaxUses     *int      `json:"maxUses"`
		UsedCount   int       `json:"usedCount"`
		RoleGranted string    `json:"roleGranted"`
	}
	out := []summaryJSON{}
	for _, inv := range s.state.invites {
		if inv.groupID != groupID {
			continue
		}
		out = append(out, summaryJSON{
			InviteID: inv.id, CreatedAt: inv.createdAt, ExpiresAt: inv.expiresAt,
			Revoked: inv.revoked, MaxUses: inv.maxUses, UsedCount: inv.usedCount,
			RoleGranted: inv.roleGranted,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InviteID < out[j].InviteID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRevokeInvite(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")
	inviteID := pathID(r, "inviteID")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.requireTeacherLocked(w, groupID, requestUser(r)); !ok {
		return
	}
	inv := s.state.invites[inviteID]
	if inv == nil || inv.groupID != groupID {
		httpError(w, http.StatusNotFound, "invite not found")
		return
	}
	inv.revoked = true
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecreateInvite(w http.ResponseWriter, r *http.Request) {
	groupID := pathID(r, "groupID")
	inviteID := pathID(r, "inviteID")

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if _, ok := s.requireTeacherLocked(w, groupID, requestUser(r)); !ok {
		return
	}
	old := s.state.invites[inviteID]
	if old == nil || old.groupID != groupID {
		httpError(w, http.StatusNotFound, "invite not found")
		return
	}
	old.revoked = true

	// Same parameters, fresh token and expiry window.
	next := &invite{
		id:          s.state.id(),
		groupID:     groupID,
		token:       uuid.NewString(),
		roleGranted: old.roleGranted,
		maxUses:     old.maxUses,
		expiresAt:   s.now().Add(old.expiresAt.Sub(old.createdAt)),
		createdAt:   s.now(),
	}
	s.state.invites[next.id] = next

	writeJSON(w, http.StatusCreated, inviteCreatedJSON{
		InviteID: next.id, Token: next.token, ExpiresAt: next.expiresAt,
		MaxUses: next.maxUses, RoleGranted: next.roleGranted,
	})
}

func (s *Server) handlePreviewInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	// An optional bearer makes alreadyMember meaningful.
	callerID, _ := s.bearerUser(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	inv := s.state.inviteByToken(strings.TrimSpace(req.Token))
	if inv == nil {
		httpError(w, http.StatusNotFound, "invite not found")
		return
	}
	g := s.state.groups[inv.groupID]

	expired := s.now().After(inv.expiresAt)
	exhausted := inv.maxUses != nil && inv.usedCount >= *inv.maxUses
	alreadyMember := false
	if callerID != 0 {
		_, alreadyMember = s.state.roleOf(inv.groupID, callerID)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid":         !expired && !exhausted && !inv.revoked && !alreadyMember,
		"groupName":     g.name,
		"roleGranted":   inv.roleGranted,
		"expiresAt":     inv.expiresAt,
		"maxUses":       inv.maxUses,
		"usedCount":     inv.usedCount,
		"exhausted":     exhausted,
		"revoked":       inv.revoked,
		"expired":       expired,
		"alreadyMember": alreadyMember,
	})
}

func (s *Server) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if !readJSON(w, r, &req) {
		return
	}
	userID := requestUser(r)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	inv := s.state.inviteByToken(strings.TrimSpace(req.Token))
	if inv == nil {
		httpError(w, http.StatusNotFound, "invite not found")
		return
	}
	switch {
	case inv.revoked:
		httpError(w, http.StatusGone, "invite revoked")
		return
	case s.now().After(inv.expiresAt):
		httpError(w, http.StatusGone, "invite expired")
		return
	case inv.maxUses != nil && inv.usedCount >= *inv.maxUses:
		httpError(w, http.StatusGone, "invite exhausted")
		return
	}
	if _, member := s.state.roleOf(inv.groupID, userID); member {
		httpError(w, http.StatusConflict, "already a member")
		return
	}

	inv.usedCount++
	s.state.memberships = append(s.state.memberships, &membership{
		groupID:  inv.groupID,
		userID:   userID,
		role:     inv.roleGranted,
		joinedAt: s.now(),
	})
	g := s.state.groups[inv.groupID]

	writeJSON(w, http.StatusOK, map[string]any{
		"groupId":   g.id,
		"groupName": g.name,
		"myRole":    inv.roleGranted,
	})
}
