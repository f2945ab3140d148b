package devserver

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		httpError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if len(req.Password) < 8 {
		httpError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "hashing password")
		return
	}

	s.state.mu.Lock()
	if s.state.userByEmail(req.Email) != nil {
		s.state.mu.Unlock()
		httpError(w, http.StatusConflict, "email already registered")
		return
	}
	u := &user{
		id:           s.state.id(),
		email:        req.Email,
		passwordHash: hash,
		createdAt:    s.now(),
	}
	s.state.users[u.id] = u
	s.state.mu.Unlock()

	s.startSession(w, u, http.StatusCreated)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !readJSON(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	u := s.state.userByEmail(strings.TrimSpace(req.Email))
	s.state.mu.Unlock()

	if u == nil || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		httpError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.startSession(w, u, http.StatusOK)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(refreshCookieName); err == nil {
		s.dropRefreshSession(cookie.Value)
	}
	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshCookieName)
	if err != nil {
		httpError(w, http.StatusUnauthorized, "no refresh session")
		return
	}
	u, next, err := s.rotateRefreshSession(cookie.Value)
	if err != nil {
		s.clearRefreshCookie(w)
		httpError(w, http.StatusUnauthorized, "refresh session expired")
		return
	}

	access, err := s.mintAccessToken(u)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "minting access token")
		return
	}
	s.setRefreshCookie(w, next)
	writeJSON(w, http.StatusOK, map[string]string{"accessToken": access})
}

// startSession issues both tokens and writes the auth response.
func (s *Server) startSession(w http.ResponseWriter, u *user, status int) {
	access, err := s.mintAccessToken(u)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "minting access token")
		return
	}
	refresh, err := s.issueRefreshSession(u.id)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "creating refresh session")
		return
	}
	s.setRefreshCookie(w, refresh)
	writeJSON(w, status, map[string]string{"accessToken": access})
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/api/auth",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.refreshTTL.Seconds()),
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/api/auth",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
