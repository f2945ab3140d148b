package devserver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// mintAccessToken signs a short-lived HMAC-SHA256 access token for a user.
func (s *Server) mintAccessToken(u *user) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   strconv.FormatInt(u.id, 10),
		"email": u.email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// verifyAccessToken validates a bearer token and returns the user id.
func (s *Server) verifyAccessToken(raw string) (int64, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return 0, err
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("unexpected claims type")
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(sub, 10, 64)
}

// issueRefreshSession creates a refresh session keyed by a random 256-bit
// hex token.
func (s *Server) issueRefreshSession(userID int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	token := hex.EncodeToString(raw)

	s.state.mu.Lock()
	s.state.refreshSessions[token] = &refreshSession{
		userID:    userID,
		expiresAt: s.now().Add(s.refreshTTL),
	}
	s.state.mu.Unlock()
	return token, nil
}

// rotateRefreshSession consumes a refresh token: valid and unexpired yields
// the user plus a replacement token, anything else fails. The old token is
// deleted either way.
func (s *Server) rotateRefreshSession(token string) (*user, string, error) {
	s.state.mu.Lock()
	sess, ok := s.state.refreshSessions[token]
	if ok {
		delete(s.state.refreshSessions, token)
	}
	var u *user
	if ok && !s.now().After(sess.expiresAt) {
		u = s.state.users[sess.userID]
	}
	s.state.mu.Unlock()

	if u == nil {
		return nil, "", fmt.Errorf("invalid refresh session")
	}
	next, err := s.issueRefreshSession(u.id)
	if err != nil {
		return nil, "", err
	}
	return u, next, nil
}

func (s *Server) dropRefreshSession(token string) {
	s.state.mu.Lock()
	delete(s.state.refreshSessions, token)
	s.state.mu.Unlock()
}
