// Package devserver is an in-memory implementation of the Fluentive REST
// contract: cookie-based refresh sessions, short-lived JWT access tokens,
// groups, invites, the vocabulary/task/lesson banks and media storage. It
// backs the integration tests and the local devserver binary; it is not a
// production server.
package devserver

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

const refreshCookieName = "fluentive_refresh"

// Server serves the platform API from memory.
type Server struct {
	state  *state
	router *mux.Router
	logger zerolog.Logger

	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithSecret sets the JWT signing secret.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithTokenTTLs sets the access and refresh lifetimes.
func WithTokenTTLs(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = access
		s.refreshTTL = refresh
	}
}

// WithNowFunc sets the clock (primarily for tests).
func WithNowFunc(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithLogger sets the request logger. Defaults to disabled.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// New creates a Server with sane development defaults: 15 minute access
// tokens, 30 day refresh sessions.
func New(options ...Option) *Server {
	s := &Server{
		state:      newState(),
		logger:     zerolog.Nop(),
		secret:     []byte("fluentive-dev-secret"),
		accessTTL:  15 * time.Minute,
		refreshTTL: 30 * 24 * time.Hour,
		now:        time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	// auth
	r.HandleFunc("/api/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	// groups
	r.HandleFunc("/api/groups", s.auth(s.handleCreateGroup)).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/join", s.auth(s.handleJoinGroup)).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/me", s.auth(s.handleMyGroups)).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}", s.auth(s.handleGroupDetails)).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/join-code/reset", s.auth(s.handleResetJoinCode)).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/members", s.auth(s.handleListMembers)).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/members/remove/{userID:[0-9]+}", s.auth(s.handleRemoveMember)).Methods(http.MethodDelete)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/members/leave", s.auth(s.handleLeaveGroup)).Methods(http.MethodPost)

	// invites
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/invites", s.auth(s.handleCreateInvite)).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/invites", s.auth(s.handleListInvites)).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/invites/{inviteID:[0-9]+}/revoke", s.auth(s.handleRevokeInvite)).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/invites/{inviteID:[0-9]+}/recreate", s.auth(s.handleRecreateInvite)).Methods(http.MethodPost)
	r.HandleFunc("/api/invites/preview", s.handlePreviewInvite).Methods(http.MethodPost)
	r.HandleFunc("/api/invites/accept", s.auth(s.handleAcceptInvite)).Methods(http.MethodPost)

	// vocabulary
	r.HandleFunc("/api/vocabulary", s.auth(s.handleCreateVocabulary)).Methods(http.MethodPost)
	r.HandleFunc("/api/vocabulary", s.auth(s.handleSearchVocabulary)).Methods(http.MethodGet)
	r.HandleFunc("/api/vocabulary/{id:[0-9]+}", s.auth(s.handleGetVocabulary)).Methods(http.MethodGet)
	r.HandleFunc("/api/vocabulary/{id:[0-9]+}", s.auth(s.handleUpdateVocabulary)).Methods(http.MethodPut)
	r.HandleFunc("/api/vocabulary/{id:[0-9]+}", s.auth(s.handleDeleteVocabulary)).Methods(http.MethodDelete)

	// tasks
	r.HandleFunc("/api/tasks", s.auth(s.handleCreateTask)).Methods(http.MethodPost)
	r.HandleFunc("/api/tasks", s.auth(s.handleSearchTasks)).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskID:[0-9]+}", s.auth(s.handleGetTask)).Methods(http.MethodGet)
	r.HandleFunc("/api/tasks/{taskID:[0-9]+}", s.auth(s.handleUpdateTask)).Methods(http.MethodPut)
	r.HandleFunc("/api/tasks/{taskID:[0-9]+}", s.auth(s.handleDeleteTask)).Methods(http.MethodDelete)
	r.HandleFunc("/api/tasks/{taskID:[0-9]+}/vocabulary", s.auth(s.handleReplaceTaskVocabulary)).Methods(http.MethodPut)

	// lessons
	r.HandleFunc("/api/lessons", s.auth(s.handleCreateLesson)).Methods(http.MethodPost)
	r.HandleFunc("/api/lessons", s.auth(s.handleListLessons)).Methods(http.MethodGet)
	r.HandleFunc("/api/lessons/{lessonID:[0-9]+}", s.auth(s.handleGetLesson)).Methods(http.MethodGet)
	r.HandleFunc("/api/lessons/{lessonID:[0-9]+}", s.auth(s.handleUpdateLesson)).Methods(http.MethodPut)
	r.HandleFunc("/api/lessons/{lessonID:[0-9]+}", s.auth(s.handleArchiveLesson)).Methods(http.MethodDelete)
	r.HandleFunc("/api/lessons/{lessonID:[0-9]+}/items", s.auth(s.handleReplaceLessonItems)).Methods(http.MethodPut)

	// assignments
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/lessons/{lessonID:[0-9]+}/assign", s.auth(s.handleAssignLesson)).Methods(http.MethodPost)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/lessons/assignments/order", s.auth(s.handleReorderAssignments)).Methods(http.MethodPut)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/lessons/assignments", s.auth(s.handleListGroupAssignments)).Methods(http.MethodGet)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/lessons/assignments/{assignmentID:[0-9]+}", s.auth(s.handleUnassignLesson)).Methods(http.MethodDelete)
	r.HandleFunc("/api/groups/{groupID:[0-9]+}/lessons/assignments/{assignmentID:[0-9]+}", s.auth(s.handleUpdateAssignment)).Methods(http.MethodPatch)
	r.HandleFunc("/api/lessons/assignments/me/personal", s.auth(s.handleMyPersonalAssignments)).Methods(http.MethodGet)
	r.HandleFunc("/api/lessons/assignments/me/group", s.auth(s.handleMyGroupAssignments)).Methods(http.MethodGet)

	// media
	r.HandleFunc("/api/media", s.auth(s.handleUploadMedia)).Methods(http.MethodPost)
	r.HandleFunc("/api/media/{mediaID:[0-9]+}/info", s.auth(s.handleMediaInfo)).Methods(http.MethodGet)
	r.HandleFunc("/api/media/{mediaID:[0-9]+}", s.auth(s.handleDownloadMedia)).Methods(http.MethodGet)
	r.HandleFunc("/api/media/{mediaID:[0-9]+}", s.auth(s.handleDeleteMedia)).Methods(http.MethodDelete)

	return r
}
