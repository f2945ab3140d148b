package devserver

import (
	"crypto/rand"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	roleStudent = "STUDENT"
	roleTeacher = "TEACHER"
)

type user struct {
	id           int64
	email        string
	passwordHash []byte
	createdAt    time.Time
}

type group struct {
	id        int64
	name      string
	joinCode  string
	ownerID   int64
	createdAt time.Time
}

type membership struct {
	groupID  int64
	userID   int64
	role     string
	joinedAt time.Time
}

type invite struct {
	id          int64
	groupID     int64
	token       string
	roleGranted string
	maxUses     *int
	usedCount   int
	revoked     bool
	expiresAt   time.Time
	createdAt   time.Time
}

type vocabEntry struct {
	id           int64
	ownerID      int64
	termEN       string
	termPL       string
	exampleEN    *string
	examplePL    *string
	imageMediaID *int64
	audioMediaID *int64
	createdAt    time.Time
	updatedAt    time.Time
}

type task struct {
	id            int64
	ownerID       int64
	title         string
	taskType      string
	status        string
	payload       map[string]any
	vocabularyIDs []int64
	createdAt     time.Time
	updatedAt     time.Time
}

type lesson struct {
	id          int64
	ownerID     int64
	title       string
	description *string
	status      string
	taskIDs     []int64 // ordered
	createdAt   time.Time
	updatedAt   time.Time
}

type assignment struct {
	id               int64
	groupID          int64
	lessonID         int64
	assignedToUserID *int64
	displayOrder     int
	visibleFrom      *time.Time
	visibleTo        *time.Time
	createdAt        time.Time
}

type mediaObject struct {
	id           int64
	ownerID      int64
	mediaType    string
	originalName string
	contentType  string
	data         []byte
	createdAt    time.Time
}

type refreshSession struct {
	userID    int64
	expiresAt time.Time
}

// state is the whole in-memory world, guarded by one mutex. This is a test
// double, not a production store.
type state struct {
	mu sync.Mutex

	nextID int64

	users       map[int64]*user
	groups      map[int64]*group
	memberships []*membership
	invites     map[int64]*invite
	vocabulary  map[int64]*vocabEntry
	tasks       map[int64]*task
	lessons     map[int64]*lesson
	assignments map[int64]*assignment
	media       map[int64]*mediaObject

	refreshSessions map[string]*refreshSession
}

func newState() *state {
	return &state{
		users:           make(map[int64]*user),
		groups:          make(map[int64]*group),
		invites:         make(map[int64]*invite),
		vocabulary:      make(map[int64]*vocabEntry),
		tasks:           make(map[int64]*task),
		lessons:         make(map[int64]*lesson),
		assignments:     make(map[int64]*assignment),
		media:           make(map[int64]*mediaObject),
		refreshSessions: make(map[string]*refreshSession),
	}
}

// callers hold st.mu
func (st *state) id() int64 {
	st.nextID++
	return st.nextID
}

func (st *state) userByEmail(email string) *user {
	for _, u := range st.users {
		if strings.EqualFold(u.email, email) {
			return u
		}
	}
	return nil
}

func (st *state) roleOf(groupID, userID int64) (string, bool) {
	for _, m := range st.memberships {
		if m.groupID == groupID && m.userID == userID {
			return m.role, true
		}
	}
	return "", false
}

func (st *state) membershipsOf(userID int64) []*membership {
	var out []*membership
	for _, m := range st.memberships {
		if m.userID == userID {
			out = append(out, m)
		}
	}
	return out
}

func (st *state) removeMembership(groupID, userID int64) {
	for i, m := range st.memberships {
		if m.groupID == groupID && m.userID == userID {
			st.memberships = append(st.memberships[:i], st.memberships[i+1:]...)
			return
		}
	}
}

func (st *state) groupByJoinCode(code string) *group {
	for _, g := range st.groups {
		if g.joinCode == code {
			return g
		}
	}
	return nil
}

func (st *state) inviteByToken(token string) *invite {
	for _, inv := range st.invites {
		if inv.token == token {
			return inv
		}
	}
	return nil
}

// bucket returns a group's assignments for one bucket (group-wide when
// userID is nil), sorted by display order.
func (st *state) bucket(groupID int64, userID *int64) []*assignment {
	var out []*assignment
	for _, a := range st.assignments {
		if a.groupID != groupID {
			continue
		}
		if (a.assignedToUserID == nil) != (userID == nil) {
			continue
		}
		if userID != nil && *a.assignedToUserID != *userID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].displayOrder < out[j].displayOrder })
	return out
}

const joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func newJoinCode() string {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			panic(err)
		}
		b.WriteByte(joinCodeAlphabet[n.Int64()])
	}
	return b.String()
}
