package groups_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluentive/fluentive-go"
	"github.com/fluentive/fluentive-go/devserver"
	"github.com/fluentive/fluentive-go/groups"
	"github.com/fluentive/fluentive-go/rest"
)

// fixture is one platform with a logged-in teacher and student.
type fixture struct {
	teacher *fluentive.Client
	student *fluentive.Client
}

func setup(t *testing.T) *fixture {
	t.Helper()
	srv := httptest.NewServer(devserver.New())
	t.Cleanup(srv.Close)

	return &fixture{
		teacher: login(t, srv.URL, "teacher@example.com"),
		student: login(t, srv.URL, "student@example.com"),
	}
}

func login(t *testing.T, baseURL, email string) *fluentive.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client, err := fluentive.New(baseURL, fluentive.WithHTTPClient(&http.Client{Jar: jar}))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	require.NoError(t, client.Auth.Register(context.Background(), email, "password-123"))
	return client
}

func TestCreateAndJoinGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	require.Equal(t, groups.RoleTeacher, created.MyRole)
	require.Len(t, created.JoinCode, 8)

	joined, err := f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)
	require.Equal(t, created.ID, joined.ID)
	require.Equal(t, groups.RoleStudent, joined.MyRole)

	// joining twice conflicts
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.True(t, rest.IsStatus(err, http.StatusConflict))

	_, err = f.student.Groups.Join(ctx, "NOSUCHCD")
	require.True(t, rest.IsStatus(err, http.StatusNotFound))
}

func TestMineListsMemberships(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mine, err := f.student.Groups.Mine(ctx)
	require.NoError(t, err)
	require.Empty(t, mine)

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)

	mine, err = f.student.Groups.Mine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "Class 5B", mine[0].Name)
	require.Equal(t, groups.RoleStudent, mine[0].MyRole)
}

func TestDetailsHidesJoinCodeFromStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)

	teacherView, err := f.teacher.Groups.Details(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, teacherView.JoinCode)
	require.Equal(t, created.JoinCode, *teacherView.JoinCode)

	studentView, err := f.student.Groups.Details(ctx, created.ID)
	require.NoError(t, err)
	require.Nil(t, studentView.JoinCode)

	// non-members see nothing
	outsider := login(t, f.teacher.REST.BaseURL(), "outsider@example.com")
	_, err = outsider.Groups.Details(ctx, created.ID)
	require.True(t, rest.IsStatus(err, http.StatusForbidden))
}

func TestResetJoinCodeInvalidatesOldCode(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)

	rotated, err := f.teacher.Groups.ResetJoinCode(ctx, created.ID)
	require.NoError(t, err)
	require.NotEqual(t, created.JoinCode, rotated.JoinCode)

	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.True(t, rest.IsStatus(err, http.StatusNotFound))
	_, err = f.student.Groups.Join(ctx, rotated.JoinCode)
	require.NoError(t, err)
}

func TestMembersListIsTeacherOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)

	members, err := f.teacher.Groups.Members(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	byEmail := map[string]groups.Member{}
	for _, m := range members {
		byEmail[m.Email] = m
	}
	require.True(t, byEmail["teacher@example.com"].Owner)
	require.Equal(t, groups.RoleTeacher, byEmail["teacher@example.com"].Role)
	require.False(t, byEmail["student@example.com"].Owner)
	require.Equal(t, groups.RoleStudent, byEmail["student@example.com"].Role)

	_, err = f.student.Groups.Members(ctx, created.ID)
	require.True(t, rest.IsStatus(err, http.StatusForbidden))
}

func TestRemoveMember(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)

	members, err := f.teacher.Groups.Members(ctx, created.ID)
	require.NoError(t, err)
	var studentID, ownerID int64
	for _, m := range members {
		if m.Owner {
			ownerID = m.UserID
		} else {
			studentID = m.UserID
		}
	}

	// the owner cannot be removed
	err = f.teacher.Groups.RemoveMember(ctx, created.ID, ownerID)
	require.True(t, rest.IsStatus(err, http.StatusConflict))

	require.NoError(t, f.teacher.Groups.RemoveMember(ctx, created.ID, studentID))
	mine, err := f.student.Groups.Mine(ctx)
	require.NoError(t, err)
	require.Empty(t, mine)
}

func TestLeaveGroup(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)

	require.NoError(t, f.student.Groups.Leave(ctx, created.ID))
	mine, err := f.student.Groups.Mine(ctx)
	require.NoError(t, err)
	require.Empty(t, mine)

	// the owner cannot leave their own group
	err = f.teacher.Groups.Leave(ctx, created.ID)
	require.True(t, rest.IsStatus(err, http.StatusConflict))
}
