package lessons_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fluentive/fluentive-go"
	"github.com/fluentive/fluentive-go/devserver"
	"github.com/fluentive/fluentive-go/groups"
	"github.com/fluentive/fluentive-go/internal/utils"
	"github.com/fluentive/fluentive-go/lessons"
	"github.com/fluentive/fluentive-go/rest"
	"github.com/fluentive/fluentive-go/tasks"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock     *clock
	teacher   *fluentive.Client
	student   *fluentive.Client
	groupID   int64
	studentID int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	clk := &clock{now: time.Now()}
	srv := httptest.NewServer(devserver.New(devserver.WithNowFunc(clk.Now)))
	t.Cleanup(srv.Close)

	f := &fixture{
		clock:   clk,
		teacher: login(t, srv.URL, "teacher@example.com"),
		student: login(t, srv.URL, "student@example.com"),
	}
	ctx := context.Background()
	created, err := f.teacher.Groups.Create(ctx, "Class 5B")
	require.NoError(t, err)
	f.groupID = created.ID
	_, err = f.student.Groups.Join(ctx, created.JoinCode)
	require.NoError(t, err)

	members, err := f.teacher.Groups.Members(ctx, f.groupID)
	require.NoError(t, err)
	for _, m := range members {
		if m.Role == groups.RoleStudent {
			f.studentID = m.UserID
		}
	}
	return f
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

func (f *fixture) publishedLesson(t *testing.T, title string) lessons.Lesson {
	t.Helper()
	created, err := f.teacher.Lessons.Create(context.Background(), lessons.CreateRequest{
		Title:  title,
		Status: lessons.StatusPublished,
	})
	require.NoError(t, err)
	return created
}

func TestCreateListArchive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	created, err := f.teacher.Lessons.Create(ctx, lessons.CreateRequest{
		Title:       "Fruit week",
		Description: utils.Ptr("Apples and pears"),
	})
	require.NoError(t, err)
	require.Equal(t, lessons.StatusDraft, created.Status)
	require.Equal(t, "Apples and pears", utils.Value(created.Description))
	require.Empty(t, created.Items)

	require.NoError(t, f.teacher.Lessons.Archive(ctx, created.ID))

	page, err := f.teacher.Lessons.List(ctx, lessons.ListParams{})
	require.NoError(t, err)
	require.EqualValues(t, 0, page.TotalElements)

	page, err = f.teacher.Lessons.List(ctx, lessons.ListParams{IncludeArchived: true})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalElements)
	require.Equal(t, lessons.StatusArchived, page.Content[0].Status)
}

func TestReplaceItemsKeepsOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	mkTask := func(title string) int64 {
		t.Helper()
		created, err := f.teacher.Tasks.Create(ctx, tasks.CreateRequest{Title: title, Type: tasks.TypeEssay})
		require.NoError(t, err)
		return created.ID
	}
	first := mkTask("Essay 1")
	second := mkTask("Essay 2")
	third := mkTask("Essay 3")

	lesson := f.publishedLesson(t, "Fruit week")
	updated, err := f.teacher.Lessons.ReplaceItems(ctx, lesson.ID, []int64{third, first, second})
	require.NoError(t, err)
	require.Equal(t, []lessons.Item{
		{TaskID: third, Position: 0},
		{TaskID: first, Position: 1},
		{TaskID: second, Position: 2},
	}, updated.Items)

	// replacing again reorders and drops
	updated, err = f.teacher.Lessons.ReplaceItems(ctx, lesson.ID, []int64{first})
	require.NoError(t, err)
	require.Equal(t, []lessons.Item{{TaskID: first, Position: 0}}, updated.Items)
}

func TestAssignLandsOnTop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a := f.publishedLesson(t, "Week 1")
	b := f.publishedLesson(t, "Week 2")

	firstAssigned, err := f.teacher.Lessons.Assign(ctx, f.groupID, a.ID, lessons.AssignRequest{})
	require.NoError(t, err)
	require.Nil(t, firstAssigned.AssignedToUserID)
	require.Equal(t, "Week 1", firstAssigned.LessonTitle)

	secondAssigned, err := f.teacher.Lessons.Assign(ctx, f.groupID, b.ID, lessons.AssignRequest{})
	require.NoError(t, err)
	require.Less(t, secondAssigned.DisplayOrder, firstAssigned.DisplayOrder)

	page, err := f.teacher.Lessons.ListForGroup(ctx, lessons.ListAssignmentsParams{GroupID: f.groupID})
	require.NoError(t, err)
	require.EqualValues(t, 2, page.TotalElements)
	require.Equal(t, "Week 2", page.Content[0].LessonTitle)
	require.Equal(t, "Week 1", page.Content[1].LessonTitle)
}

func TestPersonalBucketIsSeparate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	lesson := f.publishedLesson(t, "Extra practice")
	assigned, err := f.teacher.Lessons.Assign(ctx, f.groupID, lesson.ID, lessons.AssignRequest{
		AssignedToUserID: &f.studentID,
	})
	require.NoError(t, err)
	require.Equal(t, f.studentID, utils.Value(assigned.AssignedToUserID))

	groupWide, err := f.teacher.Lessons.ListForGroup(ctx, lessons.ListAssignmentsParams{GroupID: f.groupID})
	require.NoError(t, err)
	require.EqualValues(t, 0, groupWide.TotalElements)

	personal, err := f.teacher.Lessons.ListForGroup(ctx, lessons.ListAssignmentsParams{
		GroupID: f.groupID,
		UserID:  &f.studentID,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, personal.TotalElements)

	// assigning to a non-member is rejected
	outsiderID := f.studentID + 1000
	_, err = f.teacher.Lessons.Assign(ctx, f.groupID, lesson.ID, lessons.AssignRequest{
		AssignedToUserID: &outsiderID,
	})
	require.True(t, rest.IsStatus(err, http.StatusBadRequest))
}

func TestReorderRewritesBucket(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.teacher.Lessons.Assign(ctx, f.groupID, f.publishedLesson(t, "Week 1").ID, lessons.AssignRequest{})
	require.NoError(t, err)
	b, err := f.teacher.Lessons.Assign(ctx, f.groupID, f.publishedLesson(t, "Week 2").ID, lessons.AssignRequest{})
	require.NoError(t, err)

	require.NoError(t, f.teacher.Lessons.Reorder(ctx, f.groupID, nil, []int64{a.ID, b.ID}))

	page, err := f.teacher.Lessons.ListForGroup(ctx, lessons.ListAssignmentsParams{GroupID: f.groupID})
	require.NoError(t, err)
	require.Equal(t, "Week 1", page.Content[0].LessonTitle)
	require.Equal(t, "Week 2", page.Content[1].LessonTitle)

	// ids from the wrong bucket are rejected
	err = f.teacher.Lessons.Reorder(ctx, f.groupID, &f.studentID, []int64{a.ID})
	require.True(t, rest.IsStatus(err, http.StatusBadRequest))
}

func TestStudentSeesVisiblePublishedAssignments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	visible := f.publishedLesson(t, "Now")
	_, err := f.teacher.Lessons.Assign(ctx, f.groupID, visible.ID, lessons.AssignRequest{})
	require.NoError(t, err)

	// scheduled for later
	later := f.publishedLesson(t, "Later")
	futureFrom := f.clock.Now().Add(time.Hour)
	_, err = f.teacher.Lessons.Assign(ctx, f.groupID, later.ID, lessons.AssignRequest{
		VisibleFrom: &futureFrom,
	})
	require.NoError(t, err)

	// a draft lesson stays hidden even when assigned
	draft, err := f.teacher.Lessons.Create(ctx, lessons.CreateRequest{Title: "Draft"})
	require.NoError(t, err)
	_, err = f.teacher.Lessons.Assign(ctx, f.groupID, draft.ID, lessons.AssignRequest{})
	require.NoError(t, err)

	page, err := f.student.Lessons.MyGroupWide(ctx, 0, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, page.TotalElements)
	require.Equal(t, "Now", page.Content[0].LessonTitle)

	// the window opens
	f.clock.Advance(61 * time.Minute)
	page, err = f.student.Lessons.MyGroupWide(ctx, 0, 20)
	require.NoError(t, err)
	require.EqualValues(t, 2, page.TotalElements)
}

func TestStudentPersonalAssignments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	lesson := f.publishedLesson(t, "Extra practice")
	_, err := f.teacher.Lessons.Assign(ctx, f.groupID, lesson.ID, lessons.AssignRequest{
		AssignedToUserID: &f.studentID,
	})
	require.NoError(t, err)

	personal, err := f.student.Lessons.MyPersonal(ctx, 0, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, personal.TotalElements)

	groupWide, err := f.student.Lessons.MyGroupWide(ctx, 0, 20)
	require.NoError(t, err)
	require.EqualValues(t, 0, groupWide.TotalElements)
}

func TestUnassignAndUpdateAssignment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	assigned, err := f.teacher.Lessons.Assign(ctx, f.groupID, f.publishedLesson(t, "Week 1").ID, lessons.AssignRequest{})
	require.NoError(t, err)

	until := f.clock.Now().Add(24 * time.Hour)
	updated, err := f.teacher.Lessons.UpdateAssignment(ctx, f.groupID, assigned.ID, lessons.UpdateAssignmentRequest{
		VisibleTo: &until,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.VisibleTo)

	require.NoError(t, f.teacher.Lessons.Unassign(ctx, f.groupID, assigned.ID))
	page, err := f.teacher.Lessons.ListForGroup(ctx, lessons.ListAssignmentsParams{GroupID: f.groupID})
	require.NoError(t, err)
	require.EqualValues(t, 0, page.TotalElements)
}

func TestAssignmentEndpointsAreTeacherOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	lesson := f.publishedLesson(t, "Week 1")
	_, err := f.student.Lessons.Assign(ctx, f.groupID, lesson.ID, lessons.AssignRequest{})
	require.True(t, rest.IsStatus(err, http.StatusForbidden))

	_, err = f.student.Lessons.ListForGroup(ctx, lessons.ListAssignmentsParams{GroupID: f.groupID})
	require.True(t, rest.IsStatus(err, http.StatusForbidden))
}
