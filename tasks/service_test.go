package tasks_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fluentive/fluentive-go"
	"github.com/fluentive/fluentive-go/devserver"
	"github.com/fluentive/fluentive-go/rest"
	"github.com/fluentive/fluentive-go/tasks"
	"github.com/fluentive/fluentive-go/vocabulary"
)

func setup(t *testing.T) (*fluentive.Client, string) {
	t.Helper()
	srv := httptest.NewServer(devserver.New())
	t.Cleanup(srv.Close)
	return login(t, srv.URL, "teacher@example.com"), srv.URL
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

func TestCreateDefaultsToDraft(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	created, err := client.Tasks.Create(ctx, tasks.CreateRequest{
		Title: "Fruit flashcards",
		Type:  tasks.TypeVocabFlashcards,
		Payload: map[string]any{
			"shuffle": true,
		},
	})
	require.NoError(t, err)
	require.Equal(t, tasks.StatusDraft, created.Status)
	require.Equal(t, tasks.TypeVocabFlashcards, created.Type)
	require.Equal(t, true, created.Payload["shuffle"])
	require.Empty(t, created.VocabularyIDs)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	client, _ := setup(t)

	_, err := client.Tasks.Create(context.Background(), tasks.CreateRequest{
		Title: "Bad",
		Type:  tasks.Type("KARAOKE"),
	})
	require.True(t, rest.IsStatus(err, http.StatusBadRequest))
}

func TestSearchFilters(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	mk := func(title string, typ tasks.Type, status tasks.Status) {
		t.Helper()
		_, err := client.Tasks.Create(ctx, tasks.CreateRequest{Title: title, Type: typ, Status: status})
		require.NoError(t, err)
	}
	mk("Fruit flashcards", tasks.TypeVocabFlashcards, tasks.StatusPublished)
	mk("Fruit essay", tasks.TypeEssay, tasks.StatusDraft)
	mk("Weather essay", tasks.TypeEssay, tasks.StatusPublished)

	byQuery, err := client.Tasks.Search(ctx, tasks.SearchParams{Query: "fruit"})
	require.NoError(t, err)
	require.EqualValues(t, 2, byQuery.TotalElements)

	byType, err := client.Tasks.Search(ctx, tasks.SearchParams{Type: tasks.TypeEssay})
	require.NoError(t, err)
	require.EqualValues(t, 2, byType.TotalElements)

	combined, err := client.Tasks.Search(ctx, tasks.SearchParams{
		Type:   tasks.TypeEssay,
		Status: tasks.StatusPublished,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, combined.TotalElements)
	require.Equal(t, "Weather essay", combined.Content[0].Title)

	// newest first
	all, err := client.Tasks.Search(ctx, tasks.SearchParams{})
	require.NoError(t, err)
	require.Equal(t, "Weather essay", all.Content[0].Title)
}

func TestUpdateKeepsPayloadWhenOmitted(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	created, err := client.Tasks.Create(ctx, tasks.CreateRequest{
		Title:   "Fruit flashcards",
		Type:    tasks.TypeVocabFlashcards,
		Payload: map[string]any{"shuffle": true},
	})
	require.NoError(t, err)

	updated, err := client.Tasks.Update(ctx, created.ID, tasks.UpdateRequest{
		Title:  "Fruit flashcards v2",
		Status: tasks.StatusPublished,
	})
	require.NoError(t, err)
	require.Equal(t, "Fruit flashcards v2", updated.Title)
	require.Equal(t, tasks.StatusPublished, updated.Status)
	require.Equal(t, true, updated.Payload["shuffle"])
}

func TestReplaceVocabulary(t *testing.T) {
	client, _ := setup(t)
	ctx := context.Background()

	apple, err := client.Vocabulary.Create(ctx, vocabulary.UpsertRequest{TermEN: "apple", TermPL: "jabłko"})
	require.NoError(t, err)
	pear, err := client.Vocabulary.Create(ctx, vocabulary.UpsertRequest{TermEN: "pear", TermPL: "gruszka"})
	require.NoError(t, err)

	created, err := client.Tasks.Create(ctx, tasks.CreateRequest{
		Title:         "Fruit flashcards",
		Type:          tasks.TypeVocabFlashcards,
		VocabularyIDs: []int64{apple.ID},
	})
	require.NoError(t, err)
	require.Equal(t, []int64{apple.ID}, created.VocabularyIDs)

	updated, err := client.Tasks.ReplaceVocabulary(ctx, created.ID, []int64{pear.ID, apple.ID})
	require.NoError(t, err)
	require.Equal(t, []int64{pear.ID, apple.ID}, updated.VocabularyIDs)

	// linking an entry from someone else's bank is rejected
	other := login(t, client.REST.BaseURL(), "other@example.com")
	foreign, err := other.Vocabulary.Create(ctx, vocabulary.UpsertRequest{TermEN: "plum", TermPL: "śliwka"})
	require.NoError(t, err)
	_, err = client.Tasks.ReplaceVocabulary(ctx, created.ID, []int64{foreign.ID})
	require.True(t, rest.IsStatus(err, http.StatusBadRequest))
}

func TestDeleteAndOwnerScoping(t *testing.T) {
	client, baseURL := setup(t)
	ctx := context.Background()

	created, err := client.Tasks.Create(ctx, tasks.CreateRequest{
		Title: "Fruit flashcards",
		Type:  tasks.TypeVocabFlashcards,
	})
	require.NoError(t, err)

	other := login(t, baseURL, "other@example.com")
	_, err = other.Tasks.Get(ctx, created.ID)
	require.True(t, rest.IsStatus(err, http.StatusNotFound))

	require.NoError(t, client.Tasks.Delete(ctx, created.ID))
	_, err = client.Tasks.Get(ctx, created.ID)
	require.True(t, rest.IsStatus(err, http.StatusNotFound))
}
