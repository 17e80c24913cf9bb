package tasks_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/authtest"
	"github.com/goliatone/go-auth-client/tasks"
)

func newSignedClient(t *testing.T) (*tasks.Client, *authtest.Server, authclient.CredentialStore, *authclient.RecordingNavigator) {
	t.Helper()

	srv := authtest.New()
	t.Cleanup(srv.Close)
	srv.AddUser("a@b.com", "secret", "Ada")

	token, err := srv.IssueToken("a@b.com")
	require.NoError(t, err)

	store := authclient.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), token))

	nav := &authclient.RecordingNavigator{}
	signer := authclient.NewSigner(store,
		authclient.WithSignerNavigator(nav),
		authclient.WithSignerLogger(authclient.NopLogger()),
	)

	return tasks.NewClient(srv.URL, signer.Client()), srv, store, nav
}

func TestClient_CreateAndList(t *testing.T) {
	client, _, _, _ := newSignedClient(t)
	ctx := context.Background()

	items, err := client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	created, err := client.Create(ctx, tasks.NewTask{Title: "Write report", Description: "Q3"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, "General", created.Category)
	assert.False(t, created.Completed)

	items, err = client.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
}

func TestClient_ToggleAndFilter(t *testing.T) {
	client, _, _, _ := newSignedClient(t)
	ctx := context.Background()

	first, err := client.Create(ctx, tasks.NewTask{Title: "one"})
	require.NoError(t, err)
	_, err = client.Create(ctx, tasks.NewTask{Title: "two"})
	require.NoError(t, err)

	toggled, err := client.ToggleComplete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	done := true
	items, err := client.List(ctx, tasks.ListOptions{Completed: &done})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)

	require.NoError(t, client.Delete(ctx, first.ID))
	err = client.Delete(ctx, first.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, tasks.Status(err))
}

func TestClient_CreateRequiresTitle(t *testing.T) {
	client, srv, _, _ := newSignedClient(t)
	hits := srv.ProbeHits()

	_, err := client.Create(context.Background(), tasks.NewTask{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, hits, srv.ProbeHits(), "no request is sent")
}

func TestClient_RejectedCredential(t *testing.T) {
	client, srv, store, nav := newSignedClient(t)
	srv.FailProbe(true)

	_, err := client.List(context.Background())
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, tasks.Status(err))

	token, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.Equal(t, []authclient.Destination{authclient.DestinationLogin}, nav.Destinations())
}
