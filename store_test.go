package authclient_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/authtest"
)

func exerciseStore(t *testing.T, store authclient.CredentialStore) {
	t.Helper()
	ctx := context.Background()

	token, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Put(ctx, "first"))
	require.NoError(t, store.Put(ctx, "second"))

	token, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", token)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	token, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, authclient.NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	exerciseStore(t, authclient.NewFileStore(path, ""))
}

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	store := authclient.NewFileStore(path, "token")
	assert.Equal(t, path, store.Path())
	require.NoError(t, store.Put(ctx, "abc"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := authclient.NewFileStore(path, "token").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)
}

func TestFileStore_KeepsOtherSlots(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")

	work := authclient.NewFileStore(path, "work")
	home := authclient.NewFileStore(path, "home")

	require.NoError(t, work.Put(ctx, "w"))
	require.NoError(t, home.Put(ctx, "h"))
	require.NoError(t, work.Clear(ctx))

	token, err := home.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "h", token)

	token, err = work.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestFileStore_CorruptFileReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store := authclient.NewFileStore(path, "")
	token, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Put(ctx, "fresh"))
	token, err = store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestBunStore(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "credentials.db")

	store, err := authclient.OpenSQLiteStore(ctx, dsn, "")
	require.NoError(t, err)
	exerciseStore(t, store)

	require.NoError(t, store.Put(ctx, "kept"))
	require.NoError(t, store.Close())

	reopened, err := authclient.OpenSQLiteStore(ctx, dsn, "")
	require.NoError(t, err)
	defer reopened.Close()

	token, err := reopened.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "kept", token)
}

func TestBunStore_SlotsShareTable(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "credentials.db")

	primary, err := authclient.OpenSQLiteStore(ctx, dsn, "")
	require.NoError(t, err)
	defer primary.Close()
	other, err := authclient.OpenSQLiteStore(ctx, dsn, "staging")
	require.NoError(t, err)
	defer other.Close()

	require.NoError(t, primary.Put(ctx, "main-token"))
	require.NoError(t, other.Put(ctx, "staging-token"))
	require.NoError(t, other.Put(ctx, "staging-rotated"))

	token, err := primary.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main-token", token)

	token, err = other.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "staging-rotated", token)

	require.NoError(t, other.Clear(ctx))
	token, err = primary.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "main-token", token)
}

func TestCredentialRecordID(t *testing.T) {
	assert.Equal(t, authclient.CredentialRecordID("token"), authclient.CredentialRecordID("token"))
	assert.NotEqual(t, authclient.CredentialRecordID("token"), authclient.CredentialRecordID("staging"))
}

func TestCurrentClaims(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	codec := authclient.NewCodec(authclient.WithCodecClock(func() time.Time { return now }))
	store := authclient.NewMemoryStore()

	_, ok := authclient.CurrentClaims(ctx, store, codec)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, authtest.UnsignedToken(`{"sub":"u1","exp":1700000100}`)))
	claims, ok := authclient.CurrentClaims(ctx, store, codec)
	require.True(t, ok)
	assert.Equal(t, "u1", claims.Subject)

	require.NoError(t, store.Put(ctx, authtest.UnsignedToken(`{"sub":"u1","exp":1600000000}`)))
	_, ok = authclient.CurrentClaims(ctx, store, codec)
	assert.False(t, ok)

	require.NoError(t, store.Put(ctx, "garbage"))
	_, ok = authclient.CurrentClaims(ctx, store, codec)
	assert.False(t, ok)

	_, ok = authclient.CurrentClaims(ctx, nil, codec)
	assert.False(t, ok)
}
