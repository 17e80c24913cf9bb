package authclient_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestIdentityContext(t *testing.T) {
	_, ok := authclient.IdentityFromContext(context.Background())
	assert.False(t, ok)

	id := &authclient.Identity{ID: "u1", Email: "a@b.com", Name: "Ada"}
	got, ok := authclient.IdentityFromContext(authclient.WithIdentity(context.Background(), id))
	require.True(t, ok)
	assert.Same(t, id, got)

	_, ok = authclient.IdentityFromContext(authclient.WithIdentity(context.Background(), nil))
	assert.False(t, ok)
}

func TestIdentityFromRouter(t *testing.T) {
	id := &authclient.Identity{ID: "u1"}

	ctx := router.NewMockContext()
	ctx.LocalsMock[authclient.IdentityLocalsKey] = id

	got, ok := authclient.IdentityFromRouter(ctx)
	require.True(t, ok)
	assert.Equal(t, "u1", got.ID)

	empty := router.NewMockContext()

	_, ok = authclient.IdentityFromRouter(empty)
	assert.False(t, ok)
}
