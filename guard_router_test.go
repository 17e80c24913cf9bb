package authclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestGuardMiddleware_AllowsVerifiedSession(t *testing.T) {
	svc := &MockAuthService{}
	svc.On("Probe", mock.Anything, validToken).Return(nil)

	guard := authclient.NewGuard(guardedSession(t, svc, validToken))
	mw := guard.Middleware()

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	ctx.On("Locals", authclient.IdentityLocalsKey, mock.AnythingOfType("*authclient.Identity")).Return(nil)

	nextCalled := false
	err := mw(func(c router.Context) error {
		nextCalled = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.True(t, nextCalled)
	stored, ok := ctx.LocalsMock[authclient.IdentityLocalsKey].(*authclient.Identity)
	require.True(t, ok)
	assert.Equal(t, "u1", stored.ID)
	svc.AssertNumberOfCalls(t, "Probe", 1)
}

func TestGuardMiddleware_RedirectsToLogin(t *testing.T) {
	guard := authclient.NewGuard(guardedSession(t, &MockAuthService{}, ""))
	mw := guard.Middleware(authclient.GuardMiddlewareConfig{LoginPath: "/signin"})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	var location string
	ctx.On("Redirect", mock.Anything, []int{http.StatusSeeOther}).Run(func(args mock.Arguments) {
		location = args.String(0)
	}).Return(nil)

	nextCalled := false
	err := mw(func(c router.Context) error {
		nextCalled = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.False(t, nextCalled)
	assert.Equal(t, "/signin", location)
}

func TestGuardMiddleware_CustomDeniedHandler(t *testing.T) {
	svc := &MockAuthService{}
	svc.On("Probe", mock.Anything, validToken).Return(errors.New("401"))

	denied := errors.New("denied")
	guard := authclient.NewGuard(guardedSession(t, svc, validToken))
	mw := guard.Middleware(authclient.GuardMiddlewareConfig{
		DeniedHandler: func(router.Context) error { return denied },
	})

	ctx := router.NewMockContext()
	ctx.On("Context").Return(context.Background())

	err := mw(func(c router.Context) error {
		t.Fatal("next must not run")
		return nil
	})(ctx)

	assert.ErrorIs(t, err, denied)
}

func TestGuardMiddleware_FilterSkips(t *testing.T) {
	svc := &MockAuthService{}
	guard := authclient.NewGuard(guardedSession(t, svc, validToken))
	mw := guard.Middleware(authclient.GuardMiddlewareConfig{
		Filter: func(router.Context) bool { return true },
	})

	ctx := router.NewMockContext()

	nextCalled := false
	err := mw(func(c router.Context) error {
		nextCalled = true
		return nil
	})(ctx)

	require.NoError(t, err)
	assert.True(t, nextCalled)
	svc.AssertNotCalled(t, "Probe", mock.Anything, mock.Anything)
}
