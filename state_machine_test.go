package authclient_test

import (
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		from    authclient.Status
		trigger authclient.Trigger
		to      authclient.Status
	}{
		{authclient.StatusUnauthenticated, authclient.TriggerLogin, authclient.StatusAuthenticated},
		{authclient.StatusUnauthenticated, authclient.TriggerRestored, authclient.StatusAuthenticated},
		{authclient.StatusUnauthenticated, authclient.TriggerLogout, authclient.StatusUnauthenticated},
		{authclient.StatusAuthenticated, authclient.TriggerLogin, authclient.StatusAuthenticated},
		{authclient.StatusAuthenticated, authclient.TriggerProbeSuccess, authclient.StatusAuthenticated},
		{authclient.StatusAuthenticated, authclient.TriggerProbeFailure, authclient.StatusUnauthenticated},
		{authclient.StatusAuthenticated, authclient.TriggerInvalid, authclient.StatusUnauthenticated},
		{authclient.StatusAuthenticated, authclient.TriggerLogout, authclient.StatusUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.trigger), func(t *testing.T) {
			to, err := authclient.NextStatus(tt.from, tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.to, to)
		})
	}
}

func TestNextStatus_Unknown(t *testing.T) {
	to, err := authclient.NextStatus("locked", authclient.TriggerLogin)
	assert.True(t, authclient.IsInvalidTransition(err))
	assert.Equal(t, authclient.Status("locked"), to)

	to, err = authclient.NextStatus(authclient.StatusAuthenticated, "teleport")
	assert.True(t, authclient.IsInvalidTransition(err))
	assert.Equal(t, authclient.StatusAuthenticated, to)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryValidation, richErr.Category)
	assert.Equal(t, "teleport", richErr.Metadata["trigger"])
	assert.Equal(t, "authenticated", richErr.Metadata["from"])
}
