package authclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
	"github.com/goliatone/go-auth-client/authtest"
)

func newService(t *testing.T, baseURL string) *authclient.HTTPAuthService {
	t.Helper()
	svc, err := authclient.NewHTTPAuthService(baseURL, authclient.WithServiceLogger(authclient.NopLogger()))
	require.NoError(t, err)
	return svc
}

func TestNewHTTPAuthService_RejectsInvalidURL(t *testing.T) {
	for _, raw := range []string{"", "localhost", "/api", "://bad"} {
		_, err := authclient.NewHTTPAuthService(raw)
		assert.Error(t, err, raw)
	}

	svc, err := authclient.NewHTTPAuthService("http://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", svc.BaseURL())
}

func TestHTTPAuthService_Login(t *testing.T) {
	srv := authtest.New()
	defer srv.Close()
	srv.AddUser("a@b.com", "secret", "Ada")

	svc := newService(t, srv.URL)
	ctx := context.Background()

	token, err := svc.Login(ctx, "a@b.com", "secret")
	require.NoError(t, err)

	claims, err := authclient.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "Ada", claims.Name)

	_, err = svc.Login(ctx, "a@b.com", "wrong")
	require.Error(t, err)
	assert.True(t, authclient.IsAuthError(err))
	assert.Equal(t, "Incorrect email or password", authclient.AuthErrorMessage(err))
}

func TestHTTPAuthService_Register(t *testing.T) {
	srv := authtest.New()
	defer srv.Close()

	svc := newService(t, srv.URL)
	ctx := context.Background()

	record, err := svc.Register(ctx, "new@b.com", "secret", "New")
	require.NoError(t, err)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "new@b.com", record.Email)
	assert.Equal(t, "New", record.Name)

	_, err = svc.Register(ctx, "new@b.com", "secret", "New")
	require.Error(t, err)
	assert.True(t, authclient.IsAuthError(err))
	assert.Equal(t, "Email already registered", authclient.AuthErrorMessage(err))

	_, err = svc.Register(ctx, "", "secret", "")
	require.Error(t, err)
	assert.Equal(t, "field required", authclient.AuthErrorMessage(err))
}

func TestHTTPAuthService_Probe(t *testing.T) {
	srv := authtest.New()
	defer srv.Close()
	srv.AddUser("a@b.com", "secret", "Ada")

	svc := newService(t, srv.URL)
	ctx := context.Background()

	token, err := srv.IssueToken("a@b.com")
	require.NoError(t, err)

	require.NoError(t, svc.Probe(ctx, token))
	assert.Equal(t, "Bearer "+token, srv.LastAuthorization())

	err = svc.Probe(ctx, authtest.UnsignedToken(`{"sub":"u1"}`))
	require.Error(t, err)
	assert.True(t, authclient.IsProbeFailure(err))

	srv.FailProbe(true)
	assert.True(t, authclient.IsProbeFailure(svc.Probe(ctx, token)))
}

func TestHTTPAuthService_ProbeTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := newService(t, url).Probe(context.Background(), "token")
	require.Error(t, err)
	assert.True(t, authclient.IsProbeFailure(err))
}

func TestHTTPAuthService_ErrorDetail(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
	}{
		{"string detail", http.StatusUnauthorized, `{"detail":"Bad credentials"}`, "Bad credentials"},
		{"list detail", http.StatusUnprocessableEntity, `{"detail":[{"msg":"a"},{"msg":"b"}]}`, "a; b"},
		{"no detail", http.StatusBadRequest, `{"error":"x"}`, "Login failed"},
		{"empty detail", http.StatusBadRequest, `{"detail":""}`, "Login failed"},
		{"not json", http.StatusInternalServerError, `<html>oops</html>`, "Login failed"},
		{"empty body", http.StatusBadGateway, ``, "Login failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newService(t, srv.URL).Login(context.Background(), "a@b.com", "x")
			require.Error(t, err)
			assert.True(t, authclient.IsAuthError(err))
			assert.Equal(t, tt.expected, authclient.AuthErrorMessage(err))
		})
	}
}

func TestHTTPAuthService_LoginWithoutToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token_type":"bearer"}`))
	}))
	defer srv.Close()

	_, err := newService(t, srv.URL).Login(context.Background(), "a@b.com", "x")
	assert.ErrorIs(t, err, authclient.ErrNoToken)
}
