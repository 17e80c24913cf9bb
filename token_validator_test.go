package authclient_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authclient "github.com/goliatone/go-auth-client"
)

type verifierStub struct {
	calls int
	err   error
}

func (v *verifierStub) Verify(string) error {
	v.calls++
	return v.err
}

func TestMultiVerifier_UsesFirstSuccess(t *testing.T) {
	primary := &verifierStub{}
	secondary := &verifierStub{}

	require.NoError(t, authclient.NewMultiVerifier(primary, nil, secondary).Verify("token"))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, secondary.calls)
}

func TestMultiVerifier_FallsBack(t *testing.T) {
	primary := &verifierStub{err: errors.New("bad signature")}
	secondary := &verifierStub{}

	require.NoError(t, authclient.NewMultiVerifier(primary, secondary).Verify("token"))
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestMultiVerifier_ReturnsLastError(t *testing.T) {
	last := errors.New("last")
	err := authclient.NewMultiVerifier(&verifierStub{err: errors.New("first")}, &verifierStub{err: last}).Verify("token")
	assert.ErrorIs(t, err, last)

	assert.Error(t, authclient.NewMultiVerifier().Verify("token"))
}

func TestHMACVerifier(t *testing.T) {
	_, err := authclient.NewHMACVerifier(nil, "")
	assert.Error(t, err)

	key := []byte("secret")
	verifier, err := authclient.NewHMACVerifier(key, "HS256")
	require.NoError(t, err)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString(key)
	require.NoError(t, err)
	assert.NoError(t, verifier.Verify(signed))

	other, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"sub": "u1"}).SignedString(key)
	require.NoError(t, err)
	assert.Error(t, verifier.Verify(other), "algorithm is pinned")

	verifier.Close()
}

func TestVerifierFunc(t *testing.T) {
	var nilFunc authclient.VerifierFunc
	assert.Error(t, nilFunc.Verify("token"))

	called := false
	fn := authclient.VerifierFunc(func(string) error {
		called = true
		return nil
	})
	assert.NoError(t, fn.Verify("token"))
	assert.True(t, called)
}

func TestJWKSVerifier(t *testing.T) {
	privateKey, jwksJSON, kid := newTestJWKS(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwksJSON)
	}))
	t.Cleanup(server.Close)

	verifier, err := authclient.NewJWKSVerifier(server.URL, authclient.NopLogger())
	require.NoError(t, err)
	t.Cleanup(verifier.Close)

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "u1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = kid
	signed, err := token.SignedString(privateKey)
	require.NoError(t, err)

	assert.NoError(t, verifier.Verify(signed))

	codec := authclient.NewCodec(authclient.WithVerifier(verifier))
	claims, err := codec.Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	forged := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{"sub": "u1"})
	forged.Header["kid"] = kid
	forgedSigned, err := forged.SignedString(otherKey)
	require.NoError(t, err)

	assert.Error(t, verifier.Verify(forgedSigned))
}

func newTestJWKS(t *testing.T) (*rsa.PrivateKey, []byte, string) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	kid := "test-key"
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": kid,
		"n":   base64.RawURLEncoding.EncodeToString(privateKey.PublicKey.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(privateKey.PublicKey.E)).Bytes()),
	}

	data, err := json.Marshal(map[string]any{
		"keys": []map[string]any{jwk},
	})
	require.NoError(t, err)

	return privateKey, data, kid
}
