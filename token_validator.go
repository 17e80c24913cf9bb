package authclient

import (
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks a credential signature. It says nothing about expiry,
// which stays a Codec concern.
type Verifier interface {
	Verify(token string) error
}

// VerifierFunc adapts a function into a Verifier.
type VerifierFunc func(token string) error

// Verify satisfies the Verifier interface.
func (f VerifierFunc) Verify(token string) error {
	if f == nil {
		return errors.New("nil verifier")
	}
	return f(token)
}

// KeyfuncVerifier verifies signatures with a jwt.Keyfunc.
type KeyfuncVerifier struct {
	keyfunc jwt.Keyfunc
	parser  *jwt.Parser
	jwks    *keyfunc.JWKS
}

// NewHMACVerifier verifies tokens signed with a shared secret. alg defaults
// to HS256.
func NewHMACVerifier(key []byte, alg string) (*KeyfuncVerifier, error) {
	if len(key) == 0 {
		return nil, errors.New("verification key is required")
	}
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	return &KeyfuncVerifier{
		keyfunc: func(t *jwt.Token) (any, error) {
			return key, nil
		},
		parser: newVerifyParser(alg),
	}, nil
}

// NewJWKSVerifier verifies tokens against a remote JWK Set that is refreshed
// in the background. Call Close to stop the refresh goroutine.
func NewJWKSVerifier(jwksURL string, logger Logger) (*KeyfuncVerifier, error) {
	logger = normalizeLogger(logger)
	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshErrorHandler: func(err error) {
			logger.Error("failed to refresh JWK set", "url", jwksURL, "error", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get JWK set: %w", err)
	}
	return &KeyfuncVerifier{
		keyfunc: jwks.Keyfunc,
		parser:  newVerifyParser(),
		jwks:    jwks,
	}, nil
}

func newVerifyParser(methods ...string) *jwt.Parser {
	opts := []jwt.ParserOption{jwt.WithoutClaimsValidation()}
	if len(methods) > 0 {
		opts = append(opts, jwt.WithValidMethods(methods))
	}
	return jwt.NewParser(opts...)
}

// Verify satisfies the Verifier interface.
func (v *KeyfuncVerifier) Verify(token string) error {
	parsed, err := v.parser.Parse(token, v.keyfunc)
	if err != nil {
		return err
	}
	if !parsed.Valid {
		return jwt.ErrTokenSignatureInvalid
	}
	return nil
}

// Close stops background JWK set refreshes, if any.
func (v *KeyfuncVerifier) Close() {
	if v == nil || v.jwks == nil {
		return
	}
	v.jwks.EndBackground()
}

// MultiVerifier accepts a token if any verifier accepts it.
type MultiVerifier struct {
	verifiers []Verifier
}

// NewMultiVerifier filters nil verifiers and returns a composite.
func NewMultiVerifier(verifiers ...Verifier) *MultiVerifier {
	filtered := make([]Verifier, 0, len(verifiers))
	for _, v := range verifiers {
		if v != nil {
			filtered = append(filtered, v)
		}
	}
	return &MultiVerifier{verifiers: filtered}
}

// Verify satisfies the Verifier interface. It returns the last failure when
// no verifier accepts the token.
func (m *MultiVerifier) Verify(token string) error {
	lastErr := errors.New("no verifier configured")
	for _, v := range m.verifiers {
		err := v.Verify(token)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return lastErr
}
