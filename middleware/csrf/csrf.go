// Package csrf protects the local shell forms with stateless signed tokens.
//
// A token is issued on every request and exposed through ctx.Locals so
// views can embed it. Unsafe methods must echo a valid token back through
// the form field or header. Tokens are HMAC-SHA256 signed and bound to the
// caller, so no server side storage is needed.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	TextCodeTokenMissing  = "CSRF_TOKEN_MISSING"
	TextCodeTokenMismatch = "CSRF_TOKEN_MISMATCH"
	TextCodeTokenExpired  = "CSRF_TOKEN_EXPIRED"
)

// ErrTokenMissing is returned when an unsafe request carries no token
var ErrTokenMissing = goerrors.New("csrf token missing", goerrors.CategoryBadInput).
	WithTextCode(TextCodeTokenMissing)

// ErrTokenMismatch is returned when the signature does not match the caller
var ErrTokenMismatch = goerrors.New("csrf token mismatch", goerrors.CategoryAuthz).
	WithTextCode(TextCodeTokenMismatch)

// ErrTokenExpired is returned for tokens older than Config.Expiration
var ErrTokenExpired = goerrors.New("csrf token expired", goerrors.CategoryAuthz).
	WithTextCode(TextCodeTokenExpired)

const (
	// DefaultContextKey is the locals key holding the issued token
	DefaultContextKey = "csrf_token"
	// DefaultFormFieldName is the form field checked on unsafe requests
	DefaultFormFieldName = "_token"
	// DefaultHeaderName is the header checked when the form field is empty
	DefaultHeaderName = "X-CSRF-Token"
	// MinKeyLength is the shortest accepted signing key
	MinKeyLength = 32

	nonceLength = 16
)

// Config defines the configuration for the CSRF middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// SecureKey signs the tokens. A random key is generated when empty,
	// which invalidates issued tokens on restart.
	SecureKey []byte

	// Binding ties a token to the caller. Defaults to the client IP.
	Binding func(router.Context) string

	ContextKey    string
	FormFieldName string
	HeaderName    string
	SafeMethods   []string
	Expiration    time.Duration

	// ErrorHandler receives the validation error
	ErrorHandler router.ErrorHandler

	// Now is the clock used to stamp and expire tokens
	Now func() time.Time
}

// New creates the CSRF middleware. It panics when SecureKey is set but
// shorter than MinKeyLength.
func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return next(ctx)
			}

			binding := cfg.Binding(ctx)

			if !slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
				if err := cfg.validate(extractToken(ctx, cfg), binding); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			token, err := cfg.issue(binding)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}
			ctx.Locals(cfg.ContextKey, token)

			return next(ctx)
		}
	}
}

// Token returns the token issued for the current request
func Token(ctx router.Context, key ...string) string {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	token, _ := ctx.Locals(k).(string)
	return token
}

// issue returns base64url("ts:nonce:sig") where sig = HMAC(key, "ts:nonce:binding")
func (cfg Config) issue(binding string) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate csrf nonce")
	}

	stamp := strconv.FormatInt(cfg.Now().UTC().Unix(), 10)
	prefix := stamp + ":" + hex.EncodeToString(nonce)
	sig := cfg.sign(prefix, binding)

	return base64.RawURLEncoding.EncodeToString([]byte(prefix + ":" + sig)), nil
}

func (cfg Config) validate(token, binding string) error {
	if token == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return ErrTokenMismatch
	}

	stamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	expected := cfg.sign(parts[0]+":"+parts[1], binding)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 && cfg.Now().UTC().After(time.Unix(stamp, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func (cfg Config) sign(prefix, binding string) string {
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(prefix + ":" + binding))
	return hex.EncodeToString(mac.Sum(nil))
}

func extractToken(ctx router.Context, cfg Config) string {
	if token := strings.TrimSpace(ctx.FormValue(cfg.FormFieldName)); token != "" {
		return token
	}
	return strings.TrimSpace(ctx.GetString(cfg.HeaderName, ""))
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.FormFieldName == "" {
		cfg.FormFieldName = DefaultFormFieldName
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}
	if cfg.Expiration == 0 {
		cfg.Expiration = 12 * time.Hour
	}
	if cfg.Binding == nil {
		cfg.Binding = func(ctx router.Context) string { return ctx.IP() }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	switch {
	case len(cfg.SecureKey) == 0:
		cfg.SecureKey = make([]byte, MinKeyLength)
		if _, err := io.ReadFull(rand.Reader, cfg.SecureKey); err != nil {
			panic(fmt.Errorf("csrf: unable to initialize secure key: %w", err))
		}
	case len(cfg.SecureKey) < MinKeyLength:
		panic(fmt.Errorf("csrf: secure key must be at least %d bytes, got %d", MinKeyLength, len(cfg.SecureKey)))
	}

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch {
	case errors.Is(err, ErrTokenMissing):
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case errors.Is(err, ErrTokenMismatch):
		return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
	case errors.Is(err, ErrTokenExpired):
		return ctx.Status(router.StatusForbidden).SendString("CSRF token expired")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}
