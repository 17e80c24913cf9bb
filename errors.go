package authclient

import (
	"errors"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeCredentialMalformed = "CREDENTIAL_MALFORMED"
	TextCodeAuthRejected        = "AUTH_REJECTED"
	TextCodeProbeFailed         = "PROBE_FAILED"
	TextCodeAccessDenied        = "ACCESS_DENIED"
)

const (
	defaultLoginFailure    = "Login failed"
	defaultRegisterFailure = "Registration failed"
)

// ErrDecode is the base error for credentials that cannot be decoded.
// Callers treat it exactly like "no credential".
var ErrDecode = goerrors.New("unable to decode credential", goerrors.CategoryBadInput).
	WithTextCode(TextCodeCredentialMalformed)

// ErrProbeFailed is the base error for a failed liveness probe.
var ErrProbeFailed = goerrors.New("credential liveness probe failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeProbeFailed).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccessDenied is returned by Guard.Serve when the view was not rendered
// because there is no authenticated identity.
var ErrAccessDenied = goerrors.New("authentication required", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccessDenied).
	WithCode(goerrors.CodeUnauthorized)

// ErrNoToken is returned by the Auth Service client when a successful
// login response carries no access token.
var ErrNoToken = errors.New("login response has no access token")

func decodeError(reason string, cause error) error {
	clone := ErrDecode.Clone()
	clone.Source = cause
	return clone.WithMetadata(map[string]any{
		"reason": reason,
	})
}

// NewAuthError builds the error surfaced when the Auth Service rejects a
// login or registration. An empty message falls back to a generic one.
func NewAuthError(status int, message, fallback string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = fallback
	}
	if message == "" {
		message = defaultLoginFailure
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(TextCodeAuthRejected).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{
			"status": status,
		})
}

func probeFailure(status int, cause error) error {
	clone := ErrProbeFailed.Clone()
	clone.Source = cause
	return clone.WithMetadata(map[string]any{
		"status": status,
	})
}

// IsDecodeError reports whether err is a credential decode failure
func IsDecodeError(err error) bool {
	return hasTextCode(err, TextCodeCredentialMalformed)
}

// IsAuthError reports whether err is an Auth Service rejection
func IsAuthError(err error) bool {
	return hasTextCode(err, TextCodeAuthRejected)
}

// IsProbeFailure reports whether err is a failed liveness probe
func IsProbeFailure(err error) bool {
	return hasTextCode(err, TextCodeProbeFailed)
}

// IsAccessDenied reports whether err comes from a guarded view redirect
func IsAccessDenied(err error) bool {
	return hasTextCode(err, TextCodeAccessDenied)
}

// AuthErrorMessage returns the human readable message of an AuthError,
// suitable for display. Other errors return their Error() text.
func AuthErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == TextCodeAuthRejected {
		return richErr.Message
	}
	return err.Error()
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == code
	}
	return false
}
