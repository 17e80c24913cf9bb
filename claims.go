package authclient

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of a credential. It mirrors the claims
// the Auth Service signs into access tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// Identity is the read-only projection of Claims exposed to views.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Identity projects the claims. Name falls back to the subject.
func (c *Claims) Identity() *Identity {
	if c == nil {
		return nil
	}
	name := c.Name
	if name == "" {
		name = c.Subject
	}
	return &Identity{
		ID:    c.Subject,
		Email: c.Email,
		Name:  name,
	}
}

// ExpiresAt returns the expiry instant and whether the claim is present
func (c *Claims) ExpiresAt() (time.Time, bool) {
	if c == nil || c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return c.RegisteredClaims.ExpiresAt.Time, true
}

// Expired applies the expiry rule: a missing exp counts as expired,
// otherwise exp must not be before now. Comparison is in whole seconds.
func (c *Claims) Expired(now time.Time) bool {
	exp, ok := c.ExpiresAt()
	if !ok {
		return true
	}
	return exp.Unix() < now.Unix()
}
