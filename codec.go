package authclient

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// Codec decodes bearer credentials and applies the expiry rule.
//
// The codec does not verify signatures: trust is delegated to the server
// and the client only consumes claims. A Verifier can be attached with
// WithVerifier when a deployment wants signature checks at this boundary.
type Codec struct {
	now      func() time.Time
	verifier Verifier
}

// CodecOption customizes a Codec
type CodecOption func(*Codec)

// WithCodecClock injects the clock used for expiry checks.
func WithCodecClock(now func() time.Time) CodecOption {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

// WithVerifier makes Decode verify the token signature before reading claims.
// Verification failures are reported as decode errors.
func WithVerifier(v Verifier) CodecOption {
	return func(c *Codec) {
		c.verifier = v
	}
}

// NewCodec returns a codec using the wall clock and no verifier
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

var defaultCodec = NewCodec()

// Decode decodes token with the default codec
func Decode(token string) (*Claims, error) {
	return defaultCodec.Decode(token)
}

// IsExpired checks token with the default codec
func IsExpired(token string) bool {
	return defaultCodec.IsExpired(token)
}

// Decode extracts the claims record from the payload segment of token.
func (c *Codec) Decode(token string) (*Claims, error) {
	segments := strings.Split(strings.TrimSpace(token), ".")
	if len(segments) != 3 {
		return nil, decodeError("token must have three segments", nil)
	}

	if c.verifier != nil {
		if err := c.verifier.Verify(token); err != nil {
			return nil, decodeError("signature verification failed", err)
		}
	}

	payload, err := decodeSegment(segments[1])
	if err != nil {
		return nil, decodeError("payload is not base64", err)
	}

	if !utf8.Valid(payload) {
		return nil, decodeError("payload is not utf-8 text", nil)
	}

	claims := &Claims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, decodeError("payload is not a claims record", err)
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, decodeError("missing sub claim", nil)
	}

	return claims, nil
}

// IsExpired reports whether token is expired. Undecodable tokens and tokens
// without exp are expired. There is no clock skew allowance.
func (c *Codec) IsExpired(token string) bool {
	claims, err := c.Decode(token)
	if err != nil {
		return true
	}
	return claims.Expired(c.now())
}

// decodeSegment accepts both URL-safe and standard alphabets, padded or not.
func decodeSegment(seg string) ([]byte, error) {
	s := strings.NewReplacer("-", "+", "_", "/").Replace(seg)
	for len(s)%4 != 0 {
		s += "="
	}
	return base64.StdEncoding.DecodeString(s)
}
