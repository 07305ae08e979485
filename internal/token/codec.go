// Package token issues and verifies the signed links that let an anonymous
// email recipient leave feedback on one idea.
//
// A token is an HS256-signed JWT carrying the idea id, the issue time and an
// optional expiry. The three segments are base64url, so the token can be
// embedded in a URL path without escaping. There is no revocation list:
// expiry and rotating the secret are the only ways to invalidate a token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is the only rejection callers outside this package should
// surface. Every specific rejection below matches it with errors.Is.
var ErrInvalidToken = errors.New("invalid or expired link")

var (
	ErrMalformed    error = &rejection{reason: "malformed"}
	ErrBadSignature error = &rejection{reason: "bad signature"}
	ErrExpired      error = &rejection{reason: "expired"}
)

type rejection struct {
	reason string
}

func (r *rejection) Error() string { return "token rejected: " + r.reason }

func (r *rejection) Is(target error) bool { return target == ErrInvalidToken }

// Claims is the signed payload of a feedback link.
type Claims struct {
	IdeaID string `json:"idea_id"`
	jwt.RegisteredClaims
}

// Codec signs and verifies feedback tokens with one secret.
type Codec struct {
	secret     []byte
	defaultTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

// Option customises a Codec.
type Option func(*Codec)

// WithDefaultTTL sets the lifetime applied by Issue. Zero means tokens never
// expire.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Codec) { c.defaultTTL = ttl }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a codec bound to secret. The secret is copied.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	c := &Codec{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithStrictDecoding(),
	)
	return c, nil
}

// Issue signs a token for ideaID using the codec's default TTL.
func (c *Codec) Issue(ideaID string) (string, error) {
	return c.IssueWithTTL(ideaID, c.defaultTTL)
}

// IssueWithTTL signs a token for ideaID that expires ttl after issuance.
// A ttl of zero or less produces a token without expiry.
func (c *Codec) IssueWithTTL(ideaID string, ttl time.Duration) (string, error) {
	if ideaID == "" {
		return "", errors.New("token: idea id is required")
	}

	issuedAt := c.now()
	claims := Claims{
		IdeaID: ideaID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(expiry(issuedAt, ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// expiry rounds issuedAt+ttl up to a whole second. NumericDate truncates,
// and a truncated exp would end the token before its ttl has elapsed.
func expiry(issuedAt time.Time, ttl time.Duration) time.Time {
	exp := issuedAt.Add(ttl)
	if whole := exp.Truncate(time.Second); !whole.Equal(exp) {
		return whole.Add(time.Second)
	}
	return exp
}

// Verify checks the signature and expiry of raw and returns the idea id it
// was issued for. All failures match ErrInvalidToken.
func (c *Codec) Verify(raw string) (string, error) {
	if raw == "" {
		return "", ErrMalformed
	}

	var claims Claims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return "", classify(err)
	}
	if claims.IdeaID == "" {
		return "", ErrMalformed
	}
	return claims.IdeaID, nil
}

// classify maps the jwt library's errors onto the three rejection kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrBadSignature
	default:
		return ErrMalformed
	}
}
