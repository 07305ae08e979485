package token

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCodec(t *testing.T, secret string, opts ...Option) *Codec {
	t.Helper()
	c, err := NewCodec([]byte(secret), opts...)
	require.NoError(t, err)
	return c
}

func TestNewCodec_RequiresSecret(t *testing.T) {
	_, err := NewCodec(nil)
	require.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	ids := []string{
		"photo_2025-01-14",
		"cooking_8c1f2b6e-0b9a-4c57-9a0e-3d6f8f1f6a11",
		"diy_Holunderblütensirup",
		"x",
		strings.Repeat("long", 64),
	}
	secrets := []string{"s3cret", "another-secret-with-more-bytes", "\x00\x01\x02"}

	for _, secret := range secrets {
		c := newTestCodec(t, secret)
		for _, id := range ids {
			tok, err := c.Issue(id)
			require.NoError(t, err)

			got, err := c.Verify(tok)
			require.NoError(t, err, "id %q", id)
			assert.Equal(t, id, got)
		}
	}
}

func TestCodec_TokenIsURLSafe(t *testing.T) {
	c := newTestCodec(t, "s3cret")
	tok, err := c.Issue("diy_Holunderblütensirup")
	require.NoError(t, err)

	assert.Equal(t, tok, url.PathEscape(tok))
	assert.Equal(t, 2, strings.Count(tok, "."))
}

func TestCodec_IssueRequiresIdeaID(t *testing.T) {
	c := newTestCodec(t, "s3cret")
	_, err := c.Issue("")
	require.Error(t, err)
}

func TestCodec_BitFlipIsRejected(t *testing.T) {
	c := newTestCodec(t, "s3cret", WithDefaultTTL(time.Hour))
	tok, err := c.Issue("photo_42")
	require.NoError(t, err)

	for i := 0; i < len(tok); i++ {
		for bit := 0; bit < 8; bit++ {
			b := []byte(tok)
			b[i] ^= 1 << bit

			got, err := c.Verify(string(b))
			require.Error(t, err, "byte %d bit %d verified as %q", i, bit, got)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, got)
		}
	}
}

func TestCodec_WrongSecretIsBadSignature(t *testing.T) {
	issuer := newTestCodec(t, "old-secret")
	verifier := newTestCodec(t, "new-secret")

	tok, err := issuer.Issue("cooking_7")
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrBadSignature)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, "s3cret", WithClock(clock.Now))

	tok, err := c.IssueWithTTL("photo_1", time.Second)
	require.NoError(t, err)

	got, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "photo_1", got)

	clock.Advance(2 * time.Second)
	_, err = c.Verify(tok)
	assert.ErrorIs(t, err, ErrExpired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_ExpiryNeverEarly(t *testing.T) {
	tests := []struct {
		name    string
		issued  time.Time
		ttl     time.Duration
		stillOK time.Duration
	}{
		{"sub-second ttl", time.Unix(1700000000, 200_000_000), 500 * time.Millisecond, 499 * time.Millisecond},
		{"one second from late fraction", time.Unix(1700000000, 999_000_000), time.Second, 999 * time.Millisecond},
		{"whole seconds", time.Unix(1700000000, 0), 3 * time.Second, 2999 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: tt.issued}
			c := newTestCodec(t, "s3cret", WithClock(clock.Now))

			tok, err := c.IssueWithTTL("cooking_7", tt.ttl)
			require.NoError(t, err)

			_, err = c.Verify(tok)
			require.NoError(t, err)

			clock.Advance(tt.stillOK)
			_, err = c.Verify(tok)
			require.NoError(t, err)

			clock.now = tt.issued.Add(tt.ttl + time.Second)
			_, err = c.Verify(tok)
			assert.ErrorIs(t, err, ErrExpired)
		})
	}
}

func TestCodec_NoTTLNeverExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	c := newTestCodec(t, "s3cret", WithClock(clock.Now))

	tok, err := c.Issue("diy_3")
	require.NoError(t, err)

	clock.Advance(5 * 365 * 24 * time.Hour)
	got, err := c.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "diy_3", got)
}

func TestCodec_MalformedInputs(t *testing.T) {
	c := newTestCodec(t, "s3cret")
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"no separators", "abcdef"},
		{"one separator", "abc.def"},
		{"garbage segments", "!!!.???.***"},
		{"legacy hex signature", "photo_1/0123456789abcdef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Verify(tt.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestCodec_RejectionsShareOneMessage(t *testing.T) {
	for _, err := range []error{ErrMalformed, ErrBadSignature, ErrExpired} {
		assert.ErrorIs(t, err, ErrInvalidToken)
	}
	assert.Equal(t, "invalid or expired link", ErrInvalidToken.Error())
}
