package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumo47/exam-prep-back/internal/apperror"
)

const testClientID = "test-client.apps.googleusercontent.com"

// fakeGoogle is a stand-in for Google's JWKS endpoint backed by a locally
// generated RSA key. It also mints ID tokens signed by that key.
type fakeGoogle struct {
	t       *testing.T
	key     *rsa.PrivateKey
	kid     atomic.Value // string
	fetches atomic.Int32
	server  *httptest.Server
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	g := &fakeGoogle{t: t, key: key}
	g.kid.Store("key-1")
	g.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jwks{Keys: []jwk{{
			Kty: "RSA",
			Kid: g.kid.Load().(string),
			Use: "sig",
			Alg: "RS256",
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}}})
	}))
	t.Cleanup(g.server.Close)
	return g
}

func (g *fakeGoogle) verifier(t *testing.T) *GoogleVerifier {
	t.Helper()
	v, err := NewGoogleVerifier(testClientID, WithCertsURL(g.server.URL))
	require.NoError(t, err)
	return v
}

// validClaims returns claims that pass every check; tests tweak one field.
func validClaims() googleClaims {
	now := time.Now()
	return googleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   "110169484474386276334",
			Audience:  jwt.ClaimStrings{testClientID},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email:         "ada@example.com",
		EmailVerified: true,
		Name:          "Ada Lovelace",
		Picture:       "https://lh3.googleusercontent.com/a/ada",
	}
}

func (g *fakeGoogle) sign(c googleClaims) string {
	g.t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = g.kid.Load().(string)
	s, err := tok.SignedString(g.key)
	require.NoError(g.t, err)
	return s
}

func TestNewGoogleVerifier_RequiresClientID(t *testing.T) {
	_, err := NewGoogleVerifier("")
	assert.Error(t, err)
}

func TestGoogleVerifier_ValidToken(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)

	id, err := v.Verify(context.Background(), g.sign(validClaims()))
	require.NoError(t, err)

	assert.Equal(t, &Identity{
		Subject: "110169484474386276334",
		Email:   "ada@example.com",
		Name:    "Ada Lovelace",
		Picture: "https://lh3.googleusercontent.com/a/ada",
	}, id)
}

func TestGoogleVerifier_BareIssuerAccepted(t *testing.T) {
	g := newFakeGoogle(t)
	c := validClaims()
	c.Issuer = "accounts.google.com"

	_, err := g.verifier(t).Verify(context.Background(), g.sign(c))
	assert.NoError(t, err)
}

func TestGoogleVerifier_NameFallsBackToEmail(t *testing.T) {
	g := newFakeGoogle(t)
	c := validClaims()
	c.Name = ""

	id, err := g.verifier(t).Verify(context.Background(), g.sign(c))
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", id.Name)
}

func TestGoogleVerifier_RejectsBadTokens(t *testing.T) {
	g := newFakeGoogle(t)

	tests := []struct {
		name   string
		mutate func(*googleClaims)
	}{
		{"wrong audience", func(c *googleClaims) { c.Audience = jwt.ClaimStrings{"someone-else"} }},
		{"wrong issuer", func(c *googleClaims) { c.Issuer = "https://evil.example.com" }},
		{"expired", func(c *googleClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour)) }},
		{"no expiry", func(c *googleClaims) { c.ExpiresAt = nil }},
		{"no subject", func(c *googleClaims) { c.Subject = "" }},
		{"no email", func(c *googleClaims) { c.Email = "" }},
		{"unverified email", func(c *googleClaims) { c.EmailVerified = false }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validClaims()
			tt.mutate(&c)

			_, err := g.verifier(t).Verify(context.Background(), g.sign(c))
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrUnauthorized)
		})
	}
}

func TestGoogleVerifier_RejectsForeignSignature(t *testing.T) {
	g := newFakeGoogle(t)
	other := newFakeGoogle(t) // same kid, different key

	_, err := g.verifier(t).Verify(context.Background(), other.sign(validClaims()))
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestGoogleVerifier_RejectsMalformed(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)

	for _, cred := range []string{"", "garbage", "a.b.c"} {
		_, err := v.Verify(context.Background(), cred)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized, "credential %q", cred)
	}
}

func TestGoogleVerifier_CachesKeys(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)
	token := g.sign(validClaims())

	for range 3 {
		_, err := v.Verify(context.Background(), token)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), g.fetches.Load(), "JWKS should be fetched once and cached")
}

// stepClock is a settable clock for the key cache.
type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time          { return c.t }
func (c *stepClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestGoogleVerifier_RefetchesOnUnknownKid(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)
	clock := &stepClock{t: time.Now()}
	v.now = clock.now

	_, err := v.Verify(context.Background(), g.sign(validClaims()))
	require.NoError(t, err)

	// Simulate a key rotation on Google's side.
	g.kid.Store("key-2")
	clock.advance(2 * time.Minute)
	_, err = v.Verify(context.Background(), g.sign(validClaims()))
	require.NoError(t, err)
	assert.Equal(t, int32(2), g.fetches.Load())
}

func TestGoogleVerifier_UnknownKidRefetchIsThrottled(t *testing.T) {
	g := newFakeGoogle(t)
	v := g.verifier(t)
	clock := &stepClock{t: time.Now()}
	v.now = clock.now

	_, err := v.Verify(context.Background(), g.sign(validClaims()))
	require.NoError(t, err)

	g.kid.Store("no-such-key")
	bogus := g.sign(validClaims())
	g.kid.Store("key-1")

	for range 5 {
		_, err = v.Verify(context.Background(), bogus)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	}
	assert.Equal(t, int32(1), g.fetches.Load(), "unknown kid within a minute of a fetch must not refetch")

	clock.advance(time.Minute + time.Second)
	_, err = v.Verify(context.Background(), bogus)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Equal(t, int32(2), g.fetches.Load())
}

func TestGoogleVerifier_UnreachableProviderIsUpstreamFailure(t *testing.T) {
	g := newFakeGoogle(t)
	token := g.sign(validClaims())

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer dead.Close()

	v, err := NewGoogleVerifier(testClientID, WithCertsURL(dead.URL))
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.NotErrorIs(t, err, apperror.ErrUnauthorized)
}
