package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sumo47/exam-prep-back/internal/apperror"
)

// GoogleCertsURL serves Google's current ID-token signing keys as a JWKS.
const GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

// Google signs ID tokens with either issuer spelling.
var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// Identity is the trusted descriptor extracted from a verified external
// credential.
type Identity struct {
	Subject string // stable Google account ID ("sub")
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier verifies an opaque credential from the identity provider.
// Implementations return errors wrapping apperror.ErrUnauthorized for bad
// credentials and apperror.ErrUpstream when the provider can't be reached.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// googleClaims is the part of a Google ID token payload we read.
type googleClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// errKeySource marks failures fetching the JWKS, as opposed to problems with
// the token itself.
var errKeySource = errors.New("auth: fetching signing keys")

// GoogleVerifier verifies Google ID tokens (RS256 JWTs) locally against the
// published JWKS. Keys are cached and refetched when stale or when a token
// names an unknown key ID, which is how Google's key rotation shows up.
// Unknown key IDs trigger at most one refetch per minRefetch.
type GoogleVerifier struct {
	clientID   string
	certsURL   string
	httpClient *http.Client
	maxAge     time.Duration
	minRefetch time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// GoogleVerifierOption customizes a GoogleVerifier.
type GoogleVerifierOption func(*GoogleVerifier)

// WithCertsURL points the verifier at a different JWKS endpoint (tests).
func WithCertsURL(url string) GoogleVerifierOption {
	return func(v *GoogleVerifier) { v.certsURL = url }
}

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(c *http.Client) GoogleVerifierOption {
	return func(v *GoogleVerifier) { v.httpClient = c }
}

// WithKeyMaxAge sets how long fetched keys are trusted before a refetch.
func WithKeyMaxAge(d time.Duration) GoogleVerifierOption {
	return func(v *GoogleVerifier) { v.maxAge = d }
}

// WithMinRefetchInterval sets how soon after a successful fetch an unknown
// key ID may trigger another one.
func WithMinRefetchInterval(d time.Duration) GoogleVerifierOption {
	return func(v *GoogleVerifier) { v.minRefetch = d }
}

// NewGoogleVerifier creates a verifier that accepts tokens whose audience is
// clientID.
func NewGoogleVerifier(clientID string, opts ...GoogleVerifierOption) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("auth: Google client ID is required")
	}
	v := &GoogleVerifier{
		clientID:   clientID,
		certsURL:   GoogleCertsURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxAge:     time.Hour,
		minRefetch: time.Minute,
		now:        time.Now,
		keys:       make(map[string]*rsa.PublicKey),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Verify checks the credential's signature, audience, issuer and expiry and
// returns the identity it asserts.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return nil, apperror.Unauthorized("credential is required", nil)
	}

	token, err := jwt.ParseWithClaims(
		credential,
		&googleClaims{},
		func(token *jwt.Token) (any, error) {
			kid, _ := token.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("auth: token header has no kid")
			}
			return v.publicKey(ctx, kid)
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		if errors.Is(err, errKeySource) {
			return nil, apperror.Upstream("identity provider unavailable", err)
		}
		return nil, apperror.Unauthorized("invalid Google credential", err)
	}

	c, ok := token.Claims.(*googleClaims)
	if !ok || !token.Valid {
		return nil, apperror.Unauthorized("invalid Google credential", nil)
	}
	if !googleIssuers[c.Issuer] {
		return nil, apperror.Unauthorized("invalid Google credential",
			fmt.Errorf("auth: unexpected issuer %q", c.Issuer))
	}
	if c.Subject == "" || c.Email == "" {
		return nil, apperror.Unauthorized("Google credential is missing subject or email", nil)
	}
	// Emails are unique per account, so an unverified address could claim
	// someone else's email before they sign up.
	if !c.EmailVerified {
		return nil, apperror.Unauthorized("Google account email is not verified", nil)
	}

	name := c.Name
	if name == "" {
		name = c.Email
	}

	return &Identity{
		Subject: c.Subject,
		Email:   c.Email,
		Name:    name,
		Picture: c.Picture,
	}, nil
}

// publicKey returns the cached key for kid, refreshing the JWKS when the
// cache is stale or doesn't know kid. A just-fetched set that lacks kid is
// trusted as is.
func (v *GoogleVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	v.mu.RLock()
	key, ok := v.keys[kid]
	age := v.now().Sub(v.fetchedAt)
	v.mu.RUnlock()
	if age < v.maxAge {
		if ok {
			return key, nil
		}
		if age < v.minRefetch {
			return nil, fmt.Errorf("auth: no signing key with kid %q", kid)
		}
	}

	if err := v.refresh(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("auth: no signing key with kid %q", kid)
}

func (v *GoogleVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errKeySource, err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errKeySource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: JWKS endpoint returned status %d", errKeySource, resp.StatusCode)
	}

	var set jwks
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return fmt.Errorf("%w: decoding JWKS: %w", errKeySource, err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kty != "RSA" || k.Kid == "" {
			continue
		}
		pub, err := parseRSAPublicKey(k.N, k.E)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}

	v.mu.Lock()
	v.keys = keys
	v.fetchedAt = v.now()
	v.mu.Unlock()
	return nil
}

// parseRSAPublicKey decodes the base64url modulus and exponent of a JWK.
func parseRSAPublicKey(nStr, eStr string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nStr)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eStr)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	if e == 0 {
		return nil, errors.New("zero exponent")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}
