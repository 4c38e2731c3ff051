package auth

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"github.com/sumo47/exam-prep-back/internal/apperror"
)

// GoogleProvider wraps golang.org/x/oauth2 for Google's authorization code flow.
//
// Most clients send an ID token straight from Google Identity Services and
// never need this. The popup "code" flow instead hands the browser a
// short-lived code which we exchange server-to-server, using the client
// secret, for tokens. Google's token response includes an id_token, which
// is then verified exactly like a directly supplied credential.
type GoogleProvider struct {
	config   *oauth2.Config
	verifier IdentityVerifier
}

// NewGoogleProvider creates a GoogleProvider.
//
// redirectURL must match what the client used to obtain the code. For the
// Google Identity Services popup flow this is the literal "postmessage".
func NewGoogleProvider(clientID, clientSecret, redirectURL string, verifier IdentityVerifier) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     endpoints.Google,
		},
		verifier: verifier,
	}
}

// Exchange trades an authorization code for the identity in the returned
// ID token.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	if code == "" {
		return nil, apperror.Unauthorized("authorization code is required", nil)
	}

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		// A RetrieveError means Google answered and rejected the code
		// (expired, reused, wrong redirect URI). Anything else is transport.
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, apperror.Unauthorized("invalid authorization code", err)
		}
		return nil, apperror.Upstream("identity provider unavailable", err)
	}

	rawIDToken, _ := tok.Extra("id_token").(string)
	if rawIDToken == "" {
		return nil, apperror.Upstream("identity provider returned no id_token", nil)
	}

	return p.verifier.Verify(ctx, rawIDToken)
}
