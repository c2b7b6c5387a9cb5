package sso

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/platinummonkey/qauth/pkg/identity"
)

// OIDCConfig configures an OpenID Connect strategy
type OIDCConfig struct {
	Name         string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Claims maps ID-token claims to the principal. Zero values default to
	// the standard sub/name/picture claims.
	Claims ProfileMapping
}

// OIDCStrategy implements Strategy over OpenID Connect with issuer
// discovery
type OIDCStrategy struct {
	name         string
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
	claims       ProfileMapping
}

// NewOIDCStrategy discovers the issuer and creates an OIDC strategy
func NewOIDCStrategy(ctx context.Context, cfg OIDCConfig) (*OIDCStrategy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("sso: strategy name is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("sso: client id and secret are required")
	}
	if cfg.IssuerURL == "" {
		return nil, fmt.Errorf("sso: issuer URL is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("sso: redirect URL is required")
	}
	if !containsScope(cfg.Scopes, oidc.ScopeOpenID) {
		return nil, fmt.Errorf("sso: %q scope is required", oidc.ScopeOpenID)
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("sso: failed to discover OIDC provider: %w", err)
	}

	claims := cfg.Claims
	if claims.ID == "" {
		claims.ID = "sub"
	}
	if claims.DisplayName == "" {
		claims.DisplayName = "name"
	}
	if claims.Photo == "" {
		claims.Photo = "picture"
	}

	return &OIDCStrategy{
		name:     cfg.Name,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
		},
		claims: claims,
	}, nil
}

// Name returns the strategy's routing name
func (s *OIDCStrategy) Name() string {
	return s.name
}

// BeginAuth redirects to the provider's authorization endpoint
func (s *OIDCStrategy) BeginAuth(w http.ResponseWriter, r *http.Request, state string) error {
	http.Redirect(w, r, s.oauth2Config.AuthCodeURL(state), http.StatusFound)
	return nil
}

// CompleteAuth exchanges the authorization code, verifies the ID token and
// maps its claims to a principal
func (s *OIDCStrategy) CompleteAuth(ctx context.Context, r *http.Request) (*identity.Principal, error) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		return nil, fmt.Errorf("sso: provider reported %q", errParam)
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		return nil, fmt.Errorf("sso: missing authorization code")
	}

	token, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("sso: failed to exchange code: %w", err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("sso: missing id_token in token response")
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("sso: failed to verify ID token: %w", err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("sso: failed to parse claims: %w", err)
	}

	principal := &identity.Principal{
		Provider:    s.name,
		ExternalID:  lookupString(claims, s.claims.ID),
		DisplayName: lookupString(claims, s.claims.DisplayName),
		PhotoURL:    lookupString(claims, s.claims.Photo),
	}
	if principal.ExternalID == "" {
		principal.ExternalID = idToken.Subject
	}
	if principal.ExternalID == "" {
		return nil, fmt.Errorf("sso: ID token is missing the %q claim", s.claims.ID)
	}
	return principal, nil
}

func containsScope(scopes []string, want string) bool {
	for _, s := range scopes {
		if s == want {
			return true
		}
	}
	return false
}
