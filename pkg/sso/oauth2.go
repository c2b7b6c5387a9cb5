package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/platinummonkey/qauth/pkg/identity"
)

// ProfileMapping names the userinfo fields (or ID-token claims) that feed
// the principal. Dotted paths descend into nested objects, e.g.
// "picture.data.url".
type ProfileMapping struct {
	ID          string
	DisplayName string
	Photo       string
}

// OAuth2Config configures a generic OAuth2 strategy
type OAuth2Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
	Profile      ProfileMapping
}

// OAuth2Strategy implements Strategy over plain OAuth2 with a userinfo
// endpoint
type OAuth2Strategy struct {
	name         string
	oauth2Config *oauth2.Config
	userInfoURL  string
	profile      ProfileMapping
}

// NewOAuth2Strategy creates a generic OAuth2 strategy
func NewOAuth2Strategy(cfg OAuth2Config) (*OAuth2Strategy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("sso: strategy name is required")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("sso: client id and secret are required")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" {
		return nil, fmt.Errorf("sso: auth and token URLs are required")
	}
	if cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("sso: userinfo URL is required")
	}
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("sso: redirect URL is required")
	}
	if cfg.Profile.ID == "" {
		return nil, fmt.Errorf("sso: profile id mapping is required")
	}

	return &OAuth2Strategy{
		name: cfg.Name,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		userInfoURL: cfg.UserInfoURL,
		profile:     cfg.Profile,
	}, nil
}

// Name returns the strategy's routing name
func (s *OAuth2Strategy) Name() string {
	return s.name
}

// BeginAuth redirects to the provider's authorization endpoint
func (s *OAuth2Strategy) BeginAuth(w http.ResponseWriter, r *http.Request, state string) error {
	http.Redirect(w, r, s.oauth2Config.AuthCodeURL(state), http.StatusFound)
	return nil
}

// CompleteAuth exchanges the authorization code and maps the userinfo
// payload to a principal
func (s *OAuth2Strategy) CompleteAuth(ctx context.Context, r *http.Request) (*identity.Principal, error) {
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

	client := s.oauth2Config.Client(ctx, token)
	resp, err := client.Get(s.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("sso: failed to fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sso: userinfo request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("sso: failed to decode userinfo: %w", err)
	}

	principal := &identity.Principal{
		Provider:    s.name,
		ExternalID:  lookupString(userInfo, s.profile.ID),
		DisplayName: lookupString(userInfo, s.profile.DisplayName),
		PhotoURL:    lookupString(userInfo, s.profile.Photo),
	}
	if principal.ExternalID == "" {
		return nil, fmt.Errorf("sso: userinfo is missing the %q field", s.profile.ID)
	}
	return principal, nil
}

// lookupString resolves a possibly dotted key path to a string value
func lookupString(data map[string]interface{}, path string) string {
	if path == "" {
		return ""
	}

	keys := strings.Split(path, ".")
	var current interface{} = data
	for _, key := range keys {
		m, ok := current.(map[string]interface{})
		if !ok {
			return ""
		}
		current, ok = m[key]
		if !ok {
			return ""
		}
	}

	switch v := current.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		// Numeric ids arrive as floats from encoding/json.
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}
