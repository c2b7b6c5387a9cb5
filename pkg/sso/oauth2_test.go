package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newProviderServer fakes an OAuth2 provider: a token endpoint and a
// userinfo endpoint serving the given payload.
func newProviderServer(t *testing.T, userInfo map[string]interface{}) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "at-123",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newOAuth2Strategy(t *testing.T, srv *httptest.Server, profile ProfileMapping) *OAuth2Strategy {
	t.Helper()
	s, err := NewOAuth2Strategy(OAuth2Config{
		Name:         "acme",
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      srv.URL + "/authorize",
		TokenURL:     srv.URL + "/token",
		UserInfoURL:  srv.URL + "/userinfo",
		RedirectURL:  "https://broker.example.com/acme_auth_callback",
		Scopes:       []string{"profile"},
		Profile:      profile,
	})
	require.NoError(t, err)
	return s
}

func TestOAuth2Strategy_BeginAuth(t *testing.T) {
	srv := newProviderServer(t, nil)
	s := newOAuth2Strategy(t, srv, ProfileMapping{ID: "id", DisplayName: "name"})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/login/acme?redirect=https://app", nil)
	require.NoError(t, s.BeginAuth(w, r, "state-nonce"))

	assert.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", loc.Path)
	assert.Equal(t, "state-nonce", loc.Query().Get("state"))
	assert.Equal(t, "client", loc.Query().Get("client_id"))
	assert.Equal(t, "https://broker.example.com/acme_auth_callback", loc.Query().Get("redirect_uri"))
}

func TestOAuth2Strategy_CompleteAuth(t *testing.T) {
	srv := newProviderServer(t, map[string]interface{}{
		"id":      "123",
		"name":    "Ana Li",
		"picture": "https://cdn.example.com/p.jpg",
	})
	s := newOAuth2Strategy(t, srv, ProfileMapping{ID: "id", DisplayName: "name", Photo: "picture"})

	r := httptest.NewRequest("GET", "/acme_auth_callback?code=abc&state=state-nonce", nil)
	p, err := s.CompleteAuth(context.Background(), r)
	require.NoError(t, err)

	assert.Equal(t, "acme", p.Provider)
	assert.Equal(t, "123", p.ExternalID)
	assert.Equal(t, "Ana Li", p.DisplayName)
	assert.Equal(t, "https://cdn.example.com/p.jpg", p.PhotoURL)
}

func TestOAuth2Strategy_CompleteAuth_NestedPhotoPath(t *testing.T) {
	// The Graph API wraps the photo URL: picture.data.url.
	srv := newProviderServer(t, map[string]interface{}{
		"id":   "42",
		"name": "Bob",
		"picture": map[string]interface{}{
			"data": map[string]interface{}{"url": "https://graph.example.com/42/picture"},
		},
	})
	s := newOAuth2Strategy(t, srv, ProfileMapping{ID: "id", DisplayName: "name", Photo: "picture.data.url"})

	r := httptest.NewRequest("GET", "/acme_auth_callback?code=abc", nil)
	p, err := s.CompleteAuth(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, "https://graph.example.com/42/picture", p.PhotoURL)
}

func TestOAuth2Strategy_CompleteAuth_ProviderError(t *testing.T) {
	srv := newProviderServer(t, nil)
	s := newOAuth2Strategy(t, srv, ProfileMapping{ID: "id"})

	r := httptest.NewRequest("GET", "/acme_auth_callback?error=access_denied", nil)
	_, err := s.CompleteAuth(context.Background(), r)
	assert.Error(t, err)
}

func TestOAuth2Strategy_CompleteAuth_MissingCode(t *testing.T) {
	srv := newProviderServer(t, nil)
	s := newOAuth2Strategy(t, srv, ProfileMapping{ID: "id"})

	r := httptest.NewRequest("GET", "/acme_auth_callback", nil)
	_, err := s.CompleteAuth(context.Background(), r)
	assert.Error(t, err)
}

func TestOAuth2Strategy_CompleteAuth_MissingID(t *testing.T) {
	srv := newProviderServer(t, map[string]interface{}{"name": "No ID"})
	s := newOAuth2Strategy(t, srv, ProfileMapping{ID: "id", DisplayName: "name"})

	r := httptest.NewRequest("GET", "/acme_auth_callback?code=abc", nil)
	_, err := s.CompleteAuth(context.Background(), r)
	assert.Error(t, err)
}

func TestNewOAuth2Strategy_Validation(t *testing.T) {
	valid := OAuth2Config{
		Name:         "acme",
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      "https://idp/authorize",
		TokenURL:     "https://idp/token",
		UserInfoURL:  "https://idp/userinfo",
		RedirectURL:  "https://broker/cb",
		Profile:      ProfileMapping{ID: "id"},
	}

	_, err := NewOAuth2Strategy(valid)
	assert.NoError(t, err)

	for name, mutate := range map[string]func(*OAuth2Config){
		"missing name":        func(c *OAuth2Config) { c.Name = "" },
		"missing credentials": func(c *OAuth2Config) { c.ClientSecret = "" },
		"missing endpoints":   func(c *OAuth2Config) { c.TokenURL = "" },
		"missing userinfo":    func(c *OAuth2Config) { c.UserInfoURL = "" },
		"missing redirect":    func(c *OAuth2Config) { c.RedirectURL = "" },
		"missing id mapping":  func(c *OAuth2Config) { c.Profile.ID = "" },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			_, err := NewOAuth2Strategy(cfg)
			assert.Error(t, err)
		})
	}
}

func TestLookupString(t *testing.T) {
	data := map[string]interface{}{
		"id":   float64(12345),
		"name": "Ana",
		"picture": map[string]interface{}{
			"data": map[string]interface{}{"url": "https://x/p.jpg"},
		},
	}

	assert.Equal(t, "Ana", lookupString(data, "name"))
	assert.Equal(t, "12345", lookupString(data, "id"))
	assert.Equal(t, "https://x/p.jpg", lookupString(data, "picture.data.url"))
	assert.Empty(t, lookupString(data, "absent"))
	assert.Empty(t, lookupString(data, "name.nested"))
	assert.Empty(t, lookupString(data, ""))
}

func TestNewOIDCStrategy_Validation(t *testing.T) {
	// Validation failures are reported before any discovery round trip.
	ctx := context.Background()

	_, err := NewOIDCStrategy(ctx, OIDCConfig{
		IssuerURL: "https://accounts.google.com", ClientID: "c", ClientSecret: "s",
		RedirectURL: "https://broker/cb", Scopes: []string{"openid"},
	})
	assert.Error(t, err, "missing name")

	_, err = NewOIDCStrategy(ctx, OIDCConfig{
		Name: "google", IssuerURL: "https://accounts.google.com", ClientID: "c", ClientSecret: "s",
		RedirectURL: "https://broker/cb", Scopes: []string{"profile"},
	})
	assert.Error(t, err, "missing openid scope")

	_, err = NewOIDCStrategy(ctx, OIDCConfig{
		Name: "google", ClientID: "c", ClientSecret: "s",
		RedirectURL: "https://broker/cb", Scopes: []string{"openid"},
	})
	assert.Error(t, err, "missing issuer")
}
