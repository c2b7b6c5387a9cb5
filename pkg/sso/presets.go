package sso

import "context"

// NewGoogleStrategy creates the Google login strategy as an OIDC strategy
// against Google's issuer. The profile scope supplies the display name and
// photo the ticket attributes carry downstream.
func NewGoogleStrategy(ctx context.Context, clientID, clientSecret, callbackURL string) (*OIDCStrategy, error) {
	return NewOIDCStrategy(ctx, OIDCConfig{
		Name:         "google",
		IssuerURL:    "https://accounts.google.com",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  callbackURL,
		Scopes:       []string{"openid", "profile"},
	})
}

// NewFacebookStrategy creates the Facebook login strategy as a plain OAuth2
// strategy against the Graph API.
func NewFacebookStrategy(clientID, clientSecret, callbackURL string) (*OAuth2Strategy, error) {
	return NewOAuth2Strategy(OAuth2Config{
		Name:         "facebook",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:     "https://graph.facebook.com/v19.0/oauth/access_token",
		UserInfoURL:  "https://graph.facebook.com/me?fields=id,name,picture.width(256)",
		RedirectURL:  callbackURL,
		Scopes:       []string{"public_profile"},
		Profile: ProfileMapping{
			ID:          "id",
			DisplayName: "name",
			Photo:       "picture.data.url",
		},
	})
}
