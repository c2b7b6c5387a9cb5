package sso

import (
	"context"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/platinummonkey/qauth/pkg/identity"
)

// SAMLConfig configures a SAML 2.0 strategy
type SAMLConfig struct {
	Name string

	// IdP settings
	EntityID    string
	SSOURL      string
	Certificate string // PEM encoded IdP signing certificate

	// SP settings
	ServiceURL  string // base URL of this broker
	CallbackURL string // assertion consumer service URL

	// Attributes maps assertion attributes to the principal. The NameID is
	// the fallback external id when Attributes.ID is unset or absent.
	Attributes ProfileMapping
}

// SAMLStrategy implements Strategy over SAML 2.0. The state nonce travels
// as RelayState.
type SAMLStrategy struct {
	name       string
	sp         *saml2.SAMLServiceProvider
	attributes ProfileMapping
}

// NewSAMLStrategy creates a SAML strategy
func NewSAMLStrategy(cfg SAMLConfig) (*SAMLStrategy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("sso: strategy name is required")
	}
	if cfg.EntityID == "" || cfg.SSOURL == "" {
		return nil, fmt.Errorf("sso: IdP entity id and SSO URL are required")
	}
	if cfg.ServiceURL == "" || cfg.CallbackURL == "" {
		return nil, fmt.Errorf("sso: service and callback URLs are required")
	}

	certBlock, _ := pem.Decode([]byte(cfg.Certificate))
	if certBlock == nil {
		return nil, fmt.Errorf("sso: failed to decode IdP certificate PEM")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("sso: failed to parse IdP certificate: %w", err)
	}

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      cfg.SSOURL,
		IdentityProviderIssuer:      cfg.EntityID,
		ServiceProviderIssuer:       cfg.ServiceURL,
		AssertionConsumerServiceURL: cfg.CallbackURL,
		AudienceURI:                 cfg.ServiceURL,
		IDPCertificateStore: &dsig.MemoryX509CertificateStore{
			Roots: []*x509.Certificate{cert},
		},
	}

	return &SAMLStrategy{
		name:       cfg.Name,
		sp:         sp,
		attributes: cfg.Attributes,
	}, nil
}

// Name returns the strategy's routing name
func (s *SAMLStrategy) Name() string {
	return s.name
}

// BeginAuth redirects to the IdP with the state nonce as RelayState
func (s *SAMLStrategy) BeginAuth(w http.ResponseWriter, r *http.Request, state string) error {
	authURL, err := s.sp.BuildAuthURL(state)
	if err != nil {
		return fmt.Errorf("sso: failed to build auth URL: %w", err)
	}
	http.Redirect(w, r, authURL, http.StatusFound)
	return nil
}

// CompleteAuth validates the posted assertion and maps it to a principal
func (s *SAMLStrategy) CompleteAuth(_ context.Context, r *http.Request) (*identity.Principal, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("sso: failed to parse form: %w", err)
	}

	samlResponse := r.FormValue("SAMLResponse")
	if samlResponse == "" {
		return nil, fmt.Errorf("sso: missing SAMLResponse")
	}

	assertionBytes, err := base64.StdEncoding.DecodeString(samlResponse)
	if err != nil {
		return nil, fmt.Errorf("sso: failed to decode SAMLResponse: %w", err)
	}

	assertionInfo, err := s.sp.RetrieveAssertionInfo(string(assertionBytes))
	if err != nil {
		return nil, fmt.Errorf("sso: failed to validate assertion: %w", err)
	}
	if w := assertionInfo.WarningInfo; w != nil {
		if w.InvalidTime {
			return nil, fmt.Errorf("sso: assertion has invalid time")
		}
		if w.NotInAudience {
			return nil, fmt.Errorf("sso: assertion not in expected audience")
		}
	}

	principal := &identity.Principal{Provider: s.name}
	for _, attr := range assertionInfo.Values {
		if len(attr.Values) == 0 {
			continue
		}
		value := attr.Values[0].Value
		switch attr.Name {
		case s.attributes.ID:
			principal.ExternalID = value
		case s.attributes.DisplayName:
			principal.DisplayName = value
		case s.attributes.Photo:
			principal.PhotoURL = value
		}
	}

	if principal.ExternalID == "" {
		principal.ExternalID = assertionInfo.NameID
	}
	if principal.ExternalID == "" {
		return nil, fmt.Errorf("sso: assertion carries no usable subject")
	}
	if principal.DisplayName == "" {
		principal.DisplayName = assertionInfo.NameID
	}
	return principal, nil
}
