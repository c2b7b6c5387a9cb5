// Package sso provides the identity-provider strategies the broker
// delegates logins to.
//
// # Overview
//
// A Strategy drives one federated provider through the redirect round trip:
// BeginAuth sends the browser to the provider with a state nonce, and
// CompleteAuth turns the provider's callback into a verified
// identity.Principal. The broker treats every conformant strategy
// identically; which provider backs it is invisible past this package.
//
// Strategies are immutable configuration owned by the Registry they are
// constructed into. There is no global registration; the registry is built
// once at startup and passed into the broker explicitly.
//
// # Implementations
//
// OAuth2Strategy: plain OAuth2 with a userinfo endpoint and a configurable
// profile mapping. FacebookStrategy is a preset of it.
//
// OIDCStrategy: OpenID Connect via issuer discovery with ID-token
// verification. GoogleStrategy is a preset of it.
//
// SAMLStrategy: SAML 2.0 assertion validation for enterprise IdPs; the
// state nonce travels as RelayState.
package sso
