// Package broker is the identity-to-ticket session broker: the login state
// machine that carries a browser through provider authentication, exchanges
// the verified principal for a Qlik Proxy Service ticket, and binds the
// caller's session to the normalized identity.
//
// The flow is strict about ordering. A callback only proceeds when the
// session shows a pending login; the prior downstream session is revoked
// before a fresh ticket is issued; and the session is bound to the identity
// only after the proxy service has vouched for it with a ticket. Logout and
// session introspection are gated on that binding, so an identity can only
// act on its own sessions.
package broker
