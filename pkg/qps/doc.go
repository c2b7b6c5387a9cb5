// Package qps is the client for the Qlik Proxy Service ticket API.
//
// # Overview
//
// The proxy service issues short-lived access tickets bound to a
// (UserDirectory, UserId) pair and tracks the downstream sessions opened
// with them. This client covers the three calls the broker needs:
//
//	RequestTicket  POST   {base}ticket
//	UserSessions   GET    {base}user/{directory}/{user}
//	DeleteUser     DELETE {base}user/{directory}/{user}
//
// Every call carries the shared anti-forgery key both as the xrfkey query
// parameter and the X-Qlik-Xrfkey header, as the proxy service requires.
//
// # Transport
//
// The service is reached over mutual TLS: a client certificate/key pair is
// presented and the service's self-signed chain is trusted through a pinned
// root CA. Hostname verification is disabled: deployments reach the service
// by IP or internal DNS names that are not in the certificate.
//
// # Failure semantics
//
// No call retries. A transport error and a response without a Ticket field
// are the same outcome for callers: no ticket. DeleteUser is idempotent;
// revoking a user with no sessions succeeds trivially.
package qps
