// Package session holds the caller's server-side session state and the
// ownership checks built on it.
//
// A Record is the explicit sum of two concerns: the transient login context
// (pending flow type, redirect target, module parameters, state nonce) and
// the durable binding of the session to one normalized identity. Records
// live in an external redis store with a server-side TTL; the broker never
// keeps them in process memory.
//
// Writes are synchronous: Set and Delete return only after the store has
// acknowledged. Logout relies on this; the unbind must be observable to
// the very next request on the same session before the redirect response
// is sent.
package session
