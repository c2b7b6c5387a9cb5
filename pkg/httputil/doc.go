// Package httputil provides the broker's HTTP plumbing: response helpers
// that never leak internal detail, and the middleware chain (request ids,
// structured request logging, panic recovery, CORS, metrics).
//
// Failure responses are a bare status code. Callers of the broker are
// browsers mid-login; anything beyond the status would only help someone
// probing for identities.
package httputil
