package session

import "github.com/platinummonkey/qauth/pkg/identity"

// LoginType is the pending login flow variant
type LoginType string

const (
	// LoginNone means no login is pending on the session
	LoginNone LoginType = ""
	// LoginWeb is the interactive flow: the caller supplied the redirect
	LoginWeb LoginType = "web"
	// LoginModule is the embedded flow: the redirect target is computed by
	// the proxy service from a target application id
	LoginModule LoginType = "module"
)

// Record is the caller's session state. Only these fields are ever stored;
// nothing is attached to a session ad hoc.
type Record struct {
	// Login context, created by initiate-login and cleared when the
	// callback completes, successfully or not. Only one login may be
	// pending per session.
	LoginType      LoginType `json:"login_type,omitempty"`
	Redirect       string    `json:"redirect,omitempty"`
	ModuleTargetID string    `json:"module_target_id,omitempty"`
	ModuleProxyURI string    `json:"module_proxy_uri,omitempty"`
	State          string    `json:"state,omitempty"`

	// SessionKey binds the session to one identity. Set only after the
	// proxy service has vouched for the identity with a ticket; it is the
	// sole authorization token for logout and session introspection.
	SessionKey string `json:"session_key,omitempty"`
}

// PendingLogin reports whether a login flow is awaiting its callback
func (r *Record) PendingLogin() bool {
	return r.LoginType != LoginNone
}

// ClearLoginContext consumes the pending login context
func (r *Record) ClearLoginContext() {
	r.LoginType = LoginNone
	r.Redirect = ""
	r.ModuleTargetID = ""
	r.ModuleProxyURI = ""
	r.State = ""
}

// Bind associates the session with a normalized identity
func (r *Record) Bind(n identity.NormalizedIdentity) {
	r.SessionKey = n.Key()
}

// Unbind clears the identity binding
func (r *Record) Unbind() {
	r.SessionKey = ""
}

// IsOwner reports whether the session is bound to the given identity. The
// compare is on case-folded session keys, so path parameters in any casing
// match their owner.
func (r *Record) IsOwner(directory, userID string) bool {
	return r.SessionKey != "" && r.SessionKey == identity.Key(directory, userID)
}
