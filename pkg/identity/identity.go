package identity

import (
	"errors"
	"strings"
)

// Delimiter joins display name and external id into a user id, and directory
// and user id into a session key. Display names are provider-controlled and
// may themselves contain it; see Normalize.
const Delimiter = ";"

// ErrInvalidPrincipal indicates a principal that cannot be normalized,
// typically because the provider returned no external id.
var ErrInvalidPrincipal = errors.New("identity: invalid principal")

// Principal is the verified result of identity-provider authentication.
// It is immutable and scoped to a single login attempt.
type Principal struct {
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name"`
	ExternalID  string `json:"external_id"`
	PhotoURL    string `json:"photo_url,omitempty"`
}

// NormalizedIdentity is the broker-internal canonical identity: the user
// directory and user id presented to the Qlik Proxy Service.
type NormalizedIdentity struct {
	Directory string
	UserID    string
}

// Normalize derives the canonical identity from a principal. The user id is
// the display name and external id joined with Delimiter, which keeps ids
// stable across logins by the same principal and matches the form already
// present in deployed QPS user directories.
//
// Known limitation: a display name containing Delimiter yields an ambiguous
// user id. The joined form is kept anyway for wire compatibility with
// existing downstream sessions.
func Normalize(p Principal) (NormalizedIdentity, error) {
	if p.ExternalID == "" {
		return NormalizedIdentity{}, ErrInvalidPrincipal
	}
	return NormalizedIdentity{
		Directory: p.Provider,
		UserID:    p.DisplayName + Delimiter + p.ExternalID,
	}, nil
}

// Key returns the case-folded session key for a (directory, userId) pair.
// Two identities are the same session owner iff their keys are equal.
// Folding is plain ASCII lower-casing; no Unicode normalization is applied.
func Key(directory, userID string) string {
	return strings.ToLower(directory + Delimiter + userID)
}

// Key returns the session key for the normalized identity.
func (n NormalizedIdentity) Key() string {
	return Key(n.Directory, n.UserID)
}
