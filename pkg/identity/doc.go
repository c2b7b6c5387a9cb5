// Package identity canonicalizes provider-verified login results into the
// stable identity form the rest of the broker keys on.
//
// A Principal is what an identity-provider strategy hands back after a
// successful login. Normalize turns it into a NormalizedIdentity, the
// (directory, userId) pair the Qlik Proxy Service understands, and Key
// produces the case-folded token stored in the session and compared against
// URL path parameters.
package identity
