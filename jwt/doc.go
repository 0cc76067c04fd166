// Package jwt signs and verifies the access, refresh and verification
// credentials issued by sessionkit.
//
// Every credential carries a [Kind] claim and is only accepted for that kind.
// Expiry is strict: a credential is rejected once now >= exp.
package jwt
