// Package auth validates operator bearer tokens for AgroLink Core.
//
// Account management lives in an external subsystem; this package only
// verifies HS256-signed access tokens against the shared secret and
// extracts the operator's role and account scope. Device endpoints do
// not use bearer tokens at all: a device's identity is its registry
// lookup, which fails closed for unknown identifiers.
package auth
