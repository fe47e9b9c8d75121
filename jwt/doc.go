// Package jwt mints and verifies the short-lived access tokens paired with
// refresh credentials. Verification is local (signature and expiry only) and
// never consults the credential store.
package jwt
