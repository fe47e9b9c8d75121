// Package internal contains helper utilities that are intentionally private
// to refreshguard, including refresh token minting and hashing.
//
// # Sub-packages
//
//   - audit — async event dispatch (Dispatcher + Sink implementations)
//   - flows — pure-function flow orchestrators for the issuance and rotation paths
//
// # What this package must NOT do
//
//   - Export types that appear in the public refreshguard API.
//   - Be imported by any package outside the refreshguard module.
package internal
