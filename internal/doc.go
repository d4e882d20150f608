// Package internal contains helper utilities that are intentionally private
// to authkit: cryptographically secure random material for verification codes
// and TOTP shared secrets.
//
// # What this package must NOT do
//
//   - Export types that appear in the public authkit API.
//   - Be imported by any package outside the authkit module.
package internal
