// Package authkit provides a layered credential pipeline: password login,
// mandatory email-address verification, and optional or mandatory multi-factor
// authentication via TOTP or carrier SMS one-time codes.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Each account record is the unit of consistency; lifecycle
// operations run as atomic per-account updates with optimistic versioning, so
// operations on distinct accounts never contend.
//
// # Architecture boundaries
//
// authkit is the public surface. It exposes [Engine], [Builder], [Config], and
// the collaborator interfaces the caller implements or picks from the shipped
// subpackages: [Store] (store/memstore, store/redisstore), [EmailSender] and
// [SMSSender] (delivery/...), and [TokenIssuer] (token). HTTP routing, page
// rendering, rate limiting, and session cookie mechanics are the embedding
// application's concern.
//
// # What this package must NOT do
//
//   - Hold a storage lock across a delivery call. Ephemeral secrets are
//     committed first; delivery happens after, and a delivery failure never
//     rolls back account state.
//   - Distinguish "email not found" from "wrong password" in any observable
//     way ([ErrInvalidCredentials] covers both).
//   - Read an ephemeral verification slot twice. Consumption and expiry both
//     clear it.
package authkit
