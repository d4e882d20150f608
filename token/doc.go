// Package token issues and verifies signed session tokens with strict
// validation semantics suitable for low-latency authentication paths.
package token
