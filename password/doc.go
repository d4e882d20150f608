// Package password implements argon2id password hashing with PHC-encoded
// output.
//
// # Architecture boundaries
//
// The package knows nothing about accounts or storage. It takes a password
// and returns a string; the caller decides where that string lives.
//
// # What this package must NOT do
//
// It must never log, truncate, or normalize the password bytes, and it must
// never compare digests with anything but constant-time comparison.
package password
