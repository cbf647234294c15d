// Package auth provides authentication and authorisation for the workshop
// management API.
//
// Accounts carry one of three roles (admin, manager, worker) and belong to
// a single workshop; new self-service accounts start on the unassigned
// placeholder workshop. The package provides:
//   - Argon2id password hashing, with bcrypt accepted for imported accounts
//   - HMAC-signed JWT access tokens carrying a per-user token_version
//   - A Resolver that re-reads the user row on every request
//   - Policy helpers that turn an Identity into a tenant.Scope
//
// Changing or resetting a password increments token_version, so every
// token issued before the change stops resolving. Role and workshop are
// never trusted from the token.
package auth
