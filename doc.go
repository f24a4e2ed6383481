// Package auth is the authentication and token-issuance core of the
// Vulpecula backend. It coordinates a durable relational store and a
// fast ephemeral cache to issue, validate, and revoke security
// sensitive tokens under strict expiry and single-use guarantees.
//
// Sessions:
//   - SessionAuthority owns the session lifecycle. The store row is
//     ground truth; the cache entry is a bounded-staleness accelerator
//     that revocation closes immediately. Sessions are soft-revoked:
//     revokedAt doubles as the expiry timestamp when a bounded
//     lifetime was requested at login.
//
// CSRF:
//   - The csrf subpackage binds one rendered form to one submission
//     through two interchangeable strategies: a cache-resident secret
//     pair and a stateless authenticated-ciphertext pair. Both fail
//     closed and never report which half of a check failed.
//
// Action tokens:
//   - ActionTokens mints single-use cache-resident tokens for email
//     verification and password reset. Redemption is an atomic take,
//     so concurrent redeems race to exactly one winner.
//
// Identifiers:
//   - Every durable entity is keyed by a ULID-backed ID that sorts by
//     creation time and round-trips to its timestamp.
//
// The command handlers (RegisterLocalUser, RequestEmailVerification,
// FinalizeEmailVerification, InitializePasswordReset,
// FinalizePasswordReset) compose these pieces into the account flows,
// and RequestAuthenticator exposes the request-facing surface:
// GetCredentials, IsAuthenticated, RequireAuth, and the session and
// CSRF cookie plumbing.
package auth
