// Package identity provides the user lifecycle for Harvest Hub accounts:
// registration, login, verification, password recovery, and email changes,
// all gated by single-use, time-limited signed tokens.
//
// Lifecycle:
//   - Users carry a UserStatus persisted via Bun. Self-serve roles (NOTER,
//     FARMER, BUYER) start PENDING and must redeem a verification token to
//     activate; staff roles activate immediately and never receive one.
//   - TransitionStatus centralizes the status graph. Invoke it whenever an
//     admin moves an account rather than writing the field directly.
//
// Events:
//   - Every committed mutation dispatches an Event. Handlers fan out on their
//     own goroutines with a detached context: the mail, the marketing list,
//     and any audit sink run best-effort and never fail the request that
//     produced them.
//
// Tokens:
//   - TokenService mints HMAC-signed JWTs with per-purpose TTLs from Config.
//     Purpose is implicit in the redeeming operation; a verification token
//     cannot reset a password because the reset flow never looks at it.
package identity
