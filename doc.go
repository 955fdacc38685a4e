// Package accounts provides the user account resource (registration, email
// verification, scoped access control, admin promotion) plus the HTTP
// surface that exposes it.
//
// Account lifecycle:
//   - Accounts are created unverified with a single-use verification token.
//     Redeeming the token through the emailed link flips the account into
//     the verified state and consumes the token; changing the email re-enters
//     the unverified state with a fresh token.
//   - The admin flag is only writable by an admin caller, and only on a
//     target that was verified when the request arrived.
//
// Authorization:
//   - Callers present HS256 bearer tokens. End-user tokens carry an account
//     id, admin flag, and granted scopes; client-credential tokens carry no
//     identity and are accepted only on the trusted application routes
//     (store, resend). Authorize runs the ordered checklist for an operation:
//     identity, then scope, then per-target ability.
//
// Notification delivery:
//   - Verification emails go through a Notifier behind a fixed retry policy.
//     Delivery is best effort on create and update; the resend route reports
//     exhaustion to the caller.
package accounts
