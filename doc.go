// Package forgeauth authenticates local accounts against credentials and
// access tokens, and proxies account provisioning to an external forge (a
// GitLab style code hosting service).
//
// Accounts:
//   - Account, Person, and AccountToken are persisted via Bun. A Person is
//     created together with its Account at registration; both commit in a
//     single transaction alongside the first AccountToken.
//   - Registration provisions the remote side first (group, user, token,
//     membership, strictly in that order) and only persists locally once the
//     forge accepted every step.
//
// Tokens:
//   - An AccountToken is usable while it is active and not revoked. Among
//     usable tokens the best token is the one expiring soonest; BestToken
//     implements that selection.
//   - Sessions for the HTML login flow are separate from forge tokens: the
//     controller mints a signed HS256 JWT via TokenService after Login
//     succeeds.
//
// Failures surface as the package error taxonomy (ErrInvalidCredentials,
// ErrAccountExists, ErrUpstreamUnavailable, ErrUpstreamConflict, plus the
// per-step provisioning errors); transport errors from the forge client never
// escape the service boundary, and token values are redacted before logging.
package forgeauth
