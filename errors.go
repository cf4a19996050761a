package forgeauth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials  = "invalid_credentials"
	TextCodeAccountExists       = "account_already_exists"
	TextCodeUpstreamUnavailable = "forge_unavailable"
	TextCodeUpstreamConflict    = "forge_rejected"
	TextCodeGroupProvision      = "forge_group_provision_failed"
	TextCodeUserProvision       = "forge_user_provision_failed"
	TextCodeTokenProvision      = "forge_token_provision_failed"
	TextCodeMembershipProvision = "forge_membership_provision_failed"
)

// ErrInvalidCredentials covers every "your credentials are wrong" case: bad
// password, unknown account, no usable token, dangling token reference, or a
// token the forge no longer recognizes.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountExists is returned when the username or email is already taken
// locally. The forge must not have been contacted when this is returned.
var ErrAccountExists = errors.New("account already exists", errors.CategoryConflict).
	WithTextCode(TextCodeAccountExists).
	WithCode(errors.CodeConflict)

// ErrUpstreamUnavailable is a network-level failure reaching the forge.
var ErrUpstreamUnavailable = errors.New("forge unreachable", errors.CategoryOperation).
	WithTextCode(TextCodeUpstreamUnavailable).
	WithCode(errors.CodeInternal)

// ErrUpstreamConflict is returned when the forge answered but rejected the
// request, including token lookups that resolve to no user.
var ErrUpstreamConflict = errors.New("forge rejected request", errors.CategoryConflict).
	WithTextCode(TextCodeUpstreamConflict).
	WithCode(errors.CodeConflict)

// Provisioning errors name the registration step that failed. Each remote
// failure is terminal for the current request; no retries happen anywhere.
var (
	ErrGroupProvision = errors.New("failed to provision forge group", errors.CategoryOperation).
				WithTextCode(TextCodeGroupProvision)

	ErrUserProvision = errors.New("failed to provision forge user", errors.CategoryOperation).
				WithTextCode(TextCodeUserProvision)

	ErrTokenProvision = errors.New("failed to provision forge token", errors.CategoryOperation).
				WithTextCode(TextCodeTokenProvision)

	ErrMembershipProvision = errors.New("failed to add forge user to group", errors.CategoryOperation).
				WithTextCode(TextCodeMembershipProvision)
)

// ErrNoEmptyString rejects empty plaintext passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is the normalized bcrypt mismatch error.
var ErrMismatchedHashAndPassword = errors.New("password does not match", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is returned when a request carries no session cookie.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession is returned for session tokens that fail to parse.
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for expired session tokens.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// IsCredentialFailure reports whether err maps to the caller-facing
// "credentials are wrong" bucket rather than a provisioning problem.
func IsCredentialFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMismatchedHashAndPassword)
}

// IsProvisionFailure reports whether err came from one of the four
// registration provisioning steps.
func IsProvisionFailure(err error) bool {
	return errors.Is(err, ErrGroupProvision) ||
		errors.Is(err, ErrUserProvision) ||
		errors.Is(err, ErrTokenProvision) ||
		errors.Is(err, ErrMembershipProvision)
}
