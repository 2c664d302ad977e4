package portal

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	textCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	textCodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	textCodeRateLimited           = "RATE_LIMITED"
	textCodeProfileNotFound       = "PROFILE_NOT_FOUND"
	textCodeProfileLookupFailed   = "PROFILE_LOOKUP_FAILED"
	textCodeInvalidRole           = "INVALID_ROLE"
	textCodeInvalidAudience       = "INVALID_AUDIENCE"
	textCodeTokenExpired          = "TOKEN_EXPIRED"
	textCodeTokenMalformed        = "TOKEN_MALFORMED"
	textCodeStaleResolution       = "STALE_ROLE_RESOLUTION"
)

// ErrInvalidCredentials is returned when the provider rejects an
// email/password pair.
var ErrInvalidCredentials = errors.New("invalid login credentials", errors.CategoryAuth).
	WithTextCode(textCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrDuplicateRegistration is returned when signing up an email that
// already has an account.
var ErrDuplicateRegistration = errors.New("email is already registered", errors.CategoryConflict).
	WithTextCode(textCodeDuplicateRegistration).
	WithCode(errors.CodeConflict)

// ErrRateLimited is returned when the provider throttles credential
// attempts.
var ErrRateLimited = errors.New("too many attempts, retry later", errors.CategoryRateLimit).
	WithTextCode(textCodeRateLimited)

// ErrProfileNotFound signals a missing profile row for an authenticated
// identity. This is a data integrity fault, not an unauthenticated state.
var ErrProfileNotFound = errors.New("no profile found for identity", errors.CategoryNotFound).
	WithTextCode(textCodeProfileNotFound).
	WithCode(errors.CodeNotFound)

// ErrProfileLookupFailed signals the profile collaborator was
// unreachable. Recoverable; callers should retry or surface a retry
// affordance rather than treating it as unauthorized.
var ErrProfileLookupFailed = errors.New("profile lookup failed", errors.CategoryOperation).
	WithTextCode(textCodeProfileLookupFailed)

// ErrTokenExpired is returned for expired identity tokens
var ErrTokenExpired = errors.New("identity token is expired", errors.CategoryAuth).
	WithTextCode(textCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens we cannot decode
var ErrTokenMalformed = errors.New("identity token is malformed", errors.CategoryAuth).
	WithTextCode(textCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty password input before hashing
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// IsProfileNotFound reports whether err carries the profile integrity
// fault, however deep it is wrapped.
func IsProfileNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProfileNotFound) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == textCodeProfileNotFound
	}
	return false
}

// IsStaleResolution reports whether err marks a role resolution that
// completed for an identity no longer signed in.
func IsStaleResolution(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStaleResolution) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == textCodeStaleResolution
	}
	return false
}

// IsTransientError reports whether err is a recoverable collaborator
// failure worth retrying.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProfileLookupFailed) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == textCodeProfileLookupFailed ||
			richErr.Category == errors.CategoryOperation
	}
	return false
}

// providerMessages maps known provider error fragments to the copy we
// show members. Unknown provider errors fall through with their raw
// message.
var providerMessages = []struct {
	fragment string
	message  string
}{
	{"already registered", "This email is already registered. Please sign in instead."},
	{"invalid login credentials", "Invalid email or password"},
	{"rate limit", "Too many attempts. Please wait a moment and try again."},
	{"too many attempts", "Too many attempts. Please wait a moment and try again."},
}

// FriendlyProviderMessage maps a provider error to user facing text.
func FriendlyProviderMessage(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.TextCode {
		case textCodeDuplicateRegistration:
			return "This email is already registered. Please sign in instead."
		case textCodeInvalidCredentials:
			return "Invalid email or password"
		case textCodeRateLimited:
			return "Too many attempts. Please wait a moment and try again."
		}
		if richErr.Message != "" {
			msg = richErr.Message
		}
	}

	lower := strings.ToLower(msg)
	for _, candidate := range providerMessages {
		if strings.Contains(lower, candidate.fragment) {
			return candidate.message
		}
	}

	return msg
}
