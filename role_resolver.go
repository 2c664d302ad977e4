package portal

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ProfileLookupRetries is the number of extra lookups the resolver
// performs when a profile row is missing, to absorb the sign-up race
// where profile provisioning lags identity creation.
var ProfileLookupRetries = 2

// ProfileLookupRetryWait is the pause between those lookups.
var ProfileLookupRetryWait = 150 * time.Millisecond

// ProfileFinder is the slice of the profile collaborator the resolver
// needs: a single-row lookup by identity id.
type ProfileFinder interface {
	GetByIdentityID(ctx context.Context, identityID string) (*Profile, error)
}

// RoleResolverOption customizes resolver construction.
type RoleResolverOption func(*RoleResolver)

// WithRoleResolverLogger overrides the default logger.
func WithRoleResolverLogger(logger Logger) RoleResolverOption {
	return func(r *RoleResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRoleResolverRetries overrides the missing-row retry budget.
func WithRoleResolverRetries(retries int, wait time.Duration) RoleResolverOption {
	return func(r *RoleResolver) {
		if retries >= 0 {
			r.retries = retries
		}
		if wait >= 0 {
			r.retryWait = wait
		}
	}
}

// RoleResolver maps an identity id to its Profile (and role) on demand,
// once per page visit. No cross-navigation cache: each guarded page may
// re-resolve, trading a small latency cost for freshness.
type RoleResolver struct {
	profiles  ProfileFinder
	logger    Logger
	retries   int
	retryWait time.Duration
}

// NewRoleResolver returns a resolver backed by the given profile store.
func NewRoleResolver(profiles ProfileFinder, opts ...RoleResolverOption) *RoleResolver {
	r := &RoleResolver{
		profiles:  profiles,
		logger:    defLogger{},
		retries:   ProfileLookupRetries,
		retryWait: ProfileLookupRetryWait,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Resolve fetches the Profile for an authenticated identity. It fails
// with ErrProfileNotFound when the row is missing after the retry
// budget (a data integrity fault, not an unauthenticated state) or with
// a transient error when the collaborator is unreachable.
func (r *RoleResolver) Resolve(ctx context.Context, identityID string) (*Profile, error) {
	if identityID == "" {
		return nil, goerrors.New("identity id must not be empty", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during role resolution")
			case <-time.After(r.retryWait):
			}
		}

		profile, err := r.profiles.GetByIdentityID(ctx, identityID)
		if err == nil {
			if !profile.Role.IsValid() {
				return nil, goerrors.New("profile has an unknown or invalid role", goerrors.CategoryAuth).
					WithTextCode(textCodeInvalidRole).
					WithMetadata(map[string]any{"role": profile.Role, "identity_id": identityID})
			}
			return profile, nil
		}

		if !goerrors.IsNotFound(err) && !IsProfileNotFound(err) {
			return nil, goerrors.Wrap(err, ErrProfileLookupFailed.Category, ErrProfileLookupFailed.Message).
				WithTextCode(textCodeProfileLookupFailed).
				WithMetadata(map[string]any{"identity_id": identityID})
		}

		lastErr = err
		r.logger.Debug("profile row missing, retrying", "identity_id", identityID, "attempt", attempt)
	}

	r.logger.Error("no profile for authenticated identity", "identity_id", identityID, "error", lastErr)

	return nil, ErrProfileNotFound.WithMetadata(map[string]any{"identity_id": identityID})
}

// ResolveRole is a convenience wrapper returning only the role.
func (r *RoleResolver) ResolveRole(ctx context.Context, identityID string) (Role, error) {
	profile, err := r.Resolve(ctx, identityID)
	if err != nil {
		return "", err
	}
	return profile.Role, nil
}
