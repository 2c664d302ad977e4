package portal

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AuthContextOption customizes the composition point.
type AuthContextOption func(*AuthContext)

// WithAuthContextLogger overrides the default logger.
func WithAuthContextLogger(logger Logger) AuthContextOption {
	return func(a *AuthContext) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthContextActivitySink sets the sink receiving sign-out events.
func WithAuthContextActivitySink(sink ActivitySink) AuthContextOption {
	return func(a *AuthContext) {
		a.activitySink = normalizeActivitySink(sink)
	}
}

// AuthContext is the single composition point the rest of the portal
// consumes: current identity, loading flag, sign-out, and role
// resolution for the signed-in identity. It composes the session store
// and the role resolver.
type AuthContext struct {
	store        *SessionStore
	resolver     *RoleResolver
	provider     IdentityProvider
	logger       Logger
	activitySink ActivitySink
}

// NewAuthContext wires the session store, role resolver and identity
// provider together.
func NewAuthContext(store *SessionStore, resolver *RoleResolver, provider IdentityProvider, opts ...AuthContextOption) *AuthContext {
	a := &AuthContext{
		store:        store,
		resolver:     resolver,
		provider:     provider,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// CurrentIdentity reflects the session store's latest value. Nil when
// no one is signed in.
func (a *AuthContext) CurrentIdentity() Identity {
	return a.store.Current().Identity
}

// IsLoading is true exactly while the session is initializing.
func (a *AuthContext) IsLoading() bool {
	return a.store.IsLoading()
}

// Session returns the full session snapshot.
func (a *AuthContext) Session() Session {
	return a.store.Current()
}

// Subscribe registers a listener for session changes. Release the
// handle on teardown.
func (a *AuthContext) Subscribe(listener SessionListener) Unsubscribe {
	return a.store.Subscribe(listener)
}

// SignOut invokes the provider's sign-out and clears the session to a
// ready, unauthenticated state. Calling it when already signed out is a
// no-op, not an error.
func (a *AuthContext) SignOut(ctx context.Context) error {
	session := a.store.Current()
	if !session.Authenticated() {
		return nil
	}

	id := session.Identity.ID()

	if err := a.provider.SignOut(ctx); err != nil {
		a.logger.Error("provider sign out failed", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryAuth, "sign out failed")
	}

	// The provider emits a signed_out event; clearing here keeps the
	// session correct even for providers that do not.
	a.store.clear(transitionCauseSignOut)

	a.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSignOut,
		IdentityID: id,
	})

	return nil
}

// ResolveCurrentProfile resolves the profile for the identity signed in
// right now. The resolution is tagged with that identity id: if the
// session changes while the lookup is in flight, the stale result is
// discarded and ErrStaleResolution is returned.
func (a *AuthContext) ResolveCurrentProfile(ctx context.Context) (*Profile, error) {
	identity := a.CurrentIdentity()
	if identity == nil {
		return nil, goerrors.New("no identity signed in", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	tag := identity.ID()

	profile, err := a.resolver.Resolve(ctx, tag)

	if current := identityID(a.CurrentIdentity()); current != tag {
		a.logger.Debug("discarding stale role resolution", "resolved_for", tag, "current", current)
		return nil, ErrStaleResolution.WithMetadata(map[string]any{
			"resolved_for": tag,
			"current":      current,
		})
	}

	if err != nil {
		return nil, err
	}

	return profile, nil
}

func (a *AuthContext) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	sink := normalizeActivitySink(a.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		a.logger.Warn("auth context activity sink error: %v", err)
	}
}

// ErrStaleResolution is returned when a role resolution completes for
// an identity that is no longer current.
var ErrStaleResolution = goerrors.New("role resolution is stale", goerrors.CategoryConflict).
	WithTextCode(textCodeStaleResolution).
	WithCode(goerrors.CodeConflict)
