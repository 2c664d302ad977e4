package portal

import (
	"context"
)

var profileCtxKey = &contextKey{"profile"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithProfileContext sets the resolved Profile in the given context
func WithProfileContext(ctx context.Context, profile *Profile) context.Context {
	return context.WithValue(ctx, profileCtxKey, profile)
}

// ProfileFromContext finds the resolved profile in the context.
func ProfileFromContext(ctx context.Context) (*Profile, bool) {
	raw, ok := ctx.Value(profileCtxKey).(*Profile)
	return raw, ok
}

// WithSessionContext sets the session snapshot in the given context
func WithSessionContext(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, session)
}

// SessionFromContext finds the session snapshot in the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(Session)
	return raw, ok
}

// RoleFromContext is a convenience for handlers that only need the
// resolved role.
func RoleFromContext(ctx context.Context) (Role, bool) {
	profile, ok := ProfileFromContext(ctx)
	if !ok || profile == nil {
		return "", false
	}
	return profile.Role, true
}
