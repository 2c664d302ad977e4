package portal

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity is the authenticated credential issued by the identity
// provider. It is independent of the application level Profile record.
type Identity interface {
	ID() string
	Email() string
	IssuedAt() time.Time
	ExpiresAt() time.Time
}

// AuthEventType enumerates the change notifications emitted by an
// identity provider.
type AuthEventType string

const (
	AuthEventSignedIn       AuthEventType = "signed_in"
	AuthEventSignedOut      AuthEventType = "signed_out"
	AuthEventTokenRefreshed AuthEventType = "token_refreshed"
)

// AuthChange is delivered to OnAuthStateChange listeners. Identity is
// nil for signed_out events.
type AuthChange struct {
	Event    AuthEventType
	Identity Identity
}

// AuthChangeListener receives provider change notifications.
type AuthChangeListener func(change AuthChange)

// Unsubscribe releases a change subscription. Safe to call more than once.
type Unsubscribe func()

// SignUpMetadata carries the profile fields collected at registration.
type SignUpMetadata struct {
	Name string
	Role Role
}

// IdentityProvider is the boundary with the identity collaborator. The
// portal core consumes this interface; AccountProvider is the local
// implementation.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (Identity, error)
	SignInWithPassword(ctx context.Context, email, password string) (Identity, error)
	SignOut(ctx context.Context) error

	// CurrentIdentity returns the already persisted credential, if any.
	// A nil Identity with a nil error means no one is signed in.
	CurrentIdentity(ctx context.Context) (Identity, error)

	OnAuthStateChange(listener AuthChangeListener) Unsubscribe
}

// Config holds portal auth options
type Config interface {
	GetSigningKey() string
	GetContextKey() string
	GetTokenExpiration() int
	GetIssuer() string
	GetAudience() []string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
	GetSignInRoute() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PORTAL "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] PORTAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PORTAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PORTAL "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
