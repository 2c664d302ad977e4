package portal

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// GuardState is the per-page guard state machine.
type GuardState string

const (
	// GuardPending while the session is initializing or a transient
	// resolution failure is being retried
	GuardPending GuardState = "pending"
	// GuardUnauthenticated redirects the visitor to the sign-in surface
	GuardUnauthenticated GuardState = "unauthenticated"
	// GuardAuthorized renders the page content
	GuardAuthorized GuardState = "authorized"
	// GuardMisrouted redirects to the resolved role's home page
	GuardMisrouted GuardState = "misrouted"
	// GuardNotice surfaces an account or retry notice instead of a
	// blank screen
	GuardNotice GuardState = "notice"
)

// Terminal reports whether the state ends this page instance's guard.
func (s GuardState) Terminal() bool {
	switch s {
	case GuardUnauthenticated, GuardAuthorized, GuardMisrouted, GuardNotice:
		return true
	default:
		return false
	}
}

// GuardMaxRetries bounds the number of render passes spent retrying
// transient resolution failures before a notice is surfaced.
var GuardMaxRetries = 3

// GuardDecision is the outcome of one guard evaluation. Every terminal
// state has a defined outcome: a redirect target, page content, or a
// notice. Never a blank screen.
type GuardDecision struct {
	State      GuardState
	RedirectTo string
	Profile    *Profile
	Notice     string
	Retryable  bool
	Err        error
}

// RouteGuardOption customizes guard construction.
type RouteGuardOption func(*RouteGuard)

// WithGuardSignInPath overrides the sign-in surface the guard redirects
// unauthenticated visitors to.
func WithGuardSignInPath(path string) RouteGuardOption {
	return func(g *RouteGuard) {
		if path != "" {
			g.signInPath = path
		}
	}
}

// WithGuardMaxRetries overrides the transient failure retry budget.
func WithGuardMaxRetries(n int) RouteGuardOption {
	return func(g *RouteGuard) {
		if n >= 0 {
			g.maxRetries = n
		}
	}
}

// WithGuardLogger overrides the default logger.
func WithGuardLogger(logger Logger) RouteGuardOption {
	return func(g *RouteGuard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithGuardActivitySink sets the sink receiving misroute and
// missing-profile events.
func WithGuardActivitySink(sink ActivitySink) RouteGuardOption {
	return func(g *RouteGuard) {
		g.activitySink = normalizeActivitySink(sink)
	}
}

// RouteGuard decides, for one protected page instance, whether to
// render, redirect to sign-in, or redirect to the visitor's own home
// page. Each page declares its audience once; the guard owns the role
// comparison.
type RouteGuard struct {
	authCtx      *AuthContext
	audience     Audience
	signInPath   string
	maxRetries   int
	retries      int
	state        GuardState
	decision     GuardDecision
	logger       Logger
	activitySink ActivitySink
}

// NewRouteGuard builds a guard for a page declaring the given audience.
func NewRouteGuard(authCtx *AuthContext, audience Audience, opts ...RouteGuardOption) (*RouteGuard, error) {
	if !audience.IsValid() {
		return nil, goerrors.New("unknown page audience", goerrors.CategoryBadInput).
			WithTextCode(textCodeInvalidAudience).
			WithMetadata(map[string]any{"audience": audience})
	}

	g := &RouteGuard{
		authCtx:      authCtx,
		audience:     audience,
		signInPath:   "/auth",
		maxRetries:   GuardMaxRetries,
		state:        GuardPending,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	return g, nil
}

// State returns the guard's current state.
func (g *RouteGuard) State() GuardState {
	return g.state
}

// Reset returns a notice-stuck guard to pending so the visitor can
// retry. No effect on other terminal states.
func (g *RouteGuard) Reset() {
	if g.state == GuardNotice {
		g.state = GuardPending
		g.retries = 0
		g.decision = GuardDecision{State: GuardPending}
	}
}

// Evaluate runs one render pass of the guard state machine. Once a
// terminal state is reached the same decision is returned for the rest
// of this page instance's life.
func (g *RouteGuard) Evaluate(ctx context.Context) GuardDecision {
	if g.state.Terminal() {
		return g.decision
	}

	if g.authCtx.IsLoading() {
		return g.pending()
	}

	identity := g.authCtx.CurrentIdentity()
	if identity == nil {
		return g.settle(GuardDecision{
			State:      GuardUnauthenticated,
			RedirectTo: g.signInPath,
		})
	}

	profile, err := g.authCtx.ResolveCurrentProfile(ctx)
	if err != nil {
		return g.handleResolutionError(ctx, err)
	}

	if g.audience.Allows(profile.Role) {
		return g.settle(GuardDecision{
			State:   GuardAuthorized,
			Profile: profile,
		})
	}

	g.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventGuardMisroute,
		IdentityID: profile.ID.String(),
		Metadata: map[string]any{
			"audience": g.audience,
			"role":     profile.Role,
		},
	})

	return g.settle(GuardDecision{
		State:      GuardMisrouted,
		RedirectTo: profile.Role.HomePath(),
		Profile:    profile,
	})
}

func (g *RouteGuard) handleResolutionError(ctx context.Context, err error) GuardDecision {
	switch {
	case IsStaleResolution(err):
		// The identity changed mid-resolution. Re-evaluate against
		// whoever is current now; their result, never the stale one.
		return g.Evaluate(ctx)

	case IsProfileNotFound(err):
		g.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventProfileMissing,
			IdentityID: identityID(g.authCtx.CurrentIdentity()),
		})
		g.logger.Error("authenticated identity has no profile", "error", err)
		return g.settle(GuardDecision{
			State:  GuardNotice,
			Notice: "There is a problem with your account. Please contact support.",
			Err:    err,
		})

	case IsTransientError(err):
		g.retries++
		if g.retries <= g.maxRetries {
			g.logger.Warn("role resolution unavailable, will retry", "attempt", g.retries)
			return g.pending()
		}
		return g.settle(GuardDecision{
			State:     GuardNotice,
			Notice:    "We could not verify your access. Please try again.",
			Retryable: true,
			Err:       err,
		})

	default:
		g.logger.Error("role resolution failed", "error", err)
		return g.settle(GuardDecision{
			State:  GuardNotice,
			Notice: "We could not verify your access. Please try again.",
			Err:    err,
		})
	}
}

func (g *RouteGuard) pending() GuardDecision {
	g.state = GuardPending
	g.decision = GuardDecision{State: GuardPending}
	return g.decision
}

func (g *RouteGuard) settle(decision GuardDecision) GuardDecision {
	g.state = decision.State
	g.decision = decision
	return decision
}

func (g *RouteGuard) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	sink := normalizeActivitySink(g.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		g.logger.Warn("route guard activity sink error: %v", err)
	}
}
