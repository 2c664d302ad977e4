package portal

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of attempts an account gets
// in a cool down period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "24h"

// AccountProviderOption customizes provider construction.
type AccountProviderOption func(*AccountProvider)

// WithAccountProviderLogger overrides the default logger.
func WithAccountProviderLogger(logger Logger) AccountProviderOption {
	return func(p *AccountProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithAccountProviderActivitySink sets the sink receiving auth events.
func WithAccountProviderActivitySink(sink ActivitySink) AccountProviderOption {
	return func(p *AccountProvider) {
		p.activitySink = normalizeActivitySink(sink)
	}
}

// WithPersistedToken seeds the provider with a previously issued token,
// e.g. the value of the session cookie at process start. Invalid or
// expired tokens are ignored: the visitor simply starts signed out.
func WithPersistedToken(raw string) AccountProviderOption {
	return func(p *AccountProvider) {
		p.persistedToken = raw
	}
}

// AccountProvider is the local IdentityProvider implementation: bcrypt
// credentials in the accounts table, identity tokens minted by the
// token service, and change notifications for the session store.
type AccountProvider struct {
	repo         RepositoryManager
	tokens       TokenService
	logger       Logger
	activitySink ActivitySink

	mu             sync.RWMutex
	current        Identity
	currentToken   string
	persistedToken string

	listenerMu   sync.Mutex
	listeners    map[int]AuthChangeListener
	nextListener int
}

var _ IdentityProvider = (*AccountProvider)(nil)

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(repo RepositoryManager, tokens TokenService, opts ...AccountProviderOption) *AccountProvider {
	p := &AccountProvider{
		repo:         repo,
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		listeners:    map[int]AuthChangeListener{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	return p
}

// SignUp registers a new account and provisions its profile in one
// transaction, then signs the new member in. The provider side
// confirmation email is out of scope for this layer.
func (p *AccountProvider) SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (Identity, error) {
	msg := ProvisionProfileMessage{
		Name:     meta.Name,
		Email:    email,
		Role:     meta.Role,
		Password: password,
	}

	handler := ProvisionProfileHandler{repo: p.repo}
	profile, err := handler.Execute(ctx, msg)
	if err != nil {
		p.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventSignInFailure,
			Metadata:  map[string]any{"email": email, "error": err.Error()},
		})
		return nil, err
	}

	p.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSignUp,
		IdentityID: profile.ID.String(),
		Metadata:   map[string]any{"role": profile.Role},
	})

	return p.issue(ctx, profile.ID.String(), profile.Email, AuthEventSignedIn)
}

// SignInWithPassword verifies credentials and issues an identity.
func (p *AccountProvider) SignInWithPassword(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.repo.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			p.signInFailure(ctx, email, ErrInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during sign in")
	}

	if account.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}

		if expired {
			account.LoginAttempts = 0
		}
	}

	// too many attempts in the window, cool off
	if account.LoginAttempts > MaxLoginAttempts {
		p.signInFailure(ctx, email, ErrRateLimited)
		return nil, ErrRateLimited
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if err2 := p.repo.Accounts().TrackAttemptedLogin(ctx, account); err2 != nil {
			return nil, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}

		p.signInFailure(ctx, email, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := p.repo.Accounts().TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	p.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSignInSuccess,
		IdentityID: account.ID.String(),
	})

	return p.issue(ctx, account.ID.String(), account.Email, AuthEventSignedIn)
}

// SignOut drops the current identity and notifies listeners. Safe to
// call when nobody is signed in.
func (p *AccountProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	wasSignedIn := p.current != nil
	p.current = nil
	p.currentToken = ""
	p.mu.Unlock()

	if wasSignedIn {
		p.emit(AuthChange{Event: AuthEventSignedOut})
	}

	return nil
}

// Refresh re-issues a token for the current identity and notifies
// listeners with a token_refreshed event.
func (p *AccountProvider) Refresh(ctx context.Context) (Identity, error) {
	p.mu.RLock()
	current := p.current
	p.mu.RUnlock()

	if current == nil {
		return nil, goerrors.New("no identity to refresh", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized)
	}

	return p.issue(ctx, current.ID(), current.Email(), AuthEventTokenRefreshed)
}

// CurrentIdentity returns the persisted credential, if any. A
// persisted token is validated lazily on first call; a bad token means
// the visitor starts signed out, never an error that blocks startup.
func (p *AccountProvider) CurrentIdentity(ctx context.Context) (Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current != nil {
		return p.current, nil
	}

	if p.persistedToken == "" {
		return nil, nil
	}

	raw := p.persistedToken
	p.persistedToken = ""

	identity, err := p.tokens.IdentityFromToken(raw)
	if err != nil {
		p.logger.Warn("persisted token rejected", "error", err)
		return nil, nil
	}

	if !identity.ExpiresAt().IsZero() && identity.ExpiresAt().Before(time.Now()) {
		return nil, nil
	}

	p.current = identity
	p.currentToken = raw

	return identity, nil
}

// CurrentToken returns the raw token backing the current identity, for
// cookie storage. Empty when signed out.
func (p *AccountProvider) CurrentToken() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.currentToken
}

// OnAuthStateChange registers a listener for sign-in, sign-out and
// token refresh events.
func (p *AccountProvider) OnAuthStateChange(listener AuthChangeListener) Unsubscribe {
	if listener == nil {
		return func() {}
	}

	p.listenerMu.Lock()
	id := p.nextListener
	p.nextListener++
	p.listeners[id] = listener
	p.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.listenerMu.Lock()
			delete(p.listeners, id)
			p.listenerMu.Unlock()
		})
	}
}

func (p *AccountProvider) issue(ctx context.Context, id, email string, event AuthEventType) (Identity, error) {
	accountID, err := parsePortalUUID(id)
	if err != nil {
		return nil, err
	}

	raw, err := p.tokens.Generate(accountID, email)
	if err != nil {
		return nil, err
	}

	identity, err := p.tokens.IdentityFromToken(raw)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.current = identity
	p.currentToken = raw
	p.mu.Unlock()

	p.emit(AuthChange{Event: event, Identity: identity})

	return identity, nil
}

func (p *AccountProvider) emit(change AuthChange) {
	p.listenerMu.Lock()
	listeners := make([]AuthChangeListener, 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.listenerMu.Unlock()

	for _, listener := range listeners {
		listener(change)
	}
}

func (p *AccountProvider) signInFailure(ctx context.Context, email string, cause error) {
	p.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSignInFailure,
		Metadata:  map[string]any{"email": email, "error": cause.Error()},
	})
}

func (p *AccountProvider) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	sink := normalizeActivitySink(p.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		p.logger.Warn("account provider activity sink error: %v", err)
	}
}
