package portal_test

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	portal "github.com/shretimanegi/grad-together-now"
	"github.com/stretchr/testify/mock"
)

// fakeIdentity implements portal.Identity
type fakeIdentity struct {
	id    string
	email string
	iat   time.Time
	exp   time.Time
}

func (f fakeIdentity) ID() string           { return f.id }
func (f fakeIdentity) Email() string        { return f.email }
func (f fakeIdentity) IssuedAt() time.Time  { return f.iat }
func (f fakeIdentity) ExpiresAt() time.Time { return f.exp }

func newFakeIdentity(id string) fakeIdentity {
	return fakeIdentity{
		id:    id,
		email: id + "@example.com",
		iat:   time.Now(),
		exp:   time.Now().Add(time.Hour),
	}
}

// fakeProvider is a controllable portal.IdentityProvider
type fakeProvider struct {
	mu        sync.Mutex
	current   portal.Identity
	currentFn func(ctx context.Context) (portal.Identity, error)
	signOut   func(ctx context.Context) error

	listeners []portal.AuthChangeListener
}

func (f *fakeProvider) SignUp(ctx context.Context, email, password string, meta portal.SignUpMetadata) (portal.Identity, error) {
	return nil, nil
}

func (f *fakeProvider) SignInWithPassword(ctx context.Context, email, password string) (portal.Identity, error) {
	return nil, nil
}

func (f *fakeProvider) SignOut(ctx context.Context) error {
	if f.signOut != nil {
		return f.signOut(ctx)
	}
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
	return nil
}

func (f *fakeProvider) CurrentIdentity(ctx context.Context) (portal.Identity, error) {
	if f.currentFn != nil {
		return f.currentFn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeProvider) OnAuthStateChange(listener portal.AuthChangeListener) portal.Unsubscribe {
	f.mu.Lock()
	f.listeners = append(f.listeners, listener)
	f.mu.Unlock()
	return func() {}
}

// Emit pushes a change event to every registered listener, the way the
// real provider does after sign-in or sign-out.
func (f *fakeProvider) Emit(change portal.AuthChange) {
	f.mu.Lock()
	if change.Event == portal.AuthEventSignedOut {
		f.current = nil
	} else {
		f.current = change.Identity
	}
	listeners := make([]portal.AuthChangeListener, len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.Unlock()

	for _, l := range listeners {
		l(change)
	}
}

// MockProfileFinder implements portal.ProfileFinder
type MockProfileFinder struct {
	mock.Mock
}

func (m *MockProfileFinder) GetByIdentityID(ctx context.Context, identityID string) (*portal.Profile, error) {
	args := m.Called(ctx, identityID)
	if profile, ok := args.Get(0).(*portal.Profile); ok {
		return profile, args.Error(1)
	}
	return nil, args.Error(1)
}

// captureSink records every activity event it receives
type captureSink struct {
	mu     sync.Mutex
	events []portal.ActivityEvent
}

func (c *captureSink) Record(ctx context.Context, event portal.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *captureSink) Events() []portal.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]portal.ActivityEvent, len(c.events))
	copy(out, c.events)
	return out
}

func (c *captureSink) Types() []portal.ActivityEventType {
	out := []portal.ActivityEventType{}
	for _, e := range c.Events() {
		out = append(out, e.EventType)
	}
	return out
}

// testConfig implements portal.Config
type testConfig struct {
	signingKey      string
	contextKey      string
	tokenExpiration int
	issuer          string
	audience        []string
	rejectedKey     string
	rejectedDefault string
	signInRoute     string
}

func newTestConfig() testConfig {
	return testConfig{
		signingKey:      "test-signing-key",
		contextKey:      "portal_token",
		tokenExpiration: 1,
		issuer:          "grad-together",
		audience:        []string{"portal"},
		rejectedKey:     "rejected_route",
		rejectedDefault: "/",
		signInRoute:     "/auth",
	}
}

func (c testConfig) GetSigningKey() string           { return c.signingKey }
func (c testConfig) GetContextKey() string           { return c.contextKey }
func (c testConfig) GetTokenExpiration() int         { return c.tokenExpiration }
func (c testConfig) GetIssuer() string               { return c.issuer }
func (c testConfig) GetAudience() []string           { return c.audience }
func (c testConfig) GetRejectedRouteKey() string     { return c.rejectedKey }
func (c testConfig) GetRejectedRouteDefault() string { return c.rejectedDefault }
func (c testConfig) GetSignInRoute() string          { return c.signInRoute }

// MockRouterContext mocks router.Context
type MockRouterContext struct {
	mock.Mock
	NextCalled bool
}

func (m *MockRouterContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *MockRouterContext) Context() context.Context {
	args := m.Called()
	c, ok := args.Get(0).(context.Context)
	if !ok {
		panic("arg needs to be context.Context")
	}
	return c
}

func (m *MockRouterContext) SetContext(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockRouterContext) Path() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRouterContext) Method() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRouterContext) Body() []byte {
	args := m.Called()
	return args.Get(0).([]byte)
}

func (m *MockRouterContext) Status(code int) router.Context {
	m.Called(code)
	return m
}

func (m *MockRouterContext) SendString(s string) error {
	args := m.Called(s)
	return args.Error(0)
}

func (m *MockRouterContext) Send(b []byte) error {
	args := m.Called(b)
	return args.Error(0)
}

func (m *MockRouterContext) JSON(code int, val any) error {
	args := m.Called(code, val)
	return args.Error(0)
}

func (m *MockRouterContext) NoContent(code int) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockRouterContext) Render(name string, bind any, layout ...string) error {
	if len(layout) > 0 {
		args := m.Called(name, bind, layout[0])
		return args.Error(0)
	}
	args := m.Called(name, bind)
	return args.Error(0)
}

func (m *MockRouterContext) Redirect(path string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(path, status)
		return args.Error(0)
	}
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockRouterContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	if len(status) > 0 {
		args := m.Called(name, data, status[0])
		return args.Error(0)
	}
	args := m.Called(name, data)
	return args.Error(0)
}

func (m *MockRouterContext) RedirectBack(fallback string, status ...int) error {
	if len(status) > 0 {
		args := m.Called(fallback, status)
		return args.Error(0)
	}
	args := m.Called(fallback)
	return args.Error(0)
}

func (m *MockRouterContext) SetHeader(key, val string) router.Context {
	m.Called(key, val)
	return m
}

func (m *MockRouterContext) Header(key string) string {
	args := m.Called(key)
	return args.String(0)
}

func (m *MockRouterContext) Get(key string, defaultValue any) any {
	args := m.Called(key, defaultValue)
	return args.Get(0)
}

func (m *MockRouterContext) GetBool(key string, defaultValue bool) bool {
	args := m.Called(key, defaultValue)
	return args.Bool(0)
}

func (m *MockRouterContext) GetInt(key string, def int) int {
	args := m.Called(key, def)
	return args.Int(0)
}

func (m *MockRouterContext) Set(key string, val any) {
	m.Called(key, val)
}

func (m *MockRouterContext) Bind(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockRouterContext) BindJSON(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockRouterContext) BindXML(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockRouterContext) BindQuery(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockRouterContext) CookieParser(i any) error {
	args := m.Called(i)
	return args.Error(0)
}

func (m *MockRouterContext) Cookie(cookie *router.Cookie) {
	m.Called(cookie)
}

func (m *MockRouterContext) Cookies(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockRouterContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		args := m.Called(key, defaultValue[0])
		return args.String(0)
	}
	args := m.Called(key)
	return args.String(0)
}

func (m *MockRouterContext) ParamsInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockRouterContext) Query(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockRouterContext) QueryInt(key string, defaultValue int) int {
	args := m.Called(key, defaultValue)
	return args.Int(0)
}

func (m *MockRouterContext) Queries() map[string]string {
	args := m.Called()
	return args.Get(0).(map[string]string)
}

func (m *MockRouterContext) GetString(key string, defaultValue string) string {
	args := m.Called(key, defaultValue)
	return args.String(0)
}

func (m *MockRouterContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.Called(key, value[0])
		return nil
	}
	args := m.Called(key)
	return args.Get(0)
}

func (m *MockRouterContext) OriginalURL() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockRouterContext) OnNext(callback func() error) {
	m.Called(callback)
}

func (m *MockRouterContext) Referer() string {
	args := m.Called()
	return args.String(0)
}
