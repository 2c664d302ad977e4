package portal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	portal "github.com/shretimanegi/grad-together-now"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newAuthContext(t *testing.T, provider *fakeProvider, finder portal.ProfileFinder, opts ...portal.AuthContextOption) (*portal.AuthContext, *portal.SessionStore) {
	t.Helper()

	store := portal.NewSessionStore(provider)
	t.Cleanup(store.Close)

	require.NoError(t, store.Initialize(context.Background()))

	resolver := portal.NewRoleResolver(finder,
		portal.WithRoleResolverRetries(0, 0))

	return portal.NewAuthContext(store, resolver, provider, opts...), store
}

func TestAuthContextCurrentIdentity(t *testing.T) {
	identity := newFakeIdentity("u1")
	provider := &fakeProvider{current: identity}

	authCtx, _ := newAuthContext(t, provider, new(MockProfileFinder))

	require.NotNil(t, authCtx.CurrentIdentity())
	assert.Equal(t, "u1", authCtx.CurrentIdentity().ID())
	assert.False(t, authCtx.IsLoading())
	assert.True(t, authCtx.Session().Authenticated())
}

func TestAuthContextSignOut(t *testing.T) {
	identity := newFakeIdentity("u1")
	provider := &fakeProvider{current: identity}
	sink := &captureSink{}

	authCtx, store := newAuthContext(t, provider, new(MockProfileFinder),
		portal.WithAuthContextActivitySink(sink))

	require.NoError(t, authCtx.SignOut(context.Background()))

	assert.Nil(t, authCtx.CurrentIdentity())
	assert.Equal(t, portal.SessionReady, store.Current().Status)

	events := sink.Types()
	require.Len(t, events, 1)
	assert.Equal(t, portal.ActivityEventSignOut, events[0])
}

func TestAuthContextSignOutIsIdempotent(t *testing.T) {
	identity := newFakeIdentity("u1")
	provider := &fakeProvider{current: identity}

	signOutCalls := 0
	provider.signOut = func(ctx context.Context) error {
		signOutCalls++
		provider.mu.Lock()
		provider.current = nil
		provider.mu.Unlock()
		return nil
	}

	authCtx, _ := newAuthContext(t, provider, new(MockProfileFinder))

	require.NoError(t, authCtx.SignOut(context.Background()))
	require.NoError(t, authCtx.SignOut(context.Background()))
	require.NoError(t, authCtx.SignOut(context.Background()))

	// only the first call reaches the provider
	assert.Equal(t, 1, signOutCalls)
	assert.Nil(t, authCtx.CurrentIdentity())
}

func TestAuthContextSignOutProviderFailure(t *testing.T) {
	identity := newFakeIdentity("u1")
	provider := &fakeProvider{current: identity}
	provider.signOut = func(ctx context.Context) error {
		return errors.New("provider unreachable")
	}

	authCtx, _ := newAuthContext(t, provider, new(MockProfileFinder))

	err := authCtx.SignOut(context.Background())
	require.Error(t, err)
}

func TestAuthContextResolveCurrentProfile(t *testing.T) {
	identity := newFakeIdentity("u1")
	provider := &fakeProvider{current: identity}

	finder := new(MockProfileFinder)
	finder.On("GetByIdentityID", mock.Anything, "u1").
		Return(testProfile(uuid.NewString(), portal.RoleAdmin), nil)

	authCtx, _ := newAuthContext(t, provider, finder)

	profile, err := authCtx.ResolveCurrentProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, portal.RoleAdmin, profile.Role)
}

func TestAuthContextResolveWithoutIdentity(t *testing.T) {
	provider := &fakeProvider{}
	authCtx, _ := newAuthContext(t, provider, new(MockProfileFinder))

	_, err := authCtx.ResolveCurrentProfile(context.Background())
	require.Error(t, err)
}

func TestAuthContextDiscardsStaleResolution(t *testing.T) {
	first := newFakeIdentity("u-a")
	second := newFakeIdentity("u-b")
	provider := &fakeProvider{current: first}

	finder := new(MockProfileFinder)
	finder.On("GetByIdentityID", mock.Anything, "u-a").
		Run(func(args mock.Arguments) {
			// the session changes while u-a's lookup is in flight
			provider.Emit(portal.AuthChange{Event: portal.AuthEventSignedIn, Identity: second})
		}).
		Return(testProfile(uuid.NewString(), portal.RoleAlumni), nil)

	authCtx, _ := newAuthContext(t, provider, finder)

	_, err := authCtx.ResolveCurrentProfile(context.Background())
	require.Error(t, err)
	assert.True(t, portal.IsStaleResolution(err))

	// the new identity resolves normally
	finder.On("GetByIdentityID", mock.Anything, "u-b").
		Return(testProfile(uuid.NewString(), portal.RoleStudent), nil)

	profile, err := authCtx.ResolveCurrentProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, portal.RoleStudent, profile.Role)
}

func TestAuthContextSubscribe(t *testing.T) {
	provider := &fakeProvider{}
	authCtx, _ := newAuthContext(t, provider, new(MockProfileFinder))

	var seen []portal.Session
	unsubscribe := authCtx.Subscribe(func(s portal.Session) {
		seen = append(seen, s)
	})
	defer unsubscribe()

	provider.Emit(portal.AuthChange{
		Event:    portal.AuthEventSignedIn,
		Identity: fakeIdentity{id: "u1", email: "u1@example.com", iat: time.Now(), exp: time.Now().Add(time.Hour)},
	})

	require.Len(t, seen, 1)
	assert.True(t, seen[0].Authenticated())
}
