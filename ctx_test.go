package portal_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	portal "github.com/shretimanegi/grad-together-now"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileContext(t *testing.T) {
	ctx := context.Background()

	_, ok := portal.ProfileFromContext(ctx)
	assert.False(t, ok)

	profile := testProfile(uuid.NewString(), portal.RoleAlumni)
	ctx = portal.WithProfileContext(ctx, profile)

	found, ok := portal.ProfileFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, profile, found)

	role, ok := portal.RoleFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, portal.RoleAlumni, role)
}

func TestRoleFromContextMissing(t *testing.T) {
	_, ok := portal.RoleFromContext(context.Background())
	assert.False(t, ok)
}

func TestSessionContext(t *testing.T) {
	ctx := context.Background()

	_, ok := portal.SessionFromContext(ctx)
	assert.False(t, ok)

	session := portal.Session{
		Identity: newFakeIdentity("u1"),
		Status:   portal.SessionReady,
	}
	ctx = portal.WithSessionContext(ctx, session)

	found, ok := portal.SessionFromContext(ctx)
	require.True(t, ok)
	assert.True(t, found.Authenticated())
	assert.Equal(t, "u1", found.Identity.ID())
}

func TestHasIdentityUUID(t *testing.T) {
	assert.False(t, portal.HasIdentityUUID(nil))
	assert.False(t, portal.HasIdentityUUID(newFakeIdentity("not-a-uuid")))
	assert.True(t, portal.HasIdentityUUID(newFakeIdentity(uuid.NewString())))
}
