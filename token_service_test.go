package portal_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	portal "github.com/shretimanegi/grad-together-now"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testSigningKey = []byte("test-signing-key")
	testIssuer     = "grad-together"
	testAudience   = jwt.ClaimStrings{"portal"}
)

func newTestTokenService() portal.TokenService {
	return portal.NewTokenService(testSigningKey, 1, testIssuer, testAudience, nil)
}

func TestTokenServiceRoundTrip(t *testing.T) {
	service := newTestTokenService()

	id := uuid.New()
	raw, err := service.Generate(id, "member@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	claims, err := service.Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UID)
	assert.Equal(t, id.String(), claims.Subject)
	assert.Equal(t, "member@example.com", claims.Email)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID, "token id claim should be set")
}

func TestTokenServiceIdentityFromToken(t *testing.T) {
	service := newTestTokenService()

	id := uuid.New()
	raw, err := service.Generate(id, "member@example.com")
	require.NoError(t, err)

	identity, err := service.IdentityFromToken(raw)
	require.NoError(t, err)
	assert.Equal(t, id.String(), identity.ID())
	assert.Equal(t, "member@example.com", identity.Email())
	assert.False(t, identity.IssuedAt().IsZero())
	assert.True(t, identity.ExpiresAt().After(time.Now()))
}

func TestTokenServiceRejectsExpired(t *testing.T) {
	// negative expiration puts the deadline in the past
	service := portal.NewTokenService(testSigningKey, -1, testIssuer, testAudience, nil)

	raw, err := service.Generate(uuid.New(), "member@example.com")
	require.NoError(t, err)

	_, err = service.Validate(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, portal.ErrTokenExpired)
}

func TestTokenServiceRejectsWrongKey(t *testing.T) {
	service := newTestTokenService()
	other := portal.NewTokenService([]byte("a-different-key"), 1, testIssuer, testAudience, nil)

	raw, err := other.Generate(uuid.New(), "member@example.com")
	require.NoError(t, err)

	_, err = service.Validate(raw)
	require.Error(t, err)
}

func TestTokenServiceRejectsWrongIssuer(t *testing.T) {
	service := newTestTokenService()
	other := portal.NewTokenService(testSigningKey, 1, "someone-else", testAudience, nil)

	raw, err := other.Generate(uuid.New(), "member@example.com")
	require.NoError(t, err)

	_, err = service.Validate(raw)
	require.Error(t, err)
}

func TestTokenServiceRejectsGarbage(t *testing.T) {
	service := newTestTokenService()

	_, err := service.Validate("not-a-token")
	require.Error(t, err)

	_, err = service.IdentityFromToken("")
	require.Error(t, err)
}

func TestTokenServiceRejectsUnsignedToken(t *testing.T) {
	service := newTestTokenService()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": uuid.NewString(),
		"iss": testIssuer,
		"aud": "portal",
	})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = service.Validate(raw)
	require.Error(t, err)
}
