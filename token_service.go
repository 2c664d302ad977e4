package portal

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// IdentityClaims is the claim set carried by portal identity tokens.
// Role is deliberately absent: roles live on the Profile and are
// resolved per page visit, so a role change never outlives a token.
type IdentityClaims struct {
	jwt.RegisteredClaims
	UID   string `json:"uid,omitempty"`
	Email string `json:"email,omitempty"`
}

// TokenService mints and validates identity tokens.
type TokenService interface {
	Generate(id uuid.UUID, email string) (string, error)
	Validate(raw string) (*IdentityClaims, error)
	IdentityFromToken(raw string) (Identity, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey      []byte
	tokenExpiration int
	issuer          string
	audience        jwt.ClaimStrings
	logger          Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, tokenExpiration int, issuer string, audience jwt.ClaimStrings, logger Logger) TokenService {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey:      signingKey,
		tokenExpiration: tokenExpiration,
		issuer:          issuer,
		audience:        audience,
		logger:          logger,
	}
}

// Generate creates an identity token for the given account
func (ts *TokenServiceImpl) Generate(id uuid.UUID, email string) (string, error) {
	now := time.Now()

	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	claims := &IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   id.String(),
			Audience:  aud,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ts.tokenExpiration) * time.Hour)),
		},
		UID:   id.String(),
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign identity token")
	}

	return signedString, nil
}

// Validate parses and validates a raw token, returning its claims
func (ts *TokenServiceImpl) Validate(raw string) (*IdentityClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(raw, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token service encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if claims, ok := token.Claims.(*IdentityClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("token service could not decode or validate claims")
	return nil, ErrTokenMalformed
}

// IdentityFromToken validates a raw token and returns the Identity it
// carries. The returned Identity is cleared on sign-out or expiry.
func (ts *TokenServiceImpl) IdentityFromToken(raw string) (Identity, error) {
	claims, err := ts.Validate(raw)
	if err != nil {
		return nil, err
	}
	return identityFromClaims(claims), nil
}

// tokenIdentity is the Identity view over validated claims
type tokenIdentity struct {
	id        string
	email     string
	issuedAt  time.Time
	expiresAt time.Time
}

var _ Identity = tokenIdentity{}

func (t tokenIdentity) ID() string           { return t.id }
func (t tokenIdentity) Email() string        { return t.email }
func (t tokenIdentity) IssuedAt() time.Time  { return t.issuedAt }
func (t tokenIdentity) ExpiresAt() time.Time { return t.expiresAt }

func identityFromClaims(claims *IdentityClaims) Identity {
	ident := tokenIdentity{
		email: claims.Email,
	}

	if claims.UID != "" {
		ident.id = claims.UID
	} else {
		ident.id = claims.Subject
	}

	if claims.IssuedAt != nil {
		ident.issuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ident.expiresAt = claims.ExpiresAt.Time
	}

	return ident
}
