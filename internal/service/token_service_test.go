package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-api/internal/models"
	appErrors "github.com/noah-isme/lms-api/pkg/errors"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "idp"})
	signed, err := tokens.Issue(studentS1, time.Minute)
	require.NoError(t, err)

	claims, err := tokens.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, studentS1, claims.Identity())
}

func TestTokenValidationFailures(t *testing.T) {
	tokens := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "idp"})

	expired, err := tokens.Issue(studentS1, -time.Minute)
	require.NoError(t, err)
	_, err = tokens.ValidateToken(expired)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	foreign, err := NewTokenService(TokenConfig{Secret: "other", Issuer: "idp"}).Issue(studentS1, time.Minute)
	require.NoError(t, err)
	_, err = tokens.ValidateToken(foreign)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	wrongIssuer, err := NewTokenService(TokenConfig{Secret: "s3cret", Issuer: "elsewhere"}).Issue(studentS1, time.Minute)
	require.NoError(t, err)
	_, err = tokens.ValidateToken(wrongIssuer)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))

	_, err = tokens.ValidateToken("not-a-jwt")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenWithoutIdentityIsRejected(t *testing.T) {
	tokens := NewTokenService(TokenConfig{Secret: "s3cret"})
	claims := &models.JWTClaims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	_, err = tokens.ValidateToken(signed)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenWithSeparatorInUserIDIsRejected(t *testing.T) {
	tokens := NewTokenService(TokenConfig{Secret: "s3cret"})
	signed, err := tokens.Issue(models.Identity{ID: "S1:course-9", Role: models.RoleStudent}, time.Minute)
	require.NoError(t, err)

	_, err = tokens.ValidateToken(signed)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
