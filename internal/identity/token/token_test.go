package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certledger/internal/identity/models"
	dErrors "certledger/pkg/domain-errors"
)

const testKey = "test-signing-key-for-unit-tests"

func TestIssueAndValidate(t *testing.T) {
	svc := New(testKey, time.Hour)

	tokenString, expiresAt, err := svc.Issue("alice", models.RoleIssuer)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, string(models.RoleIssuer), claims.Role)
	assert.Equal(t, "certledger", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenReturnsSubject(t *testing.T) {
	svc := New(testKey, time.Hour)

	tokenString, _, err := svc.Issue("bob", models.RoleUser)
	require.NoError(t, err)

	subject, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "bob", subject)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := New(testKey, -time.Minute)

	tokenString, _, err := svc.Issue("alice", models.RoleUser)
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsWrongKey(t *testing.T) {
	issuing := New(testKey, time.Hour)
	validating := New("a-different-signing-key", time.Hour)

	tokenString, _, err := issuing.Issue("alice", models.RoleUser)
	require.NoError(t, err)

	_, err = validating.Validate(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := New(testKey, time.Hour)

	_, err := svc.Validate("not-a-jwt")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidateRejectsMissingSubject(t *testing.T) {
	svc := New(testKey, time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(models.RoleUser),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "certledger",
		},
	})
	tokenString, err := unsigned.SignedString([]byte(testKey))
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing subject")
}

func TestValidateRejectsNonHMACAlgorithm(t *testing.T) {
	svc := New(testKey, time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "alice",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestTTLAccessor(t *testing.T) {
	svc := New(testKey, 3000*time.Minute)
	assert.Equal(t, 3000*time.Minute, svc.TTL())
}
