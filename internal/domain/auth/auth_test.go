package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("super-secret")
	require.NoError(t, err)
	assert.NoError(t, CheckPassword(hash, "super-secret"))
	assert.Error(t, CheckPassword(hash, "wrong"))
}

func TestGenerateAndParseToken(t *testing.T) {
	claims := Claims{Role: AdminSubject}
	claims.Subject = AdminSubject
	token, err := GenerateToken("test-secret", claims, time.Now(), time.Hour)
	require.NoError(t, err)

	parsed, err := ParseToken("test-secret", token)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, parsed.Subject)
	assert.Equal(t, AdminSubject, parsed.Role)

	_, err = ParseToken("other-secret", token)
	assert.Error(t, err)

	expired, err := GenerateToken("test-secret", claims, time.Now().Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("test-secret", expired)
	assert.Error(t, err)
}

func TestServiceLoginAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	svc := NewService("s3cret", hash, time.Hour)
	require.True(t, svc.Enabled())

	_, err = svc.Login("nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login("")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err := svc.Login("hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	claims, err := svc.Verify(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, AdminSubject, claims.Subject)

	_, err = svc.Verify(tok.AccessToken + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDisabledService(t *testing.T) {
	svc := NewService("", "", 0)
	assert.False(t, svc.Enabled())
	_, err := svc.Login("anything")
	assert.ErrorIs(t, err, ErrDisabled)
	_, err = svc.Verify("token")
	assert.ErrorIs(t, err, ErrDisabled)

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
}
