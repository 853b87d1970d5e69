package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "creditbridge/pkg/domain-errors"
)

func newTestService() *Service {
	return NewService("test-signing-key", "creditbridge", "creditbridge-ops")
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateOperatorToken("ops@example.com", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Operator)
	assert.Equal(t, "admin", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestValidate_Expired(t *testing.T) {
	svc := newTestService()

	token, err := svc.GenerateOperatorToken("ops@example.com", "admin", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_WrongKey(t *testing.T) {
	token, err := newTestService().GenerateOperatorToken("ops@example.com", "admin", time.Hour)
	require.NoError(t, err)

	other := NewService("different-key", "creditbridge", "creditbridge-ops")
	_, err = other.ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_WrongAudience(t *testing.T) {
	issuer := NewService("test-signing-key", "creditbridge", "somewhere-else")
	token, err := issuer.GenerateOperatorToken("ops@example.com", "admin", time.Hour)
	require.NoError(t, err)

	_, err = newTestService().ValidateToken(token)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestValidate_Garbage(t *testing.T) {
	_, err := newTestService().ValidateToken("not-a-token")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
