package jwttoken

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "ninefold/pkg/domain-errors"
)

func newTestService() *Service {
	return New("test-signing-key-32-bytes-long!!", "ninefold", "ninefold-api")
}

func TestGenerateAndValidate(t *testing.T) {
	s := newTestService()

	token, expiresAt, err := s.Generate("caller-1", "premium", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "caller-1", claims.CallerID)
	assert.Equal(t, "premium", claims.Tier)
	assert.Equal(t, "ninefold", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateExpiredToken(t *testing.T) {
	s := newTestService()

	token, _, err := s.Generate("caller-1", "free", -time.Minute)
	require.NoError(t, err)

	_, err = s.Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateWrongKey(t *testing.T) {
	issued, _, err := newTestService().Generate("caller-1", "free", time.Hour)
	require.NoError(t, err)

	other := New("another-signing-key-entirely!!!!", "ninefold", "ninefold-api")
	_, err = other.Validate(issued)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateWrongIssuer(t *testing.T) {
	foreign := New("test-signing-key-32-bytes-long!!", "someone-else", "ninefold-api")
	token, _, err := foreign.Generate("caller-1", "free", time.Hour)
	require.NoError(t, err)

	_, err = newTestService().Validate(token)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestValidateGarbage(t *testing.T) {
	_, err := newTestService().Validate("not-a-token")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
