package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ninefold/internal/auth/store/apikey"
	jwttoken "ninefold/internal/jwt_token"
	ratemodels "ninefold/internal/ratelimit/models"
	dErrors "ninefold/pkg/domain-errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	tokens := jwttoken.New("test-signing-key-32-bytes-long!!", "ninefold", "ninefold-api")
	return New(apikey.NewInMemory(), tokens, time.Hour, slog.New(slog.DiscardHandler))
}

func TestMintAndVerifyKey(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	minted, err := s.MintKey(ctx, "caller-1", ratemodels.TierBeta)
	require.NoError(t, err)
	require.NotEmpty(t, minted.Plaintext)

	callerID, tier, err := s.VerifyKey(ctx, minted.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, "caller-1", callerID)
	assert.Equal(t, ratemodels.TierBeta, tier)
}

func TestVerifyKeyWrongSecret(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	minted, err := s.MintKey(ctx, "caller-1", ratemodels.TierFree)
	require.NoError(t, err)

	_, _, err = s.VerifyKey(ctx, minted.KeyID+".not-the-secret")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestVerifyKeyUnknownKeyID(t *testing.T) {
	s := newTestService(t)

	_, _, err := s.VerifyKey(context.Background(), "nope.whatever")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestVerifyKeyMalformed(t *testing.T) {
	s := newTestService(t)

	for _, raw := range []string{"", "no-separator", ".secret", "keyid."} {
		_, _, err := s.VerifyKey(context.Background(), raw)
		require.Error(t, err, "raw %q", raw)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	}
}

func TestMintTokenRoundTrip(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	minted, err := s.MintKey(ctx, "caller-1", ratemodels.TierPremium)
	require.NoError(t, err)

	resp, err := s.MintToken(ctx, minted.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "premium", resp.Tier)
	assert.Positive(t, resp.ExpiresIn)

	callerID, tier, err := s.VerifyToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "caller-1", callerID)
	assert.Equal(t, ratemodels.TierPremium, tier)
}

func TestMintTokenRejectsBadKey(t *testing.T) {
	s := newTestService(t)

	_, err := s.MintToken(context.Background(), "bad.key")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}

func TestVerifyTokenRejectsTampered(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	minted, err := s.MintKey(ctx, "caller-1", ratemodels.TierFree)
	require.NoError(t, err)
	resp, err := s.MintToken(ctx, minted.Plaintext)
	require.NoError(t, err)

	_, _, err = s.VerifyToken(ctx, resp.AccessToken+"x")
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
}
