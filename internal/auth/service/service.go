// Package service implements API key issuance and verification plus the
// key-for-token exchange.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ninefold/internal/auth/models"
	"ninefold/internal/auth/secrets"
	"ninefold/internal/auth/store/apikey"
	jwttoken "ninefold/internal/jwt_token"
	ratemodels "ninefold/internal/ratelimit/models"
	dErrors "ninefold/pkg/domain-errors"
	"ninefold/pkg/platform/sentinel"
)

// Service authenticates callers by API key and exchanges keys for JWTs.
type Service struct {
	keys     apikey.Store
	tokens   *jwttoken.Service
	tokenTTL time.Duration
	logger   *slog.Logger
}

func New(keys apikey.Store, tokens *jwttoken.Service, tokenTTL time.Duration, logger *slog.Logger) *Service {
	return &Service{
		keys:     keys,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// MintKey issues a new API key for a caller. The plaintext is returned once
// and never stored.
func (s *Service) MintKey(ctx context.Context, callerID string, tier ratemodels.Tier) (models.MintedKey, error) {
	secret, err := secrets.Generate()
	if err != nil {
		return models.MintedKey{}, err
	}
	hash, err := secrets.Hash(secret)
	if err != nil {
		return models.MintedKey{}, err
	}

	key := models.APIKey{
		KeyID:      uuid.NewString(),
		CallerID:   callerID,
		Tier:       tier,
		SecretHash: hash,
		CreatedAt:  time.Now(),
	}
	if err := s.keys.Save(ctx, key); err != nil {
		return models.MintedKey{}, err
	}

	s.logger.InfoContext(ctx, "api key minted", "key_id", key.KeyID, "caller_id", callerID, "tier", tier)
	return models.MintedKey{
		KeyID:     key.KeyID,
		CallerID:  callerID,
		Tier:      tier,
		Plaintext: key.KeyID + "." + secret,
	}, nil
}

// VerifyKey resolves a raw "key_id.secret" credential to its caller and tier.
func (s *Service) VerifyKey(ctx context.Context, raw string) (callerID string, tier ratemodels.Tier, err error) {
	keyID, secret, ok := strings.Cut(raw, ".")
	if !ok || keyID == "" || secret == "" {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "malformed api key")
	}

	key, err := s.keys.FindByKeyID(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", "", dErrors.New(dErrors.CodeUnauthorized, "unknown api key")
		}
		return "", "", err
	}
	if err := secrets.Verify(secret, key.SecretHash); err != nil {
		return "", "", dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
	}
	return key.CallerID, key.Tier, nil
}

// MintToken exchanges a valid API key for a short-lived bearer token carrying
// the caller's tier.
func (s *Service) MintToken(ctx context.Context, rawKey string) (models.TokenResponse, error) {
	callerID, tier, err := s.VerifyKey(ctx, rawKey)
	if err != nil {
		return models.TokenResponse{}, err
	}

	token, expiresAt, err := s.tokens.Generate(callerID, tier.String(), s.tokenTTL)
	if err != nil {
		return models.TokenResponse{}, dErrors.Wrap(dErrors.CodeInternal, "could not sign token", err)
	}

	s.logger.InfoContext(ctx, "access token issued", "caller_id", callerID, "tier", tier)
	return models.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		Tier:        tier.String(),
	}, nil
}

// VerifyToken validates a bearer token and returns the caller identity.
func (s *Service) VerifyToken(_ context.Context, tokenString string) (callerID string, tier ratemodels.Tier, err error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return "", "", err
	}
	return claims.CallerID, ratemodels.ParseTier(claims.Tier), nil
}
