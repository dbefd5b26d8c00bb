// Package models defines the auth module's stored and wire types.
package models

import (
	"time"

	ratemodels "ninefold/internal/ratelimit/models"
)

// APIKey is the stored form of an issued key. Only the bcrypt hash of the
// secret is kept; the plaintext is shown once at mint time.
type APIKey struct {
	KeyID      string          `json:"key_id"`
	CallerID   string          `json:"caller_id"`
	Tier       ratemodels.Tier `json:"tier"`
	SecretHash string          `json:"-"`
	CreatedAt  time.Time       `json:"created_at"`
}

// MintedKey is returned once when a key is created.
type MintedKey struct {
	KeyID     string          `json:"key_id"`
	CallerID  string          `json:"caller_id"`
	Tier      ratemodels.Tier `json:"tier"`
	Plaintext string          `json:"api_key"`
}

// TokenResponse is the POST /v1/auth/token payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Tier        string `json:"tier"`
}
