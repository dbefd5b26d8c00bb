// Package apikey stores issued API keys.
package apikey

import (
	"context"

	"ninefold/internal/auth/models"
)

// Store persists API keys. A lookup miss returns sentinel.ErrNotFound.
type Store interface {
	Save(ctx context.Context, key models.APIKey) error
	FindByKeyID(ctx context.Context, keyID string) (models.APIKey, error)
	Delete(ctx context.Context, keyID string) error
}
