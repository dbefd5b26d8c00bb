// Package store persists routing decisions.
package store

import (
	"context"

	"ninefold/internal/decisions/models"
)

// Store keeps a bounded history of routing decisions, newest first.
type Store interface {
	Append(ctx context.Context, decision models.Decision) error
	Recent(ctx context.Context, limit int) ([]models.Decision, error)
}
