package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ninefold/internal/decisions/models"
)

// Schema creates the routing decisions table. Applied by the operator or the
// integration test harness; the store itself never migrates.
const Schema = `
CREATE TABLE IF NOT EXISTS routing_decisions (
    id            TEXT PRIMARY KEY,
    request_id    TEXT NOT NULL,
    caller_id     TEXT NOT NULL,
    query         TEXT NOT NULL,
    domains       TEXT[] NOT NULL,
    specialists   TEXT[] NOT NULL,
    dropped       TEXT[] NOT NULL DEFAULT '{}',
    reasoning     TEXT NOT NULL DEFAULT '',
    confidence    DOUBLE PRECISION NOT NULL,
    cache_hit     BOOLEAN NOT NULL,
    degraded      BOOLEAN NOT NULL,
    used_fallback BOOLEAN NOT NULL,
    latency_ms    BIGINT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS routing_decisions_created_at_idx
    ON routing_decisions (created_at DESC);
`

// PostgresStore persists decisions for deployments that need history to
// survive restarts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, d models.Decision) error {
	const q = `
        INSERT INTO routing_decisions
            (id, request_id, caller_id, query, domains, specialists, dropped,
             reasoning, confidence, cache_hit, degraded, used_fallback, latency_ms, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := s.db.ExecContext(ctx, q,
		d.ID, d.RequestID, d.CallerID, d.Query,
		pq.Array(d.Domains), pq.Array(d.Specialists), pq.Array(d.Dropped),
		d.Reasoning, d.Confidence, d.CacheHit, d.Degraded, d.UsedFallback, d.LatencyMS, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert routing decision: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]models.Decision, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
        SELECT id, request_id, caller_id, query, domains, specialists, dropped,
               reasoning, confidence, cache_hit, degraded, used_fallback, latency_ms, created_at
        FROM routing_decisions
        ORDER BY created_at DESC
        LIMIT $1`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query routing decisions: %w", err)
	}
	defer rows.Close()

	var out []models.Decision
	for rows.Next() {
		var (
			d         models.Decision
			createdAt time.Time
		)
		if err := rows.Scan(
			&d.ID, &d.RequestID, &d.CallerID, &d.Query,
			pq.Array(&d.Domains), pq.Array(&d.Specialists), pq.Array(&d.Dropped),
			&d.Reasoning, &d.Confidence, &d.CacheHit, &d.Degraded, &d.UsedFallback, &d.LatencyMS, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan routing decision: %w", err)
		}
		d.CreatedAt = createdAt
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate routing decisions: %w", err)
	}
	return out, nil
}
