package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediavault/internal/models"
)

type ModerationRepository struct {
	pool *pgxpool.Pool
}

func NewModerationRepository(pool *pgxpool.Pool) *ModerationRepository {
	return &ModerationRepository{pool: pool}
}

// AddBlockedHash appends a confirmed-unsafe content hash. The table is
// append-only; a duplicate hash from a re-upload is silently absorbed.
func (r *ModerationRepository) AddBlockedHash(ctx context.Context, blocked models.BlockedHash) error {
	const query = `
		INSERT INTO blocked_hashes (
			hash_value, hash_type, detected_type, source_type, detected_by, file_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (hash_value, hash_type) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		blocked.HashValue,
		blocked.HashType,
		blocked.DetectedType,
		blocked.SourceType,
		blocked.DetectedBy,
		blocked.FileKey,
	)
	return err
}

// RestrictUser bars a user from future uploads. Idempotent.
func (r *ModerationRepository) RestrictUser(ctx context.Context, userID string) error {
	const query = `
		INSERT INTO user_restrictions (user_id, reason, created_at)
		VALUES ($1, 'unsafe_upload', NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}
