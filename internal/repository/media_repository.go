package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"mediavault/internal/ids"
	"mediavault/internal/models"
)

var ErrIncompleteMetadata = errors.New("media item missing dimensions or duration")

type MediaRepository struct {
	pool *pgxpool.Pool
}

func NewMediaRepository(pool *pgxpool.Pool) *MediaRepository {
	return &MediaRepository{pool: pool}
}

// CreateMediaItem persists the permanent record for approved content.
// Dimensions are mandatory; duration is mandatory for video.
func (r *MediaRepository) CreateMediaItem(ctx context.Context, item models.MediaItem) (string, error) {
	if item.Width <= 0 || item.Height <= 0 {
		return "", ErrIncompleteMetadata
	}
	if strings.HasPrefix(item.MimeType, "video/") && item.DurationSeconds <= 0 {
		return "", ErrIncompleteMetadata
	}

	if item.ID == "" {
		item.ID = ids.New()
	}

	const query = `
		INSERT INTO media_items (
			id, job_id, user_id, bucket, object_key, mime_type, size_bytes,
			width, height, duration_seconds, sha256_hash,
			linked_to_id, linked_to_type, moderation_status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	`
	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.JobID,
		item.UserID,
		item.Bucket,
		item.ObjectKey,
		item.MimeType,
		item.SizeBytes,
		item.Width,
		item.Height,
		item.DurationSeconds,
		item.SHA256Hash,
		item.LinkedToID,
		item.LinkedToType,
		item.ModerationStatus,
	)
	if err != nil {
		return "", err
	}
	return item.ID, nil
}

func (r *MediaRepository) List(ctx context.Context, limit, offset int) ([]models.MediaItem, error) {
	const query = `
		SELECT id, job_id, user_id, bucket, object_key, mime_type, size_bytes,
		       width, height, duration_seconds, sha256_hash,
		       linked_to_id, linked_to_type, moderation_status, created_at
		FROM media_items
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MediaItem
	for rows.Next() {
		var item models.MediaItem
		if err := rows.Scan(
			&item.ID,
			&item.JobID,
			&item.UserID,
			&item.Bucket,
			&item.ObjectKey,
			&item.MimeType,
			&item.SizeBytes,
			&item.Width,
			&item.Height,
			&item.DurationSeconds,
			&item.SHA256Hash,
			&item.LinkedToID,
			&item.LinkedToType,
			&item.ModerationStatus,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
