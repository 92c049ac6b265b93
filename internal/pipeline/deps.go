package pipeline

import (
	"context"
	"time"

	"mediavault/internal/models"
)

// Collaborator contracts, defined here so the pipeline can be exercised
// against fakes. Satisfied by the repository and storage packages.

type JobStore interface {
	GetPendingJobs(ctx context.Context) ([]models.MediaJob, error)
	MarkComplete(ctx context.Context, ids []string) error
}

type MediaStore interface {
	CreateMediaItem(ctx context.Context, item models.MediaItem) (string, error)
}

type ModerationStore interface {
	AddBlockedHash(ctx context.Context, blocked models.BlockedHash) error
	RestrictUser(ctx context.Context, userID string) error
}

type AuditLog interface {
	Append(ctx context.Context, event models.AuditEvent) error
}

type ObjectMover interface {
	Move(ctx context.Context, fromBucket, fromKey, toBucket, toKey string) error
}

type URLSigner interface {
	PresignedReadURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

type Enqueuer interface {
	Enqueue(job models.MediaJob)
}
