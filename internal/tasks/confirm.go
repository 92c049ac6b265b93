package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mediavault/internal/models"
)

type JobLoader interface {
	GetByID(ctx context.Context, id string) (models.MediaJob, error)
	SetStatus(ctx context.Context, id string, status models.JobStatus) error
}

type URLSigner interface {
	PresignedReadURL(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

type Enqueuer interface {
	Enqueue(job models.MediaJob)
}

// ConfirmProcessor turns stream confirmations into batch-queue admissions.
// This is the ingest path for confirmations published by other services;
// the HTTP confirm endpoint feeds the same queue directly.
type ConfirmProcessor struct {
	jobs   JobLoader
	signer URLSigner
	queue  Enqueuer

	staging string
	urlTTL  time.Duration
	logger  zerolog.Logger
}

func NewConfirmProcessor(jobs JobLoader, signer URLSigner, queue Enqueuer, staging string, urlTTL time.Duration, logger zerolog.Logger) *ConfirmProcessor {
	return &ConfirmProcessor{
		jobs:    jobs,
		signer:  signer,
		queue:   queue,
		staging: staging,
		urlTTL:  urlTTL,
		logger:  logger,
	}
}

func (p *ConfirmProcessor) Handle(ctx context.Context, msg redis.XMessage) error {
	jobID, _ := msg.Values["job_id"].(string)
	if jobID == "" {
		// Malformed message; ack it rather than redeliver forever.
		p.logger.Warn().Str("message_id", msg.ID).Msg("confirmation without job_id, dropped")
		return nil
	}

	job, err := p.jobs.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	switch job.Status {
	case models.JobStatusComplete:
		p.logger.Debug().Str("job_id", jobID).Msg("confirmation for completed job, ignored")
		return nil
	case models.JobStatusAwaitingUpload:
		if err := p.jobs.SetStatus(ctx, jobID, models.JobStatusPending); err != nil {
			return fmt.Errorf("mark pending %s: %w", jobID, err)
		}
		job.Status = models.JobStatusPending
	case models.JobStatusPending:
		// Already confirmed; re-admission is harmless at-least-once.
	default:
		return errors.New("unknown job status " + string(job.Status))
	}

	url, err := p.signer.PresignedReadURL(ctx, p.staging, job.FileName, p.urlTTL)
	if err != nil {
		return fmt.Errorf("presign %s: %w", jobID, err)
	}
	job.URL = url

	p.queue.Enqueue(job)
	return nil
}
