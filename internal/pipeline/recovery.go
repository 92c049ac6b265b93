package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/models"
)

// Bootstrap re-admits jobs left pending by a prior process lifetime. It runs
// once from main after the queue is constructed; recovered jobs flow through
// the exact same batching and reconciliation path as live traffic.
type Bootstrap struct {
	jobs    JobStore
	signer  URLSigner
	queue   Enqueuer
	staging string
	urlTTL  time.Duration
	log     zerolog.Logger
}

func NewBootstrap(jobs JobStore, signer URLSigner, queue Enqueuer, staging string, urlTTL time.Duration, log zerolog.Logger) *Bootstrap {
	return &Bootstrap{
		jobs:    jobs,
		signer:  signer,
		queue:   queue,
		staging: staging,
		urlTTL:  urlTTL,
		log:     log,
	}
}

func (b *Bootstrap) Run(ctx context.Context) error {
	pending, err := b.jobs.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("fetch pending jobs: %w", err)
	}

	admitted := b.Requeue(ctx, pending)
	b.log.Info().
		Int("pending", len(pending)).
		Int("admitted", admitted).
		Msg("recovery bootstrap finished")
	return nil
}

// Requeue presigns a fresh read URL for each job and enqueues it. A job
// whose URL cannot be regenerated is skipped and stays pending; the next
// sweep or process start tries again.
func (b *Bootstrap) Requeue(ctx context.Context, jobs []models.MediaJob) int {
	admitted := 0
	for _, job := range jobs {
		url, err := b.signer.PresignedReadURL(ctx, b.staging, job.FileName, b.urlTTL)
		if err != nil {
			b.log.Warn().Err(err).
				Str("job_id", job.ID).
				Msg("presign failed, job left pending")
			continue
		}
		job.URL = url
		b.queue.Enqueue(job)
		admitted++
	}
	return admitted
}
