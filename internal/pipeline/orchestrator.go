package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/models"
	"mediavault/internal/scan"
)

// Audit event types emitted by the orchestrator.
const (
	auditInvalidClass   = "invalid_class"
	auditBatchFailure   = "batch_failure"
	auditMissingVerdict = "missing_verdict"
	auditUnsafeContent  = "unsafe_content"
	auditBatchSummary   = "batch_summary"
)

// Orchestrator drives one flushed batch through scanning and reconciliation.
// It never returns errors to the queue: every failure mode ends in an audit
// event and, for the affected jobs, an unchanged pending status.
type Orchestrator struct {
	jobs       JobStore
	media      MediaStore
	moderation ModerationStore
	audit      AuditLog
	mover      ObjectMover
	vision     scan.Backend
	remote     scan.Backend
	layout     BucketLayout

	smallBatchMax int
	retryAttempts int
	retryDelay    time.Duration

	log zerolog.Logger
}

type OrchestratorParams struct {
	Jobs       JobStore
	Media      MediaStore
	Moderation ModerationStore
	Audit      AuditLog
	Mover      ObjectMover
	Vision     scan.Backend
	Remote     scan.Backend
	Layout     BucketLayout

	SmallBatchMax int
	RetryAttempts int
	RetryDelay    time.Duration

	Log zerolog.Logger
}

func NewOrchestrator(p OrchestratorParams) *Orchestrator {
	if p.RetryAttempts < 1 {
		p.RetryAttempts = 1
	}
	return &Orchestrator{
		jobs:          p.Jobs,
		media:         p.Media,
		moderation:    p.Moderation,
		audit:         p.Audit,
		mover:         p.Mover,
		vision:        p.Vision,
		remote:        p.Remote,
		layout:        p.Layout,
		smallBatchMax: p.SmallBatchMax,
		retryAttempts: p.RetryAttempts,
		retryDelay:    p.RetryDelay,
		log:           p.Log,
	}
}

func (o *Orchestrator) ScanBatch(ctx context.Context, class models.MediaClass, jobs []models.MediaJob) {
	if len(jobs) == 0 {
		return
	}
	if !class.Valid() {
		o.log.Error().Str("class", string(class)).Msg("unrecognized media class, batch rejected")
		o.auditEvent(ctx, models.AuditEvent{
			Type:    auditInvalidClass,
			Class:   string(class),
			Message: "unrecognized media class",
			Details: map[string]any{"job_count": len(jobs)},
		})
		return
	}

	verdicts, err := o.scanWithRetry(ctx, class, jobs)
	if err != nil {
		// Whole-batch failure. No side effects; every job stays pending and
		// is eligible for the stale sweep or the next recovery pass.
		o.log.Error().Err(err).
			Str("class", string(class)).
			Int("job_count", len(jobs)).
			Msg("scan backend exhausted retries, batch abandoned")
		o.auditEvent(ctx, models.AuditEvent{
			Type:    auditBatchFailure,
			Class:   string(class),
			Message: err.Error(),
			Details: map[string]any{"job_count": len(jobs)},
		})
		return
	}

	// First verdict per job id wins; a backend echoing duplicates does not
	// get a second reconciliation.
	byID := make(map[string]scan.Verdict, len(verdicts))
	for _, v := range verdicts {
		if _, dup := byID[v.JobID]; !dup {
			byID[v.JobID] = v
		}
	}

	// Completion order follows submission order for audit readability.
	var completed []string
	for _, job := range jobs {
		verdict, ok := byID[job.ID]
		if !ok || verdict.IsNSFW == nil {
			o.log.Error().
				Str("job_id", job.ID).
				Str("verdict_error", verdict.Error).
				Msg("no valid verdict for job, skipping reconciliation")
			o.auditEvent(ctx, models.AuditEvent{
				Type:    auditMissingVerdict,
				JobID:   job.ID,
				Class:   string(class),
				Message: verdict.Error,
			})
			continue
		}
		if o.reconcile(ctx, job, verdict) {
			completed = append(completed, job.ID)
		}
	}

	if err := o.jobs.MarkComplete(ctx, completed); err != nil {
		// Applied side effects are not rolled back. MarkComplete is
		// idempotent; the stale sweep re-runs these jobs.
		o.log.Error().Err(err).
			Strs("job_ids", completed).
			Msg("mark complete failed")
	}

	o.auditEvent(ctx, models.AuditEvent{
		Type:  auditBatchSummary,
		Class: string(class),
		Details: map[string]any{
			"submitted": len(jobs),
			"completed": len(completed),
		},
	})
}

// scanWithRetry invokes the selected backend up to retryAttempts times with
// a fixed delay. No partial credit: any invocation or contract failure
// counts against the whole batch.
func (o *Orchestrator) scanWithRetry(ctx context.Context, class models.MediaClass, jobs []models.MediaJob) ([]scan.Verdict, error) {
	backend := o.remote
	if class == models.ClassImages && len(jobs) <= o.smallBatchMax {
		backend = o.vision
	}

	scanJobs := make([]scan.Job, 0, len(jobs))
	for _, job := range jobs {
		scanJobs = append(scanJobs, scan.Job{JobID: job.ID, URL: job.URL})
	}

	var lastErr error
	for attempt := 1; attempt <= o.retryAttempts; attempt++ {
		verdicts, err := backend.Scan(ctx, class, scanJobs)
		if err == nil {
			return verdicts, nil
		}
		lastErr = err
		o.log.Warn().Err(err).
			Str("class", string(class)).
			Int("attempt", attempt).
			Msg("scan invocation failed")

		if attempt < o.retryAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(o.retryDelay):
			}
		}
	}
	return nil, lastErr
}

// reconcile applies one job's verdict. Panics are contained here so a
// defective job can never abort its siblings.
func (o *Orchestrator) reconcile(ctx context.Context, job models.MediaJob, verdict scan.Verdict) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().
				Interface("panic", r).
				Str("job_id", job.ID).
				Msg("reconciliation panicked, job excluded from completion")
			done = false
		}
	}()

	if *verdict.IsNSFW {
		o.quarantine(ctx, job)
		return true
	}
	return o.commit(ctx, job, verdict)
}

// quarantine handles confirmed-unsafe content. The four sub-steps are
// independent and best-effort: recording the denial matters more than any
// single write succeeding, so the job still counts as reconciled.
func (o *Orchestrator) quarantine(ctx context.Context, job models.MediaJob) {
	logger := o.log.With().Str("job_id", job.ID).Logger()
	logger.Info().Str("user_id", job.UserID).Msg("unsafe content detected, quarantining")

	if err := o.moderation.AddBlockedHash(ctx, models.BlockedHash{
		HashValue:    job.SHA256Hash,
		HashType:     "sha256",
		DetectedType: job.MimeType,
		SourceType:   "upload_scan",
		DetectedBy:   "scan_pipeline",
		FileKey:      job.FileName,
	}); err != nil {
		logger.Error().Err(err).Msg("blocklist insert failed")
	}

	if err := o.moderation.RestrictUser(ctx, job.UserID); err != nil {
		logger.Error().Err(err).Str("user_id", job.UserID).Msg("user restriction failed")
	}

	o.auditEvent(ctx, models.AuditEvent{
		Type:    auditUnsafeContent,
		JobID:   job.ID,
		Message: "unsafe content detected",
		Details: map[string]any{
			"user_id":  job.UserID,
			"file_key": job.FileName,
			"hash":     job.SHA256Hash,
		},
	})

	if err := o.mover.Move(ctx, o.layout.Staging, job.FileName, o.layout.Quarantine, job.FileName); err != nil {
		logger.Error().Err(err).Msg("quarantine move failed")
	}
}

// commit moves cleared content to its permanent bucket and writes its
// metadata record. Either failure aborts the job: no record without a moved
// object, and a moved object without a record is logged as an orphan.
func (o *Orchestrator) commit(ctx context.Context, job models.MediaJob, verdict scan.Verdict) bool {
	logger := o.log.With().Str("job_id", job.ID).Logger()

	bucket, destKey := o.layout.Destination(job.LinkedToType, job.FileName)

	if err := o.mover.Move(ctx, o.layout.Staging, job.FileName, bucket, destKey); err != nil {
		logger.Error().Err(err).
			Str("bucket", bucket).
			Str("key", destKey).
			Msg("commit move failed, job stays pending")
		return false
	}

	var duration float64
	if verdict.Duration != nil {
		duration = *verdict.Duration
	}

	if _, err := o.media.CreateMediaItem(ctx, models.MediaItem{
		JobID:            job.ID,
		UserID:           job.UserID,
		Bucket:           bucket,
		ObjectKey:        destKey,
		MimeType:         job.MimeType,
		SizeBytes:        job.FileSize,
		Width:            verdict.Width,
		Height:           verdict.Height,
		DurationSeconds:  duration,
		SHA256Hash:       job.SHA256Hash,
		LinkedToID:       job.LinkedToID,
		LinkedToType:     job.LinkedToType,
		ModerationStatus: models.ModerationStatusApproved,
	}); err != nil {
		logger.Error().Err(err).
			Str("bucket", bucket).
			Str("key", destKey).
			Msg("metadata write failed after move, object orphaned")
		return false
	}

	logger.Info().Str("bucket", bucket).Str("key", destKey).Msg("media committed")
	return true
}

func (o *Orchestrator) auditEvent(ctx context.Context, event models.AuditEvent) {
	if err := o.audit.Append(ctx, event); err != nil {
		o.log.Error().Err(err).Str("type", event.Type).Msg("audit append failed")
	}
}
