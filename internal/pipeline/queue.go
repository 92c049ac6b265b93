package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/models"
)

// Flusher receives claimed batches. Satisfied by the Orchestrator.
type Flusher interface {
	ScanBatch(ctx context.Context, class models.MediaClass, jobs []models.MediaJob)
}

// BatchQueue groups confirmed uploads per media class and flushes each class
// to the scan orchestrator when it hits its size cap or its oldest item has
// waited long enough. Enqueue never blocks and never fails.
type BatchQueue struct {
	classes map[models.MediaClass]*classQueue
	log     zerolog.Logger
}

func NewBatchQueue(ctx context.Context, cfg config.BatchingConfig, flusher Flusher, log zerolog.Logger) *BatchQueue {
	return &BatchQueue{
		classes: map[models.MediaClass]*classQueue{
			models.ClassImages: newClassQueue(ctx, models.ClassImages, cfg.Images, flusher, log),
			models.ClassVideos: newClassQueue(ctx, models.ClassVideos, cfg.Videos, flusher, log),
		},
		log: log,
	}
}

func (q *BatchQueue) Enqueue(job models.MediaJob) {
	class, ok := models.ClassForMime(job.MimeType)
	if !ok {
		q.log.Warn().
			Str("job_id", job.ID).
			Str("mime_type", job.MimeType).
			Msg("job has no scannable media class, dropped")
		return
	}
	q.classes[class].enqueue(job)
}

// Len reports the number of unflushed jobs for a class. Test and ops hook.
func (q *BatchQueue) Len(class models.MediaClass) int {
	cq, ok := q.classes[class]
	if !ok {
		return 0
	}
	cq.mu.Lock()
	defer cq.mu.Unlock()
	return len(cq.items)
}

// Stop cancels pending flush timers. In-flight scans are not interrupted;
// jobs they would have completed stay pending and are picked up by recovery.
func (q *BatchQueue) Stop() {
	for _, cq := range q.classes {
		cq.stop()
	}
}

// classQueue owns all mutable state for one media class: the queue itself,
// the age of its oldest unflushed item, the debounced wake-up timer and the
// single-flight flag. Everything is guarded by mu.
type classQueue struct {
	ctx     context.Context
	class   models.MediaClass
	policy  config.ClassPolicy
	flusher Flusher
	log     zerolog.Logger

	mu         sync.Mutex
	items      []models.MediaJob
	batchStart time.Time
	timer      *time.Timer
	inFlight   bool
}

func newClassQueue(ctx context.Context, class models.MediaClass, policy config.ClassPolicy, flusher Flusher, log zerolog.Logger) *classQueue {
	return &classQueue{
		ctx:     ctx,
		class:   class,
		policy:  policy,
		flusher: flusher,
		log:     log.With().Str("class", string(class)).Logger(),
	}
}

func (cq *classQueue) enqueue(job models.MediaJob) {
	cq.mu.Lock()
	defer cq.mu.Unlock()

	cq.items = append(cq.items, job)
	if cq.batchStart.IsZero() {
		cq.batchStart = time.Now()
	}
	cq.evaluateLocked()
}

// evaluateLocked applies the flush policy: flush now on size or age,
// otherwise schedule a wake-up at min(maxWait-elapsed, pollInterval).
// Deferred entirely while a scan for this class is in flight.
func (cq *classQueue) evaluateLocked() {
	if cq.inFlight {
		return
	}
	if len(cq.items) == 0 {
		cq.batchStart = time.Time{}
		cq.stopTimerLocked()
		return
	}

	elapsed := time.Since(cq.batchStart)
	if len(cq.items) >= cq.policy.MaxBatch || elapsed >= cq.policy.MaxWait {
		cq.flushLocked()
		return
	}

	wait := cq.policy.MaxWait - elapsed
	if wait > cq.policy.PollInterval {
		wait = cq.policy.PollInterval
	}
	cq.armTimerLocked(wait)
}

// flushLocked claims up to MaxBatch items and hands them to the flusher on a
// fresh goroutine. The single-flight flag stays set until the scan call,
// retries included, fully resolves.
func (cq *classQueue) flushLocked() {
	n := len(cq.items)
	if n > cq.policy.MaxBatch {
		n = cq.policy.MaxBatch
	}

	batch := make([]models.MediaJob, n)
	copy(batch, cq.items[:n])
	cq.items = append(cq.items[:0:0], cq.items[n:]...)

	if len(cq.items) > 0 {
		cq.batchStart = time.Now()
	} else {
		cq.batchStart = time.Time{}
	}
	cq.stopTimerLocked()
	cq.inFlight = true

	cq.log.Debug().Int("batch_size", n).Int("remaining", len(cq.items)).Msg("flushing batch")

	go cq.runScan(batch)
}

func (cq *classQueue) runScan(batch []models.MediaJob) {
	cq.flusher.ScanBatch(cq.ctx, cq.class, batch)

	cq.mu.Lock()
	defer cq.mu.Unlock()
	cq.inFlight = false
	if len(cq.items) > 0 && cq.batchStart.IsZero() {
		cq.batchStart = time.Now()
	}
	cq.evaluateLocked()
}

// armTimerLocked replaces any pending wake-up. Debounce, not stacking:
// exactly one timer per class may be outstanding.
func (cq *classQueue) armTimerLocked(d time.Duration) {
	cq.stopTimerLocked()
	cq.timer = time.AfterFunc(d, func() {
		cq.mu.Lock()
		defer cq.mu.Unlock()
		cq.timer = nil
		cq.evaluateLocked()
	})
}

func (cq *classQueue) stopTimerLocked() {
	if cq.timer != nil {
		cq.timer.Stop()
		cq.timer = nil
	}
}

func (cq *classQueue) stop() {
	cq.mu.Lock()
	defer cq.mu.Unlock()
	cq.stopTimerLocked()
}
