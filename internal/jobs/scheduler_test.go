package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"mediavault/internal/config"
	"mediavault/internal/models"
)

type fakeStaleSource struct {
	stale      []models.MediaJob
	staleErr   error
	expired    []models.MediaJob
	expiredErr error
}

func (f *fakeStaleSource) GetStalePending(ctx context.Context, age time.Duration) ([]models.MediaJob, error) {
	return f.stale, f.staleErr
}

func (f *fakeStaleSource) DeleteExpiredAwaiting(ctx context.Context, age time.Duration) ([]models.MediaJob, error) {
	return f.expired, f.expiredErr
}

type fakeRequeuer struct {
	requeued []models.MediaJob
}

func (f *fakeRequeuer) Requeue(ctx context.Context, jobs []models.MediaJob) int {
	f.requeued = append(f.requeued, jobs...)
	return len(jobs)
}

type fakeRemover struct {
	removed []string
	err     error
}

func (f *fakeRemover) Remove(ctx context.Context, bucket, key string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, bucket+"/"+key)
	return nil
}

func newTestScheduler(source *fakeStaleSource, requeuer *fakeRequeuer, remover *fakeRemover) *Scheduler {
	return NewScheduler(source, requeuer, remover, "staging", config.SweepConfig{
		StalePendingAfter: time.Hour,
		AwaitingUploadTTL: 24 * time.Hour,
	}, zerolog.Nop())
}

func TestSweepStalePendingRequeues(t *testing.T) {
	source := &fakeStaleSource{stale: []models.MediaJob{{ID: "a"}, {ID: "b"}}}
	requeuer := &fakeRequeuer{}
	s := newTestScheduler(source, requeuer, &fakeRemover{})

	s.sweepStalePending()

	assert.Len(t, requeuer.requeued, 2)
}

func TestSweepStalePendingQueryFailure(t *testing.T) {
	source := &fakeStaleSource{staleErr: errors.New("db down")}
	requeuer := &fakeRequeuer{}
	s := newTestScheduler(source, requeuer, &fakeRemover{})

	s.sweepStalePending()

	assert.Empty(t, requeuer.requeued)
}

func TestPurgeExpiredAwaitingClearsStaging(t *testing.T) {
	source := &fakeStaleSource{expired: []models.MediaJob{
		{ID: "a", FileName: "2026/08/24/a.jpg"},
		{ID: "b", FileName: "2026/08/24/b.jpg"},
	}}
	remover := &fakeRemover{}
	s := newTestScheduler(source, &fakeRequeuer{}, remover)

	s.purgeExpiredAwaiting()

	assert.Equal(t, []string{"staging/2026/08/24/a.jpg", "staging/2026/08/24/b.jpg"}, remover.removed)
}

func TestPurgeToleratesObjectRemovalFailure(t *testing.T) {
	source := &fakeStaleSource{expired: []models.MediaJob{{ID: "a", FileName: "k"}}}
	remover := &fakeRemover{err: errors.New("minio down")}
	s := newTestScheduler(source, &fakeRequeuer{}, remover)

	// Rows are already deleted; a failed object removal only logs.
	s.purgeExpiredAwaiting()
	assert.Empty(t, remover.removed)
}
