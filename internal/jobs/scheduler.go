package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/models"
)

type StaleSource interface {
	GetStalePending(ctx context.Context, age time.Duration) ([]models.MediaJob, error)
	DeleteExpiredAwaiting(ctx context.Context, age time.Duration) ([]models.MediaJob, error)
}

type Requeuer interface {
	Requeue(ctx context.Context, jobs []models.MediaJob) int
}

type Remover interface {
	Remove(ctx context.Context, bucket, key string) error
}

// Scheduler runs the periodic maintenance passes: an hourly stale-pending
// sweep that re-admits jobs dropped by whole-batch scan failures, and a
// daily purge of abandoned upload requests and their staging objects.
type Scheduler struct {
	cron     *cron.Cron
	source   StaleSource
	requeuer Requeuer
	remover  Remover
	staging  string
	cfg      config.SweepConfig
	log      zerolog.Logger
}

func NewScheduler(source StaleSource, requeuer Requeuer, remover Remover, staging string, cfg config.SweepConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		source:   source,
		requeuer: requeuer,
		remover:  remover,
		staging:  staging,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 */1 * * *", s.sweepStalePending); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.purgeExpiredAwaiting); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() context.CancelFunc {
	_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	go func() {
		s.cron.Stop()
		cancel()
	}()
	return cancel
}

func (s *Scheduler) sweepStalePending() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stale, err := s.source.GetStalePending(ctx, s.cfg.StalePendingAfter)
	if err != nil {
		s.log.Error().Err(err).Msg("stale pending sweep query failed")
		return
	}
	if len(stale) == 0 {
		return
	}

	admitted := s.requeuer.Requeue(ctx, stale)
	s.log.Info().
		Int("stale", len(stale)).
		Int("admitted", admitted).
		Msg("stale pending sweep finished")
}

func (s *Scheduler) purgeExpiredAwaiting() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := s.source.DeleteExpiredAwaiting(ctx, s.cfg.AwaitingUploadTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("expired awaiting purge failed")
		return
	}

	for _, job := range expired {
		if err := s.remover.Remove(ctx, s.staging, job.FileName); err != nil {
			s.log.Warn().Err(err).Str("job_id", job.ID).Msg("staging object cleanup failed")
		}
	}

	if len(expired) > 0 {
		s.log.Info().Int("purged", len(expired)).Msg("expired upload requests purged")
	}
}
