// File: internal/jobs/offer_expiry.go
package jobs

import (
	"context"
	"time"

	"arc_community_backend/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// OfferExpirer moves stale trade offers to expired.
type OfferExpirer interface {
	ExpireDue(ctx context.Context) (int, error)
}

// OfferExpiryJob periodically expires open trade offers.
type OfferExpiryJob struct {
	expirer       OfferExpirer
	logger        *zap.Logger
	cfg           *config.Config
	cronScheduler *cron.Cron
}

// NewOfferExpiryJob creates a new OfferExpiryJob.
func NewOfferExpiryJob(expirer OfferExpirer, logger *zap.Logger, cfg *config.Config) *OfferExpiryJob {
	cronLog := NewCronLogger(logger.Named("cron"))
	scheduler := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.SkipIfStillRunning(cronLog)),
	)
	return &OfferExpiryJob{
		expirer:       expirer,
		logger:        logger.Named("OfferExpiryJob"),
		cfg:           cfg,
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job. An empty schedule
// disables the job.
func (j *OfferExpiryJob) SetupAndStart() error {
	jobSpec := j.cfg.OfferExpiryJobSchedule
	if jobSpec == "" {
		j.logger.Warn("Offer expiry job schedule not defined (OFFER_EXPIRY_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(jobSpec, j.runJob)
	if err != nil {
		j.logger.Error("Failed to schedule offer expiry job", zap.String("spec", jobSpec), zap.Error(err))
		return err
	}

	j.logger.Info("Offer expiry job scheduled", zap.String("spec", jobSpec), zap.Int("jobID", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

func (j *OfferExpiryJob) runJob() {
	j.logger.Debug("Starting offer expiry job run")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	expired, err := j.expirer.ExpireDue(ctx)
	if err != nil {
		j.logger.Error("Offer expiry job run failed", zap.Error(err))
		return
	}
	if expired > 0 {
		j.logger.Info("Offer expiry job run completed", zap.Int("offers_expired", expired))
	}
}

// Stop gracefully stops the cron scheduler.
func (j *OfferExpiryJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping offer expiry job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Offer expiry job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Offer expiry job scheduler stop timed out.")
	}
}
