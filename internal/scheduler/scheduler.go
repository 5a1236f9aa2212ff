package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/config"
	"github.com/indexnow-studio/backend/internal/service"
)

// QuotaResetter clears stale daily quota counters.
type QuotaResetter interface {
	ResetDailyQuotas(ctx context.Context, today time.Time) (int64, error)
}

// Scheduler manages the recurring background jobs: subscription renewals and
// the daily quota reset.
type Scheduler struct {
	cron    *cron.Cron
	renewal *service.RenewalService
	users   QuotaResetter
	logger  *zap.Logger
	cfg     config.SchedulerConfig
}

// New creates a scheduler instance.
func New(renewal *service.RenewalService, users QuotaResetter, logger *zap.Logger, cfg config.SchedulerConfig) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		cron:    c,
		renewal: renewal,
		users:   users,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	if _, err := s.cron.AddFunc(s.cfg.RenewalSchedule, s.runRenewals); err != nil {
		s.logger.Error("failed to schedule renewal job", zap.Error(err))
	} else {
		s.logger.Info("scheduled renewal job", zap.String("schedule", s.cfg.RenewalSchedule))
	}

	if _, err := s.cron.AddFunc(s.cfg.QuotaResetSchedule, s.runQuotaReset); err != nil {
		s.logger.Error("failed to schedule quota reset job", zap.Error(err))
	} else {
		s.logger.Info("scheduled quota reset job", zap.String("schedule", s.cfg.QuotaResetSchedule))
	}

	s.cron.Start()
}

// Stop gracefully stops the cron loop and returns a context that is done when
// running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) runRenewals() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if _, err := s.renewal.ProcessDue(ctx); err != nil {
		s.logger.Error("renewal run failed", zap.Error(err))
	}
}

func (s *Scheduler) runQuotaReset() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	n, err := s.users.ResetDailyQuotas(ctx, today)
	if err != nil {
		s.logger.Error("quota reset failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("daily quotas reset", zap.Int64("users", n))
	}
}
