package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/metrics"
)

// Submitter sends one URL notification to the indexing vendor.
type Submitter interface {
	SubmitURL(ctx context.Context, url string) error
}

// RunnerStore is the job-repository subset the runner needs.
type RunnerStore interface {
	FindPendingDue(ctx context.Context, now time.Time, limit int) ([]*domain.IndexJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error
	UpdateCounters(ctx context.Context, id string, processed, succeeded, failed int) error
}

// ProgressBroadcaster pushes per-job realtime progress.
type ProgressBroadcaster interface {
	BroadcastJobUpdate(jobID, status string, payload any)
	BroadcastJobProgress(jobID string, payload any)
	BroadcastURLSubmission(jobID string, payload any)
}

// RunnerService picks up due pending jobs and submits their URLs to the
// indexing API, broadcasting progress as it goes.
type RunnerService struct {
	jobs     RunnerStore
	client   Submitter
	hub      ProgressBroadcaster
	logger   *zap.Logger
	interval time.Duration
	batch    int
}

// NewRunnerService creates a RunnerService.
func NewRunnerService(jobs RunnerStore, client Submitter, hub ProgressBroadcaster, logger *zap.Logger, interval time.Duration, batch int) *RunnerService {
	return &RunnerService{
		jobs:     jobs,
		client:   client,
		hub:      hub,
		logger:   logger,
		interval: interval,
		batch:    batch,
	}
}

// Start begins the submission loop in a background goroutine.
func (s *RunnerService) Start(ctx context.Context) {
	go func() {
		s.processDue(ctx)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.processDue(ctx)
			}
		}
	}()
}

func (s *RunnerService) processDue(ctx context.Context) {
	due, err := s.jobs.FindPendingDue(ctx, time.Now(), s.batch)
	if err != nil {
		s.logger.Error("runner: failed to fetch due jobs", zap.Error(err))
		return
	}

	for _, job := range due {
		s.runJob(ctx, job)
	}
}

// runJob submits every URL in a job sequentially. One failed URL does not
// stop the rest; the job fails only when nothing succeeded.
func (s *RunnerService) runJob(ctx context.Context, job *domain.IndexJob) {
	if err := s.jobs.UpdateStatus(ctx, job.ID, domain.JobRunning); err != nil {
		s.logger.Error("runner: failed to mark job running",
			zap.String("job_id", job.ID), zap.Error(err))
		return
	}
	s.hub.BroadcastJobUpdate(job.ID, string(domain.JobRunning), job)

	urls := job.URLs
	if job.Type == domain.JobTypeSitemap && job.SitemapURL != nil {
		urls = []string{*job.SitemapURL}
	}

	var processed, succeeded, failed int
	for _, u := range urls {
		if ctx.Err() != nil {
			return
		}

		err := s.client.SubmitURL(ctx, u)
		processed++
		status := "succeeded"
		if err != nil {
			failed++
			status = "failed"
			s.logger.Warn("runner: url submission failed",
				zap.String("job_id", job.ID), zap.String("url", u), zap.Error(err))
		} else {
			succeeded++
		}
		metrics.URLSubmission(status)

		s.hub.BroadcastURLSubmission(job.ID, map[string]any{
			"jobId": job.ID, "url": u, "status": status,
		})
		if err := s.jobs.UpdateCounters(ctx, job.ID, processed, succeeded, failed); err != nil {
			s.logger.Error("runner: failed to update counters",
				zap.String("job_id", job.ID), zap.Error(err))
		}
		s.hub.BroadcastJobProgress(job.ID, map[string]any{
			"jobId": job.ID, "processed": processed, "total": len(urls),
			"succeeded": succeeded, "failed": failed,
		})
	}

	final := domain.JobCompleted
	if succeeded == 0 && failed > 0 {
		final = domain.JobFailed
	}
	if err := s.jobs.UpdateStatus(ctx, job.ID, final); err != nil {
		s.logger.Error("runner: failed to finalize job",
			zap.String("job_id", job.ID), zap.Error(err))
	}
	job.Status = final
	job.ProcessedURLs, job.SucceededURLs, job.FailedURLs = processed, succeeded, failed
	s.hub.BroadcastJobUpdate(job.ID, string(final), job)

	s.logger.Info("runner: job finished",
		zap.String("job_id", job.ID),
		zap.String("status", string(final)),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
}
