package service

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/domain"
	"github.com/indexnow-studio/backend/internal/metrics"
)

// Free-tier daily URL allowance for users without an active package.
const defaultDailyQuota = 50

// JobStore is the subset of the job repository the job service needs.
type JobStore interface {
	Create(ctx context.Context, j *domain.IndexJob) error
	FindByID(ctx context.Context, id, userID string) (*domain.IndexJob, error)
	List(ctx context.Context, userID string, q domain.JobListQuery) ([]*domain.IndexJob, int, error)
	UpdateStatus(ctx context.Context, id string, status domain.JobStatus) error
	Delete(ctx context.Context, id, userID string) (bool, error)
}

// QuotaStore is the user-repository subset for quota enforcement.
type QuotaStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	IncrementDailyQuota(ctx context.Context, userID string, n int) error
}

// PackageFinder resolves package quota definitions.
type PackageFinder interface {
	FindByID(ctx context.Context, id string) (*domain.Package, error)
}

// JobBroadcaster pushes realtime job events.
type JobBroadcaster interface {
	BroadcastJobUpdate(jobID, status string, payload any)
	BroadcastToUser(userID, event string, payload any)
}

var (
	scriptTagRe = regexp.MustCompile(`(?i)<\s*/?\s*script[^>]*>`)
	jobNameRe   = regexp.MustCompile(`^[a-zA-Z0-9 _.\-]+$`)
)

// JobService owns indexing-job CRUD and daily quota enforcement.
type JobService struct {
	jobs    JobStore
	users   QuotaStore
	catalog PackageFinder
	hub     JobBroadcaster
	logger  *zap.Logger
	now     func() time.Time
}

// NewJobService creates a JobService.
func NewJobService(jobs JobStore, users QuotaStore, catalog PackageFinder, hub JobBroadcaster, logger *zap.Logger) *JobService {
	return &JobService{
		jobs:    jobs,
		users:   users,
		catalog: catalog,
		hub:     hub,
		logger:  logger,
		now:     time.Now,
	}
}

// List returns a page of the user's jobs with pagination metadata.
func (s *JobService) List(ctx context.Context, userID string, q domain.JobListQuery) (*domain.JobListResponse, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	jobs, total, err := s.jobs.List(ctx, userID, q)
	if err != nil {
		return nil, domain.ErrDatabase("failed to list jobs", err)
	}

	totalPages := total / q.Limit
	if total%q.Limit != 0 {
		totalPages++
	}
	return &domain.JobListResponse{
		Jobs: jobs,
		Pagination: domain.Pagination{
			Page:       q.Page,
			Limit:      q.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}

// Get returns one job owned by the user.
func (s *JobService) Get(ctx context.Context, id, userID string) (*domain.IndexJob, error) {
	job, err := s.jobs.FindByID(ctx, id, userID)
	if err != nil {
		return nil, domain.ErrDatabase("failed to load job", err)
	}
	if job == nil {
		return nil, domain.ErrNotFound("job not found")
	}
	return job, nil
}

// Create validates and sanitizes the request, enforces the daily quota, and
// writes the job with status pending.
func (s *JobService) Create(ctx context.Context, userID string, req *domain.CreateJobRequest) (*domain.IndexJob, error) {
	name := strings.TrimSpace(scriptTagRe.ReplaceAllString(req.Name, ""))
	if name == "" || !jobNameRe.MatchString(name) {
		return nil, domain.ErrValidation("job name contains invalid characters")
	}

	var urls []string
	var sitemapURL *string
	urlCount := 0
	switch req.Type {
	case domain.JobTypeManual:
		if len(req.URLs) == 0 {
			return nil, domain.ErrValidation("at least one URL is required")
		}
		for _, raw := range req.URLs {
			u := strings.TrimSpace(raw)
			if !validHTTPURL(u) {
				return nil, domain.ErrValidation("invalid URL: " + u)
			}
			urls = append(urls, u)
		}
		urlCount = len(urls)
	case domain.JobTypeSitemap:
		u := strings.TrimSpace(req.SitemapURL)
		if !validHTTPURL(u) {
			return nil, domain.ErrValidation("invalid sitemap URL")
		}
		sitemapURL = &u
		urlCount = 1
	default:
		return nil, domain.ErrValidation("unknown job type")
	}

	if err := s.checkQuota(ctx, userID, urlCount); err != nil {
		return nil, err
	}

	var startTime *time.Time
	if req.StartTime != "" {
		t, err := time.Parse(time.RFC3339, req.StartTime)
		if err != nil {
			return nil, domain.ErrValidation("startTime must be RFC3339")
		}
		startTime = &t
	}

	now := s.now()
	job := &domain.IndexJob{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         name,
		Type:         req.Type,
		Status:       domain.JobPending,
		ScheduleType: req.ScheduleType,
		StartTime:    startTime,
		URLs:         urls,
		SitemapURL:   sitemapURL,
		TotalURLs:    urlCount,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, domain.ErrDatabase("failed to create job", err)
	}

	if err := s.users.IncrementDailyQuota(ctx, userID, urlCount); err != nil {
		s.logger.Error("failed to record quota usage",
			zap.String("user_id", userID), zap.Error(err))
	}

	metrics.JobCreated()
	s.hub.BroadcastToUser(userID, "dashboard_stats", map[string]any{"jobCreated": job.ID})
	return job, nil
}

// checkQuota rejects the request when the user's daily URL allowance would
// be exceeded.
func (s *JobService) checkQuota(ctx context.Context, userID string, urlCount int) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.ErrDatabase("failed to load user", err)
	}
	if user == nil {
		return domain.ErrNotFound("user not found")
	}

	quota := defaultDailyQuota
	now := s.now()
	if user.PackageID != nil && user.ExpiresAt != nil && user.ExpiresAt.After(now) {
		pkg, err := s.catalog.FindByID(ctx, *user.PackageID)
		if err == nil && pkg != nil {
			quota = pkg.DailyURLQuota
		}
	}

	if quota >= 0 && user.DailyQuotaUsed+urlCount > quota {
		return domain.ErrRateLimit("daily URL quota exceeded")
	}
	return nil
}

// UpdateStatus applies a pause/resume/retry action to a job.
func (s *JobService) UpdateStatus(ctx context.Context, id, userID string, req *domain.UpdateJobStatusRequest) (*domain.IndexJob, error) {
	job, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	var next domain.JobStatus
	switch req.Action {
	case "pause":
		if job.Status != domain.JobPending && job.Status != domain.JobRunning {
			return nil, domain.ErrBadRequest("only pending or running jobs can be paused")
		}
		next = domain.JobPaused
	case "resume":
		if job.Status != domain.JobPaused {
			return nil, domain.ErrBadRequest("only paused jobs can be resumed")
		}
		next = domain.JobPending
	case "retry":
		if job.Status != domain.JobFailed {
			return nil, domain.ErrBadRequest("only failed jobs can be retried")
		}
		next = domain.JobPending
	default:
		return nil, domain.ErrValidation("unknown action")
	}

	if err := s.jobs.UpdateStatus(ctx, id, next); err != nil {
		return nil, domain.ErrDatabase("failed to update job", err)
	}
	job.Status = next
	s.hub.BroadcastJobUpdate(job.ID, string(next), job)
	return job, nil
}

// Delete removes a job owned by the user.
func (s *JobService) Delete(ctx context.Context, id, userID string) error {
	deleted, err := s.jobs.Delete(ctx, id, userID)
	if err != nil {
		return domain.ErrDatabase("failed to delete job", err)
	}
	if !deleted {
		return domain.ErrNotFound("job not found")
	}
	return nil
}

func validHTTPURL(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, "<>\"'") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
