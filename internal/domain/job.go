package domain

import "time"

// JobStatus is the lifecycle state of an indexing job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobPaused    JobStatus = "paused"
)

// Job types and schedule types.
const (
	JobTypeManual  = "manual"
	JobTypeSitemap = "sitemap"

	ScheduleOneTime = "one-time"
	ScheduleDaily   = "daily"
	ScheduleWeekly  = "weekly"
	ScheduleMonthly = "monthly"
)

// IndexJob is a URL-indexing submission job.
type IndexJob struct {
	ID            string     `json:"id"`
	UserID        string     `json:"userId"`
	Name          string     `json:"name"`
	Type          string     `json:"type"`
	Status        JobStatus  `json:"status"`
	ScheduleType  string     `json:"scheduleType"`
	StartTime     *time.Time `json:"startTime,omitempty"`
	URLs          []string   `json:"urls,omitempty"`
	SitemapURL    *string    `json:"sitemapUrl,omitempty"`
	TotalURLs     int        `json:"totalUrls"`
	ProcessedURLs int        `json:"processedUrls"`
	SucceededURLs int        `json:"succeededUrls"`
	FailedURLs    int        `json:"failedUrls"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CreateJobRequest is the input for creating an indexing job.
type CreateJobRequest struct {
	Name         string   `json:"name" validate:"required,max=120"`
	Type         string   `json:"type" validate:"required,oneof=manual sitemap"`
	URLs         []string `json:"urls" validate:"omitempty,dive,url"`
	SitemapURL   string   `json:"sitemapUrl" validate:"omitempty,url"`
	ScheduleType string   `json:"scheduleType" validate:"required,oneof=one-time daily weekly monthly"`
	StartTime    string   `json:"startTime" validate:"omitempty"`
}

// UpdateJobStatusRequest is the input for pausing/resuming/retrying a job.
type UpdateJobStatusRequest struct {
	Action string `json:"action" validate:"required,oneof=pause resume retry"`
}

// JobListQuery captures the list-endpoint query parameters.
type JobListQuery struct {
	Page     int
	Limit    int
	Search   string
	Status   string
	Schedule string
}

// Pagination is the metadata returned alongside paginated lists.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// JobListResponse is the paginated job list payload.
type JobListResponse struct {
	Jobs       []*IndexJob `json:"jobs"`
	Pagination Pagination  `json:"pagination"`
}
