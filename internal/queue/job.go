package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeAffinityRebuild recomputes the full tag affinity matrix
	JobTypeAffinityRebuild JobType = "affinity_rebuild"
)

// Rebuild trigger sources recorded in job metadata
const (
	SourceAPI  = "api"
	SourceCron = "cron"
	SourceCLI  = "cli"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID         `json:"id"`
	Type       JobType           `json:"type"`
	NotBefore  *time.Time        `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter   *time.Time        `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)
	Metadata   map[string]any    `json:"metadata,omitempty"`   // Job-specific data
	Trace      map[string]string `json:"trace,omitempty"`      // Propagated trace context of the publisher
	CreatedAt  time.Time         `json:"created_at"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// NewRebuildJob creates an affinity rebuild job recording who asked for it
func NewRebuildJob(source string) *Job {
	job := NewJob(JobTypeAffinityRebuild)
	job.Metadata["source"] = source
	return job
}

// Source returns the trigger source recorded in metadata, or "unknown"
func (j *Job) Source() string {
	if s, ok := j.Metadata["source"].(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}
	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}
	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
