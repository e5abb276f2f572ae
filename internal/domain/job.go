package domain

import "time"

// JobKind names the background tasks the worker understands.
type JobKind string

const (
	JobKindChannelSnapshot JobKind = "channel_snapshot"
	JobKindChurnRate       JobKind = "churn_rate"
	JobKindPostStats       JobKind = "post_stats"
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// Job is one unit of background work over a single entity. Delivery is
// at-least-once: a crashed worker leaves the row RUNNING and the scheduler
// sweep requeues it once it goes stale, so handlers stay append-only or
// single-row idempotent.
type Job struct {
	ID        string
	Kind      JobKind
	EntityID  string
	Status    JobStatus
	Attempts  int
	RunAt     time.Time
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}
