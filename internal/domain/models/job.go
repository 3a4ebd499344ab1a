package models

import "time"

// JobStatus tracks a training job through the batch pipeline.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobTraining  JobStatus = "training"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobSkipped   JobStatus = "skipped"
)

// TrainingJob mirrors the persisted job-queue row. The core emits
// updates to this shape; the storage engine is external.
type TrainingJob struct {
	ID                 string             `json:"id"`
	Symbol             string             `json:"symbol"`
	Status             JobStatus          `json:"status"`
	AttemptCount       int                `json:"attempt_count"`
	CurriculumStage    int                `json:"curriculum_stage"`
	TrainingDataPoints int                `json:"training_data_points"`
	PerformanceMetrics map[string]float64 `json:"performance_metrics,omitempty"`
	ErrorMessage       string             `json:"error_message,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// Retryable reports whether the job may be picked up by a retry sweep.
// Completed, skipped and permanently failed jobs are excluded.
func (j *TrainingJob) Retryable(maxAttempts int) bool {
	switch j.Status {
	case JobCompleted, JobSkipped:
		return false
	case JobFailed:
		return j.AttemptCount < maxAttempts
	default:
		return true
	}
}
