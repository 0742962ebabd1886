package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeDebugUserTokens JobType = "debug_user_tokens"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// RescheduleError is returned by a handler to re-enqueue the same job after a
// delay without counting a failure. Used for cooperative self-rescheduling,
// e.g. when a revalidation run detects state that changed under it.
type RescheduleError struct {
	Delay time.Duration
}

func (e *RescheduleError) Error() string {
	return fmt.Sprintf("job rescheduled after %s", e.Delay)
}

// DebugUserTokensJobPayload carries the target of a token revalidation pass
type DebugUserTokensJobPayload struct {
	ProviderUserID string `json:"provider_user_id"`
}

// ToMap converts the payload to a map for storage
func (p DebugUserTokensJobPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"provider_user_id": p.ProviderUserID,
	}
}

// DebugUserTokensJobPayloadFromMap creates a payload from a map
func DebugUserTokensJobPayloadFromMap(data map[string]interface{}) (*DebugUserTokensJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload DebugUserTokensJobPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
