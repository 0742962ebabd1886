package jobqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBasicJobTypes tests the basic job type constants
func TestBasicJobTypes(t *testing.T) {
	assert.Equal(t, "debug_user_tokens", string(JobTypeDebugUserTokens))
}

// TestBasicJobStatus tests the basic job status constants
func TestBasicJobStatus(t *testing.T) {
	assert.Equal(t, "pending", string(JobStatusPending))
	assert.Equal(t, "processing", string(JobStatusProcessing))
	assert.Equal(t, "completed", string(JobStatusCompleted))
	assert.Equal(t, "failed", string(JobStatusFailed))
	assert.Equal(t, "retrying", string(JobStatusRetrying))
}

// TestJob_BasicMethods tests basic job methods
func TestJob_BasicMethods(t *testing.T) {
	job := &Job{
		Status:     JobStatusFailed,
		RetryCount: 1,
		MaxRetries: 3,
	}

	// Test IsRetryable
	assert.True(t, job.IsRetryable())

	job.RetryCount = 3
	assert.False(t, job.IsRetryable())

	// Test status transitions
	beforeTime := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)
	assert.True(t, job.UpdatedAt.After(beforeTime) || job.UpdatedAt.Equal(beforeTime))

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 4, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
}

func TestDebugUserTokensJobPayload_Roundtrip(t *testing.T) {
	payload := DebugUserTokensJobPayload{ProviderUserID: "100"}

	m := payload.ToMap()
	assert.Equal(t, "100", m["provider_user_id"])

	restored, err := DebugUserTokensJobPayloadFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)
}

func TestRescheduleError(t *testing.T) {
	var err error = &RescheduleError{Delay: 45 * time.Second}

	var rerr *RescheduleError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, 45*time.Second, rerr.Delay)
	assert.Contains(t, err.Error(), "45s")
}
