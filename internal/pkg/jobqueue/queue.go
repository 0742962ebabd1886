package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pozytywnie/facebook-auth/internal/pkg/cache"
)

const (
	// Redis key prefixes
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"
	JobDelayedKey    = "job_delayed"
	JobStatsKey      = "job_stats"

	// Job settings
	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour // Jobs expire after 24 hours
)

// HandlerFunc processes one job. Returning *RescheduleError re-enqueues the
// job after the given delay without marking it failed.
type HandlerFunc func(ctx context.Context, job *Job) error

// Queue manages background jobs using Redis. Delivery is at-least-once:
// pending and processing lists plus a delayed set, with a sweeper recovering
// jobs stuck in processing after a crash.
type Queue struct {
	client     *redis.Client
	workers    int
	workerPool chan struct{}
	stopCh     chan struct{}
	wg         sync.WaitGroup
	mu         sync.Mutex
	running    bool
	handlers   map[JobType]HandlerFunc
}

// NewQueue creates a new job queue
func NewQueue(workers int) *Queue {
	if workers <= 0 {
		workers = 3 // Default number of workers
	}

	return &Queue{
		client:     cache.GetClient(),
		workers:    workers,
		workerPool: make(chan struct{}, workers),
		stopCh:     make(chan struct{}),
		handlers:   make(map[JobType]HandlerFunc),
	}
}

// RegisterHandler binds a job type to its handler. Must be called before Start.
func (q *Queue) RegisterHandler(jobType JobType, handler HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start starts the job queue workers
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	// Initialize worker pool
	for i := 0; i < q.workers; i++ {
		q.workerPool <- struct{}{}
	}

	// Start workers
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}

	// Promote due delayed jobs onto the pending list
	q.wg.Add(1)
	go q.delayedPromoter(time.Second)

	// Start stuck-processing sweeper (recovers jobs stuck in processing due to crashes)
	q.wg.Add(1)
	go q.stuckSweeper(10*time.Minute, 1*time.Minute)
}

// Stop stops the job queue workers. The mutex is released before waiting:
// in-flight jobs take it for the handler lookup, so holding it across Wait
// would deadlock against them.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.running = false
	q.mu.Unlock()

	q.wg.Wait()
	log.Info("[JobQueue] All workers stopped")
}

// delayedPromoter moves jobs whose ready time has passed from the delayed set
// to the pending queue.
func (q *Queue) delayedPromoter(interval time.Duration) {
	defer q.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			log.Info("[JobQueue] Delayed promoter stopping")
			return
		case <-ticker.C:
			now := strconv.FormatInt(time.Now().Unix(), 10)
			ids, err := q.client.ZRangeByScore(ctx, JobDelayedKey, &redis.ZRangeBy{
				Min: "-inf",
				Max: now,
			}).Result()
			if err != nil {
				log.Errorf("[JobQueue] Promoter ZRangeByScore error: %v", err)
				continue
			}
			for _, id := range ids {
				pipe := q.client.Pipeline()
				pipe.ZRem(ctx, JobDelayedKey, id)
				pipe.LPush(ctx, JobQueueKey, id)
				if _, err := pipe.Exec(ctx); err != nil {
					log.Errorf("[JobQueue] Promoter failed to promote job %s: %v", id, err)
				}
			}
		}
	}
}

// stuckSweeper periodically scans the processing list and requeues jobs stuck for longer than maxAge
func (q *Queue) stuckSweeper(maxAge time.Duration, interval time.Duration) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Stuck sweeper running (maxAge=%s, interval=%s)", maxAge, interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	ctx := context.Background()
	for {
		select {
		case <-q.stopCh:
			log.Info("[JobQueue] Stuck sweeper stopping")
			return
		case <-ticker.C:
			ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
			if err != nil {
				log.Errorf("[JobQueue] Sweeper LRange error: %v", err)
				continue
			}
			now := time.Now()
			for _, id := range ids {
				jobKey := JobKeyPrefix + id
				data, err := q.client.Get(ctx, jobKey).Result()
				if err != nil {
					// Job data missing; remove from processing list
					if err != redis.Nil {
						log.Errorf("[JobQueue] Sweeper Get error for %s: %v", id, err)
					}
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					continue
				}
				var job Job
				if uerr := json.Unmarshal([]byte(data), &job); uerr != nil {
					log.Errorf("[JobQueue] Sweeper unmarshal error for %s: %v", id, uerr)
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					continue
				}
				if job.Status != JobStatusProcessing {
					// Clean up stray entry
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					continue
				}
				// Determine when processing started
				started := job.ProcessedAt
				if started == nil || started.IsZero() {
					// Fallback to UpdatedAt/CreatedAt
					tmp := job.UpdatedAt
					if tmp.IsZero() {
						tmp = job.CreatedAt
					}
					started = &tmp
				}
				if now.Sub(*started) > maxAge {
					log.Warnf("[JobQueue] Recovering stuck job %s (type=%s), age=%s", job.ID, job.Type, now.Sub(*started))
					job.Status = JobStatusPending
					job.ErrorMsg = "recovered by sweeper"
					job.UpdatedAt = now
					q.updateJob(ctx, &job)
					// Move from processing back to pending
					_ = q.client.LRem(ctx, JobProcessingKey, 1, id).Err()
					_ = q.client.RPush(ctx, JobQueueKey, id).Err()
				}
			}
		}
	}
}

// worker processes jobs from the queue
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log.Infof("[JobQueue] Worker %d started", id)

	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			log.Infof("[JobQueue] Worker %d stopping", id)
			return
		default:
			// Acquire worker slot
			<-q.workerPool

			// Try to get a job from the queue
			job, err := q.dequeueJob(ctx)
			if err != nil {
				if err != redis.Nil {
					log.Errorf("[JobQueue] Worker %d: Error dequeuing job: %v", id, err)
				}
				// Release worker slot and wait before retry
				q.workerPool <- struct{}{}
				time.Sleep(time.Second)
				continue
			}

			if job != nil {
				log.Infof("[JobQueue] Worker %d processing job %s (Type: %s)", id, job.ID, job.Type)
				q.processJob(ctx, job)
			}

			// Release worker slot
			q.workerPool <- struct{}{}
		}
	}
}

// EnqueueJob adds a new job to the queue for immediate processing
func (q *Queue) EnqueueJob(jobType JobType, payload map[string]interface{}) (*Job, error) {
	return q.enqueue(jobType, payload, 0)
}

// EnqueueJobDelayed schedules a job to become pending after the given delay.
// The job and its delayed-set entry survive restarts.
func (q *Queue) EnqueueJobDelayed(jobType JobType, payload map[string]interface{}, delay time.Duration) (*Job, error) {
	return q.enqueue(jobType, payload, delay)
}

func (q *Queue) enqueue(jobType JobType, payload map[string]interface{}, delay time.Duration) (*Job, error) {
	ctx := context.Background()

	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}

	// Store job data
	jobData, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	jobKey := JobKeyPrefix + job.ID

	// Use a pipeline for atomic operations
	pipe := q.client.Pipeline()
	pipe.Set(ctx, jobKey, jobData, JobTTL)
	if delay > 0 {
		pipe.ZAdd(ctx, JobDelayedKey, redis.Z{
			Score:  float64(time.Now().Add(delay).Unix()),
			Member: job.ID,
		})
	} else {
		pipe.LPush(ctx, JobQueueKey, job.ID)
	}
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	log.Infof("[JobQueue] Enqueued job %s (Type: %s, Delay: %s)", job.ID, job.Type, delay)
	return job, nil
}

// dequeueJob gets the next job from the queue
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	// Move job from pending queue to processing queue atomically
	result, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}

	jobID := result
	jobKey := JobKeyPrefix + jobID

	// Get job data
	jobData, err := q.client.Get(ctx, jobKey).Result()
	if err != nil {
		// Job data not found, remove from processing queue
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("job data not found for ID %s", jobID)
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		// Invalid job data, remove from processing queue
		q.client.LRem(ctx, JobProcessingKey, 1, jobID)
		return nil, fmt.Errorf("failed to unmarshal job %s: %w", jobID, err)
	}

	return &job, nil
}

// processJob processes a single job
func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.updateJob(ctx, job)

	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	var err error
	if !ok {
		err = fmt.Errorf("unknown job type: %s", job.Type)
	} else {
		err = handler(ctx, job)
	}

	if err != nil {
		var resched *RescheduleError
		if errors.As(err, &resched) {
			// Cooperative self-rescheduling; not a failure, no retry accounting.
			log.Infof("[JobQueue] Job %s rescheduled in %s", job.ID, resched.Delay)
			q.delayJob(ctx, job, resched.Delay)
			q.removeFromProcessing(ctx, job.ID)
			return
		}
		log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
		job.MarkAsFailed(err.Error())

		// Check if job can be retried
		if job.IsRetryable() {
			log.Infof("[JobQueue] Retrying job %s (Attempt %d/%d)", job.ID, job.RetryCount, job.MaxRetries)
			job.MarkAsRetrying()
			q.updateJob(ctx, job)

			// Re-enqueue for retry after a delay that grows with the attempt count
			if zerr := q.client.ZAdd(ctx, JobDelayedKey, redis.Z{
				Score:  float64(time.Now().Add(time.Minute * time.Duration(job.RetryCount)).Unix()),
				Member: job.ID,
			}).Err(); zerr != nil {
				log.Errorf("[JobQueue] Failed to schedule retry for job %s: %v", job.ID, zerr)
			}
		} else {
			log.Errorf("[JobQueue] Job %s permanently failed after %d retries", job.ID, job.RetryCount)
			q.updateJobStats(ctx, JobStatusFailed, 1)
		}
	} else {
		log.Infof("[JobQueue] Job %s completed successfully", job.ID)
		job.MarkAsCompleted()
		q.updateJobStats(ctx, JobStatusCompleted, 1)
		// Remove completed job from Redis entirely
		q.removeCompletedJob(ctx, job.ID)
	}

	if job.Status != JobStatusCompleted {
		q.updateJob(ctx, job)
	}
	q.removeFromProcessing(ctx, job.ID)
}

// delayJob puts a job back into the delayed set with pending status.
func (q *Queue) delayJob(ctx context.Context, job *Job, delay time.Duration) {
	job.Status = JobStatusPending
	job.UpdatedAt = time.Now()
	q.updateJob(ctx, job)
	if err := q.client.ZAdd(ctx, JobDelayedKey, redis.Z{
		Score:  float64(time.Now().Add(delay).Unix()),
		Member: job.ID,
	}).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to delay job %s: %v", job.ID, err)
	}
}

// updateJob updates job data in Redis
func (q *Queue) updateJob(ctx context.Context, job *Job) {
	jobData, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}

	jobKey := JobKeyPrefix + job.ID
	if err := q.client.Set(ctx, jobKey, jobData, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job %s: %v", job.ID, err)
	}
}

// removeFromProcessing removes a job from the processing queue
func (q *Queue) removeFromProcessing(ctx context.Context, jobID string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, jobID).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing queue: %v", jobID, err)
	}
}

// removeCompletedJob completely removes a completed job from Redis
func (q *Queue) removeCompletedJob(ctx context.Context, jobID string) {
	jobKey := JobKeyPrefix + jobID
	if err := q.client.Del(ctx, jobKey).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove completed job %s from Redis: %v", jobID, err)
	}
}

// updateJobStats updates job statistics
func (q *Queue) updateJobStats(ctx context.Context, status JobStatus, delta int64) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), delta).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

// GetJob retrieves a job by ID
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobKey := JobKeyPrefix + jobID
	jobData, err := q.client.Get(ctx, jobKey).Result()
	if err != nil {
		return nil, err
	}

	var job Job
	if err := json.Unmarshal([]byte(jobData), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	return &job, nil
}

// GetJobStats returns statistics about job statuses
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	stats, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}

	result := make(map[JobStatus]int64)
	for status, count := range stats {
		if countInt, err := json.Number(count).Int64(); err == nil {
			result[JobStatus(status)] = countInt
		}
	}

	return result, nil
}

// GetQueueSize returns the number of pending jobs
func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// GetDelayedSize returns the number of jobs waiting on their delay
func (q *Queue) GetDelayedSize(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, JobDelayedKey).Result()
}

// GetProcessingSize returns the number of jobs being processed
func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}
