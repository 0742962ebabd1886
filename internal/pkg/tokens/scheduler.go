package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/pozytywnie/facebook-auth/app/models"
	"github.com/pozytywnie/facebook-auth/app/repository"
	"github.com/pozytywnie/facebook-auth/internal/pkg/cache"
	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
	"github.com/pozytywnie/facebook-auth/internal/pkg/jobqueue"
)

const debounceKeyPrefix = "token_debug:"

// TokenDebugger is the validator surface the scheduler needs.
type TokenDebugger interface {
	DebugToken(ctx context.Context, token string) (*TokenInfo, error)
}

// Enqueuer is the queue surface the scheduler needs.
type Enqueuer interface {
	EnqueueJobDelayed(jobType jobqueue.JobType, payload map[string]interface{}, delay time.Duration) (*jobqueue.Job, error)
}

// Marker is the debounce cache. A set marker collapses bursts of triggers
// for the same provider user into one scheduled revalidation.
type Marker interface {
	Exists(key string) (bool, error)
	Set(key string, value interface{}, ttl time.Duration) error
}

// Scheduler runs revalidation passes over all live tokens of a provider user.
// Per user it moves Idle -> Scheduled (debounced trigger) -> Running (job
// execution) -> Idle, either finalizing or cooperatively rescheduling when a
// newer token arrived mid-run.
type Scheduler struct {
	tokens    repository.TokenRepository
	validator TokenDebugger
	queue     Enqueuer
	marker    Marker

	delay       time.Duration
	debounceTTL time.Duration
}

// NewScheduler builds a scheduler. Delay and debounce TTL come from
// REVALIDATION_DELAY_SECONDS (default 45) and
// REVALIDATION_DEBOUNCE_TTL_SECONDS (default 300).
func NewScheduler(tokens repository.TokenRepository, validator TokenDebugger, queue Enqueuer, marker Marker) *Scheduler {
	return &Scheduler{
		tokens:      tokens,
		validator:   validator,
		queue:       queue,
		marker:      marker,
		delay:       time.Duration(env.GetEnvInt("REVALIDATION_DELAY_SECONDS", 45)) * time.Second,
		debounceTTL: time.Duration(env.GetEnvInt("REVALIDATION_DEBOUNCE_TTL_SECONDS", 300)) * time.Second,
	}
}

// Trigger schedules a debounced revalidation for the provider user. Wired as
// the token store's insert hook, so it must never fail the triggering login:
// cache and queue errors are logged and swallowed.
func (s *Scheduler) Trigger(providerUserID string) {
	key := debounceKeyPrefix + providerUserID

	set, err := s.marker.Exists(key)
	if err != nil {
		log.Errorf("[Revalidation] debounce check failed for provider user %s: %v", providerUserID, err)
		// Fall through and schedule anyway; a duplicate run converges via the
		// post-run reconciliation check.
	} else if set {
		return
	}

	if err := s.marker.Set(key, "1", s.debounceTTL); err != nil {
		log.Errorf("[Revalidation] debounce marker set failed for provider user %s: %v", providerUserID, err)
	}
	if err := s.Schedule(providerUserID); err != nil {
		log.Errorf("[Revalidation] could not enqueue revalidation for provider user %s: %v", providerUserID, err)
	}
}

// Schedule enqueues a revalidation run after the configured delay, bypassing
// the debounce marker.
func (s *Scheduler) Schedule(providerUserID string) error {
	payload := jobqueue.DebugUserTokensJobPayload{ProviderUserID: providerUserID}
	_, err := s.queue.EnqueueJobDelayed(jobqueue.JobTypeDebugUserTokens, payload.ToMap(), s.delay)
	return err
}

// HandleJob is the queue handler for debug_user_tokens jobs.
func (s *Scheduler) HandleJob(ctx context.Context, job *jobqueue.Job) error {
	payload, err := jobqueue.DebugUserTokensJobPayloadFromMap(job.Payload)
	if err != nil {
		return err
	}
	return s.DebugAllTokensForUser(ctx, payload.ProviderUserID)
}

// DebugAllTokensForUser revalidates every live token of a provider user and
// reconciles the store down to a single authoritative token. When a newer
// token shows up during the run the whole pass is rescheduled instead of
// finalized, so stale information never clobbers it.
func (s *Scheduler) DebugAllTokensForUser(ctx context.Context, providerUserID string) error {
	snapshot, err := s.tokens.ActiveTokens(providerUserID)
	if err != nil {
		return err
	}

	snapshotSet := make(map[string]bool, len(snapshot))
	for _, t := range snapshot {
		snapshotSet[t.Token] = true
	}

	for _, t := range snapshot {
		if err := s.debugOne(ctx, providerUserID, t); err != nil {
			return err
		}
	}

	best, err := s.tokens.GetAccessToken(providerUserID)
	if errors.Is(err, repository.ErrTokenNotFound) {
		// Every snapshot token failed, possibly racing a deletion elsewhere.
		log.Infof("[Revalidation] no tokens left for provider user %s", providerUserID)
		return nil
	}
	if err != nil {
		return err
	}

	if !snapshotSet[best.Token] {
		log.Infof("[Revalidation] newer token arrived for provider user %s during run, rescheduling", providerUserID)
		return &jobqueue.RescheduleError{Delay: s.delay}
	}

	return s.tokens.InvalidateOthers(providerUserID, best.Token)
}

func (s *Scheduler) debugOne(ctx context.Context, providerUserID string, token models.UserToken) error {
	info, err := s.validator.DebugToken(ctx, token.Token)
	if err != nil {
		var dbgErr *TokenDebugError
		if errors.As(err, &dbgErr) {
			log.Warnf("[Revalidation] invalidating dead token (id=%d) for provider user %s: %v", token.ID, providerUserID, dbgErr)
			return s.tokens.InvalidateToken(token.Token)
		}
		// Transient exhaustion or infrastructure failure: best effort, leave
		// the rest to the queue's retry policy.
		return err
	}
	if info.ProviderUserID != "" && info.ProviderUserID != token.ProviderUserID {
		// The provider attributes this token to someone else than the stored
		// row; a monitored anomaly, ownership stays with the row.
		log.Warnf("[Revalidation] token ownership mismatch (id=%d): stored provider user %s, introspection reports %s",
			token.ID, token.ProviderUserID, info.ProviderUserID)
	}
	return s.tokens.InsertToken(providerUserID, token.Token, info.ExpiresAt)
}

// CacheMarker backs the debounce marker with the process-wide Redis cache.
type CacheMarker struct{}

func (CacheMarker) Exists(key string) (bool, error) {
	return cache.Exists(key)
}

func (CacheMarker) Set(key string, value interface{}, ttl time.Duration) error {
	return cache.Set(key, value, ttl)
}
