package jobqueue

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/pozytywnie/facebook-auth/internal/pkg/env"
)

// Manager manages the global job queue
type Manager struct {
	queue   *Queue
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		workerCount := env.GetEnvInt("JOB_QUEUE_WORKERS", 3)

		globalManager = &Manager{
			queue: NewQueue(workerCount),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue workers
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	log.Info("[JobQueue Manager] Starting job queue")
	m.queue.Start()
	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue workers
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	log.Info("[JobQueue Manager] Stopping job queue...")
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stats returns current queue depths for the admin surface.
func (m *Manager) Stats(ctx context.Context) (pending, delayed, processing int64) {
	if p, err := m.queue.GetQueueSize(ctx); err == nil {
		pending = p
	}
	if d, err := m.queue.GetDelayedSize(ctx); err == nil {
		delayed = d
	}
	if pr, err := m.queue.GetProcessingSize(ctx); err == nil {
		processing = pr
	}
	return pending, delayed, processing
}
