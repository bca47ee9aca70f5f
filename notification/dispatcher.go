package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/acme/outline-api/config"
	"github.com/acme/outline-api/internal/observability"
	"go.uber.org/zap"
)

// Notification outcomes used as metric labels
const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusDropped = "dropped"
)

var (
	// ErrNotRunning is returned when enqueueing on a dispatcher that is not started
	ErrNotRunning = errors.New("notification dispatcher not running")
	// ErrQueueFull is returned when the buffer is saturated
	ErrQueueFull = errors.New("notification queue full")
)

// sendTimeout bounds one delivery attempt
const sendTimeout = 15 * time.Second

// Dispatcher delivers invitation emails on a pool of background workers
type Dispatcher struct {
	mailer      Mailer
	metrics     *observability.Metrics
	logger      *zap.Logger
	queue       chan InvitationEmail
	workerCount int
	wg          sync.WaitGroup
	mu          sync.RWMutex
	running     bool
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(mailer Mailer, cfg config.NotifyConfig, metrics *observability.Metrics, logger *zap.Logger) *Dispatcher {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		mailer:      mailer,
		metrics:     metrics,
		logger:      logger,
		queue:       make(chan InvitationEmail, cfg.BufferSize),
		workerCount: workers,
	}
}

// Start launches the workers
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("notification dispatcher already started")
	}

	for i := 0; i < d.workerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.running = true

	d.logger.Info("started notification dispatcher",
		zap.Int("worker_count", d.workerCount),
		zap.Int("buffer_size", cap(d.queue)))
	return nil
}

// Stop closes the queue and waits up to timeout for queued emails to drain
func (d *Dispatcher) Stop(timeout time.Duration) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return ErrNotRunning
	}
	d.running = false
	pending := len(d.queue)
	close(d.queue)
	d.mu.Unlock()

	d.logger.Info("stopping notification dispatcher", zap.Int("pending", pending))

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("notification dispatcher stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("notification dispatcher stop timeout after %v", timeout)
	}
}

// Enqueue queues an invitation email without blocking. A saturated queue
// drops the email.
func (d *Dispatcher) Enqueue(email InvitationEmail) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.running {
		d.metrics.RecordNotification(StatusDropped)
		return ErrNotRunning
	}

	select {
	case d.queue <- email:
		return nil
	default:
		d.metrics.RecordNotification(StatusDropped)
		d.logger.Warn("notification queue full, dropping invitation email", zap.String("to", email.To))
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()

	for email := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		err := d.mailer.SendInvitationEmail(ctx, email)
		cancel()

		if err != nil {
			d.metrics.RecordNotification(StatusFailed)
			d.logger.Error("invitation email failed, invitation still created",
				zap.Int("worker_id", id),
				zap.String("to", email.To),
				zap.Error(err))
			continue
		}
		d.metrics.RecordNotification(StatusSent)
	}
}
