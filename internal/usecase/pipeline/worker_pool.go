package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/johnquangdev/meeting-pipeline/internal/domain/entities"
	"github.com/johnquangdev/meeting-pipeline/internal/domain/repositories"
	ucerrors "github.com/johnquangdev/meeting-pipeline/internal/usecase/errors"
	"github.com/johnquangdev/meeting-pipeline/pkg/jobcontext"
)

// Runner executes a meeting chain
type Runner interface {
	Run(ctx context.Context, meetingID uuid.UUID) error
	RunLeased(ctx context.Context, lease repositories.Lease) error
}

type job struct {
	meetingID uuid.UUID
	lease     repositories.Lease // nil when the worker must take the lock
}

// WorkerPool runs meeting chains off the request path. Each queued meeting is
// run by exactly one worker; different meetings run in parallel.
type WorkerPool struct {
	runner Runner
	queue  chan job
	logger *zap.Logger

	queuedMu sync.Mutex
	queued   map[uuid.UUID]struct{}

	workerMutex sync.Mutex
	workerWg    sync.WaitGroup
	cancel      context.CancelFunc
	isRunning   bool
}

var _ Dispatcher = (*WorkerPool)(nil)

// NewWorkerPool creates a pool with a bounded queue
func NewWorkerPool(runner Runner, queueSize int, logger *zap.Logger) *WorkerPool {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &WorkerPool{
		runner: runner,
		queue:  make(chan job, queueSize),
		queued: make(map[uuid.UUID]struct{}),
		logger: logger,
	}
}

// Start launches workerCount workers. Cancelling ctx or calling Stop ends them.
func (p *WorkerPool) Start(ctx context.Context, workerCount int) error {
	p.workerMutex.Lock()
	defer p.workerMutex.Unlock()

	if p.isRunning {
		return ucerrors.ErrPoolRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.isRunning = true

	if p.logger != nil {
		p.logger.Info("🚀 Starting pipeline worker pool", zap.Int("worker_count", workerCount))
	}

	for i := 0; i < workerCount; i++ {
		p.workerWg.Add(1)
		go p.worker(runCtx, i)
	}
	return nil
}

// Stop cancels in-flight runs, waits for the workers and releases the leases
// of jobs that never started. Interrupted steps stay running and are resumed later.
func (p *WorkerPool) Stop() error {
	p.workerMutex.Lock()
	defer p.workerMutex.Unlock()

	if !p.isRunning {
		return ucerrors.ErrPoolNotRunning
	}

	if p.logger != nil {
		p.logger.Info("🛑 Stopping pipeline worker pool...")
	}

	p.cancel()
	p.workerWg.Wait()
	p.isRunning = false

	for {
		select {
		case j := <-p.queue:
			p.forget(j.meetingID)
			p.releaseLease(j.lease)
		default:
			if p.logger != nil {
				p.logger.Info("✅ Pipeline worker pool stopped")
			}
			return nil
		}
	}
}

// Submit queues a meeting for a run. A meeting already waiting in the queue is
// not queued twice.
func (p *WorkerPool) Submit(meetingID uuid.UUID) error {
	if !p.markQueued(meetingID) {
		return nil
	}
	select {
	case p.queue <- job{meetingID: meetingID}:
		return nil
	default:
		p.forget(meetingID)
		return ucerrors.ErrQueueFull
	}
}

// SubmitLeased queues a run under a lease the caller already acquired.
// On error the lease is released.
func (p *WorkerPool) SubmitLeased(lease repositories.Lease) error {
	p.markQueued(lease.MeetingID())
	select {
	case p.queue <- job{meetingID: lease.MeetingID(), lease: lease}:
		return nil
	default:
		p.forget(lease.MeetingID())
		p.releaseLease(lease)
		return ucerrors.ErrQueueFull
	}
}

// Queued reports whether the meeting waits in the queue
func (p *WorkerPool) Queued(meetingID uuid.UUID) bool {
	p.queuedMu.Lock()
	defer p.queuedMu.Unlock()
	_, ok := p.queued[meetingID]
	return ok
}

func (p *WorkerPool) markQueued(meetingID uuid.UUID) bool {
	p.queuedMu.Lock()
	defer p.queuedMu.Unlock()
	if _, ok := p.queued[meetingID]; ok {
		return false
	}
	p.queued[meetingID] = struct{}{}
	return true
}

func (p *WorkerPool) forget(meetingID uuid.UUID) {
	p.queuedMu.Lock()
	delete(p.queued, meetingID)
	p.queuedMu.Unlock()
}

func (p *WorkerPool) worker(ctx context.Context, workerID int) {
	defer p.workerWg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.queue:
			p.forget(j.meetingID)
			p.process(jobcontext.WithWorkerID(ctx, workerID), workerID, j)
		}
	}
}

func (p *WorkerPool) process(ctx context.Context, workerID int, j job) {
	var err error
	if j.lease != nil {
		err = p.runner.RunLeased(ctx, j.lease)
		p.releaseLease(j.lease)
	} else {
		err = p.runner.Run(ctx, j.meetingID)
	}

	if p.logger == nil {
		return
	}
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrPipelineBusy):
		p.logger.Info("⏭️ Meeting already being processed",
			zap.Int("worker_id", workerID),
			zap.String("meeting_id", j.meetingID.String()),
		)
	case errors.Is(err, context.Canceled):
		p.logger.Info("⏸️ Run interrupted by shutdown",
			zap.Int("worker_id", workerID),
			zap.String("meeting_id", j.meetingID.String()),
		)
	default:
		p.logger.Error("❌ Pipeline run aborted",
			zap.Int("worker_id", workerID),
			zap.String("meeting_id", j.meetingID.String()),
			zap.Error(err),
		)
	}
}

func (p *WorkerPool) releaseLease(lease repositories.Lease) {
	if lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := lease.Release(ctx); err != nil && p.logger != nil {
		p.logger.Warn("⚠️ Failed to release meeting lock",
			zap.String("meeting_id", lease.MeetingID().String()),
			zap.Error(err),
		)
	}
}
