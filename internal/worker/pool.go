package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"institution-chat/internal/metrics"
)

// Job is a unit of background work. ctx is cancelled when the pool stops.
type Job func(ctx context.Context)

// WorkerPool runs jobs on a fixed set of goroutines fed by a bounded queue.
type WorkerPool struct {
	name    string
	workers int
	log     *zap.Logger

	mu      sync.RWMutex
	stopped bool
	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWorkerPool(name string, workerCount, queueSize int, log *zap.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		name:    name,
		workers: workerCount,
		log:     log,
		jobs:    make(chan Job, queueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (wp *WorkerPool) Start() {
	wp.log.Info("starting worker pool", zap.String("pool", wp.name), zap.Int("workers", wp.workers))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.run()
	}
}

func (wp *WorkerPool) run() {
	defer wp.wg.Done()
	metrics.WorkerActive.WithLabelValues(wp.name).Add(1)
	defer metrics.WorkerActive.WithLabelValues(wp.name).Sub(1)

	for job := range wp.jobs {
		wp.execute(job)
		metrics.WorkerProcessed.WithLabelValues(wp.name).Inc()
	}
}

func (wp *WorkerPool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil {
			wp.log.Error("worker job panicked", zap.String("pool", wp.name), zap.Any("panic", r))
		}
	}()
	job(wp.ctx)
}

// Submit enqueues job without blocking. It reports false when the queue is
// full or the pool has been stopped.
func (wp *WorkerPool) Submit(job Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return false
	}
	select {
	case wp.jobs <- job:
		return true
	default:
		return false
	}
}

// Stop drains queued jobs and waits for the workers to exit. Jobs still
// running when ctx expires see their context cancelled.
func (wp *WorkerPool) Stop(ctx context.Context) {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		wp.cancel()
		<-done
	}
	wp.cancel()
	wp.log.Info("stopped worker pool", zap.String("pool", wp.name))
}
