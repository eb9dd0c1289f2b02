package worker

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/martinsuchenak/netcanvas/internal/log"
)

// ErrStopped is returned by Submit once the pool is stopping.
var ErrStopped = errors.New("worker pool stopped")

// WorkerPool runs jobs on a fixed set of workers. Each worker owns its
// own queue and jobs are routed by key, so jobs sharing a key run one at
// a time in submission order.
type WorkerPool struct {
	shards []chan Job
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	stopped bool
}

// Job represents a unit of work
type Job struct {
	ID      string
	Key     string
	Handler func(context.Context) error
	Result  chan error
}

// NewWorkerPool creates a pool of maxWorkers workers, each with room for
// queueSize pending jobs.
func NewWorkerPool(maxWorkers, queueSize int) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		shards: make([]chan Job, maxWorkers),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := range p.shards {
		p.shards[i] = make(chan Job, queueSize)
	}
	return p
}

// Start starts the worker pool
func (p *WorkerPool) Start() {
	for i := range p.shards {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Info("Worker pool started", "workers", len(p.shards))
}

// Stop refuses new jobs, runs everything already queued and waits for
// the workers to exit.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	for _, ch := range p.shards {
		close(ch)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

// Submit queues a job on the worker that owns job.Key. It blocks while
// that worker's queue is full.
func (p *WorkerPool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.shards[p.shard(job.Key)] <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

func (p *WorkerPool) shard(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(p.shards)))
}

// worker is the worker goroutine
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	for job := range p.shards[id] {
		log.Trace("Worker executing job", "worker_id", id, "job_id", job.ID)

		err := job.Handler(p.ctx)
		if err != nil {
			log.Warn("Job failed", "worker_id", id, "job_id", job.ID, "error", err)
		}
		if job.Result != nil {
			job.Result <- err
		}
	}
}
