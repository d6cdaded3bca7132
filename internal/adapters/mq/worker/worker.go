// Package worker runs the per-assignment scout pipeline on a bounded pool
// of goroutines during a pass.
package worker

import (
	"context"
	"strconv"
	"time"

	"github.com/sandlin/cma-scout/internal/adapters/mq/queue"
	"github.com/sandlin/cma-scout/internal/domain/model"
	"github.com/sandlin/cma-scout/pkg/logger"
)

// defaultWorkerCount matches the pass's ingestion concurrency budget.
const defaultWorkerCount = 5

// workerShutdownTimeout bounds how long Stop waits per worker.
const workerShutdownTimeout = 5 * time.Second

// Pipeline processes one assignment end to end: ingest, match, score,
// classify, persist. Errors are the pipeline's own business; returning
// one only triggers logging here, never aborts the pool.
type Pipeline interface {
	ProcessAssignment(ctx context.Context, a model.Assignment) error
}

// Worker drains assignments off the queue until the queue closes or the
// pass context is canceled. Cancellation is cooperative: a worker
// finishes its current assignment before stopping.
type Worker struct {
	queue    queue.Queue
	pipeline Pipeline
	name     string
	done     chan struct{}
	logger   logger.Logger
}

// Option applies a configuration option to the Worker.
type Option func(*Worker)

// WithName names the worker for logging.
func WithName(name string) Option {
	return func(w *Worker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWorker creates a worker bound to a queue and pipeline.
func NewWorker(q queue.Queue, p Pipeline, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		pipeline: p,
		name:     "scout",
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes assignments until the queue drains or ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-items:
			if !ok {
				return
			}
			if err := w.pipeline.ProcessAssignment(ctx, a); err != nil {
				w.logger.Error(ctx, "assignment processing failed",
					logger.String("assignment", a.ID),
					logger.Error(err),
				)
			}
		}
	}
}

// Pool manages a fixed set of workers for one pass.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a pool of n workers sharing one queue and pipeline.
func NewPool(n int, q queue.Queue, p Pipeline) *Pool {
	if n < 1 {
		n = defaultWorkerCount
	}
	pool := &Pool{
		workers: make([]*Worker, n),
		logger:  logger.Get().Named("scout-pool"),
	}
	for i := 0; i < n; i++ {
		pool.workers[i] = NewWorker(q, p, WithName(workerName(i)))
	}
	return pool
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has finished, i.e. the queue is drained
// or the pass was canceled. Workers that take longer than the shutdown
// timeout after cancellation are logged and abandoned.
func (p *Pool) Wait(ctx context.Context) {
	for _, w := range p.workers {
		select {
		case <-w.done:
			continue
		case <-ctx.Done():
		}
		// Pass canceled: give the worker a bounded grace period to wrap
		// up its current assignment.
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
			p.logger.Warn(context.Background(), "worker did not finish after cancellation",
				logger.String("worker", w.name))
		}
	}
}

func workerName(i int) string {
	return "scout-" + strconv.Itoa(i)
}
