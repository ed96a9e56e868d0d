package workerpool

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a one-shot unit of work. It captures everything it needs.
type Job func()

// Hooks observes job flow through a Pool. Implementations must be safe for
// concurrent use; every worker calls them directly.
type Hooks interface {
	JobQueued()
	JobStarted(worker int)
	JobFinished(worker int, d time.Duration, panicked bool)
}

// Stats is a point-in-time view of a Pool.
type Stats struct {
	Workers   int   `json:"workers"`
	Busy      int64 `json:"busy"`
	Queued    int   `json:"queued"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Panics    int64 `json:"panics"`
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithHooks installs a job observer.
func WithHooks(h Hooks) Option {
	return func(p *Pool) {
		p.hooks = h
	}
}

// Pool is a fixed set of workers fed by a single unbounded queue.
type Pool struct {
	queue   *queue
	workers []*worker

	hooks  Hooks
	logger *slog.Logger

	busy      atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	panics    atomic.Int64

	closeOnce sync.Once
}

// worker is one long-lived goroutine pulling jobs from the pool queue.
type worker struct {
	id   int
	done chan struct{}
}

// New starts a pool of n workers.
// It returns ErrInvalidConfig and starts nothing when n is below one.
func New(n int, opts ...Option) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("workerpool: %w: worker count must be at least 1, got %d", ErrInvalidConfig, n)
	}

	p := &Pool{
		queue:   newQueue(),
		workers: make([]*worker, 0, n),
		logger:  slog.Default().With("component", "workerpool"),
	}
	for _, opt := range opts {
		opt(p)
	}

	for id := 0; id < n; id++ {
		w := &worker{id: id, done: make(chan struct{})}
		p.workers = append(p.workers, w)
		go p.loop(w)
	}

	return p, nil
}

// Execute enqueues job. It does not wait for a free worker.
//
// Calling Execute after Close is a programming error and panics with
// ErrPoolClosed.
func (p *Pool) Execute(job Job) {
	if job == nil {
		return
	}
	if err := p.queue.push(job); err != nil {
		panic(err)
	}
	p.submitted.Add(1)
	if p.hooks != nil {
		p.hooks.JobQueued()
	}
}

// Close stops intake, lets the workers drain the queue and joins all of them.
// It is safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.logger.Debug("closing job queue", "queued", p.queue.len())
		p.queue.close()

		for _, w := range p.workers {
			<-w.done
			p.logger.Debug("worker closing", "worker", w.id)
		}

		p.logger.Debug("pool closed",
			"submitted", p.submitted.Load(),
			"completed", p.completed.Load(),
			"panics", p.panics.Load())
	})
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   len(p.workers),
		Busy:      p.busy.Load(),
		Queued:    p.queue.len(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panics:    p.panics.Load(),
	}
}

func (p *Pool) loop(w *worker) {
	defer close(w.done)

	for {
		job, ok := p.queue.pop()
		if !ok {
			return
		}
		p.run(w, job)
	}
}

// run executes a single job and keeps the worker alive if it panics.
func (p *Pool) run(w *worker, job Job) {
	p.busy.Add(1)
	if p.hooks != nil {
		p.hooks.JobStarted(w.id)
	}
	start := time.Now()
	panicked := true

	defer func() {
		if panicked {
			r := recover()
			p.panics.Add(1)
			p.logger.Error("job panicked",
				"worker", w.id,
				"panic", r,
				"stack", string(debug.Stack()))
		}
		p.busy.Add(-1)
		p.completed.Add(1)
		if p.hooks != nil {
			p.hooks.JobFinished(w.id, time.Since(start), panicked)
		}
	}()

	job()
	panicked = false
}
