package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

var (
	ErrNilTask    = errors.New("nil task")
	ErrQueueFull  = errors.New("worker queue full")
	ErrStopped    = errors.New("worker pool stopped")
	ErrNotStarted = errors.New("worker pool not started")
)

type Task func(ctx context.Context) error

// Pool runs background tasks on a fixed set of workers, and keyed tasks on
// one goroutine per key. Tasks with the same key run one after another in
// submission order; different keys never wait on each other.
type Pool struct {
	wg     sync.WaitGroup
	shards []chan Task
	quit   chan struct{}
	next   atomic.Uint64
	log    *zerolog.Logger

	mu         sync.Mutex
	ctx        context.Context
	stopped    bool
	keyed      map[int64]*keyQueue
	maxPending int
}

// keyQueue holds the tasks waiting for one key. It exists only while its
// drain goroutine runs.
type keyQueue struct {
	tasks []Task
}

// NewPool creates workers for Submit; queue bounds both the per-worker
// queue and the pending tasks per key.
func NewPool(workers, queue int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queue <= 0 {
		queue = 4
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "worker_pool").Logger()
	p := &Pool{
		shards:     make([]chan Task, workers),
		quit:       make(chan struct{}),
		log:        &l,
		keyed:      make(map[int64]*keyQueue),
		maxPending: queue,
	}
	for i := range p.shards {
		p.shards[i] = make(chan Task, queue)
	}
	return p
}

func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	for i, jobs := range p.shards {
		p.wg.Add(1)
		go func(id int, jobs <-chan Task) {
			defer p.wg.Done()
			log := p.log.With().Int("worker", id).Logger()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-jobs:
					p.run(ctx, &log, task)
				}
			}
		}(i, jobs)
	}
}

func (p *Pool) run(ctx context.Context, log *zerolog.Logger, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		log.Warn().Err(err).Msg("task error")
	}
}

// Stop signals workers to exit and waits for running tasks. Queued tasks are dropped.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.quit)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// Submit queues task on the next worker without blocking.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}
	shard := p.shards[p.next.Add(1)%uint64(len(p.shards))]
	select {
	case <-p.quit:
		return ErrStopped
	default:
	}
	select {
	case shard <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitKeyed appends task to the queue of key without blocking. The queue is
// drained by its own goroutine, started on demand and gone once it is empty.
func (p *Pool) SubmitKeyed(ctx context.Context, key int64, task Task) error {
	if task == nil {
		return ErrNilTask
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.stopped:
		return ErrStopped
	case p.ctx == nil:
		return ErrNotStarted
	}

	q, running := p.keyed[key]
	if !running {
		q = &keyQueue{}
		p.keyed[key] = q
	}
	if len(q.tasks) >= p.maxPending {
		return ErrQueueFull
	}
	q.tasks = append(q.tasks, task)
	if !running {
		p.wg.Add(1)
		go p.drain(key, q)
	}
	return nil
}

func (p *Pool) drain(key int64, q *keyQueue) {
	defer p.wg.Done()
	log := p.log.With().Int64("key", key).Logger()
	for {
		p.mu.Lock()
		if len(q.tasks) == 0 || p.stopped || p.ctx.Err() != nil {
			delete(p.keyed, key)
			p.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks[0] = nil
		q.tasks = q.tasks[1:]
		ctx := p.ctx
		p.mu.Unlock()

		p.run(ctx, &log, task)
	}
}

// Pending reports how many keys currently have queued or running tasks.
func (p *Pool) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keyed)
}
