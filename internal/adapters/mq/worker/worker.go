// Package worker applies map commands. Sessions are hashed onto shards, each
// drained by exactly one worker, so a session's commands run one at a time in
// arrival order while different sessions proceed in parallel.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/skymap/internal/adapters/mq/queue"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/pkg/logger"
	"github.com/okian/skymap/pkg/metrics"
	"github.com/okian/skymap/pkg/tracing"
)

const (
	defaultQueueCapacity = 1024
	poolShutdownTimeout  = 30 * time.Second
	tracerName           = "github.com/okian/skymap/internal/adapters/mq/worker"
)

// Applier applies one command to its session.
type Applier interface {
	Apply(ctx context.Context, c model.Command) model.Result
}

// Queue defines how workers receive commands.
type Queue interface {
	Dequeue() <-chan model.Command
}

// Worker drains one queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is closed.
	Run(ctx context.Context)

	// Shutdown stops the worker without draining the queue.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string
	tracer  trace.Tracer

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		applier:  applier,
		name:     "worker",
		tracer:   tracing.Tracer(tracerName),
		shutdown: make(chan struct{}),
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

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	commands := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case c, ok := <-commands:
			if !ok {
				return
			}
			w.process(ctx, c)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies c and delivers exactly one reply when c.Reply is set.
func (w *InMemoryWorker) process(ctx context.Context, c model.Command) { //nolint:gocritic // hugeParam: commands travel by value
	ctx, span := w.tracer.Start(ctx, "skymap.command", trace.WithAttributes(
		attribute.String("skymap.session", c.SessionID),
		attribute.String("skymap.kind", string(c.Kind)),
		attribute.String("skymap.worker", w.name),
	))
	defer span.End()

	res := w.applier.Apply(ctx, c)

	if !c.EnqueuedAt.IsZero() {
		metrics.RecordCommandLatency(float64(time.Since(c.EnqueuedAt).Microseconds()) / 1000)
	}
	if res.Err != nil {
		metrics.RecordCommandError(string(c.Kind))
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
		w.logger.Debug(ctx, "command failed",
			logger.String("session_id", c.SessionID),
			logger.String("kind", string(c.Kind)),
			logger.Error(res.Err),
		)
	} else {
		span.SetAttributes(attribute.Int64("skymap.sequence", int64(res.Sequence)))
	}

	if c.Reply != nil {
		select {
		case c.Reply <- res:
		default:
			w.logger.Warn(ctx, "reply channel full, dropping result",
				logger.String("session_id", c.SessionID),
				logger.String("command_id", c.ID),
			)
		}
	}
}

// Pool routes commands to shards and runs one worker per shard.
type Pool struct {
	queues  []*queue.InMemoryQueue
	workers []*InMemoryWorker

	logger logger.Logger
}

// NewPool creates shardCount shards. A non-positive count uses runtime.NumCPU.
func NewPool(shardCount int, applier Applier, opts ...PoolOption) *Pool {
	if shardCount < 1 {
		shardCount = runtime.NumCPU()
	}
	cfg := poolConfig{queueCapacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{
		queues:  make([]*queue.InMemoryQueue, shardCount),
		workers: make([]*InMemoryWorker, shardCount),
		logger:  cfg.logger,
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("worker-pool")
	}

	for i := 0; i < shardCount; i++ {
		shard := strconv.Itoa(i)
		p.queues[i] = queue.NewInMemoryQueue(queue.WithCapacity(cfg.queueCapacity), queue.WithShard(shard))
		p.workers[i] = NewInMemoryWorker(p.queues[i], applier,
			WithName("worker-"+shard),
			WithLogger(p.logger.Named("worker-"+shard)),
		)
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("shards", len(p.workers)))
}

// ShardFor returns the shard a session's commands are routed to.
func (p *Pool) ShardFor(sessionID string) int {
	return int(xxhash.Sum64String(sessionID) % uint64(len(p.queues)))
}

// Submit enqueues c on its session's shard without blocking.
func (p *Pool) Submit(ctx context.Context, c model.Command) error { //nolint:gocritic // hugeParam: commands travel by value
	if c.EnqueuedAt.IsZero() {
		c.EnqueuedAt = time.Now()
	}
	return p.queues[p.ShardFor(c.SessionID)].Enqueue(ctx, c)
}

// QueueSizes returns the backlog of every shard.
func (p *Pool) QueueSizes() []int {
	sizes := make([]int, len(p.queues))
	for i, q := range p.queues {
		sizes[i] = q.Len()
	}
	return sizes
}

// Shutdown closes every queue and waits for workers to drain them.
func (p *Pool) Shutdown(ctx context.Context) error {
	for _, q := range p.queues {
		if err := q.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			_ = w.Shutdown(shutdownCtx)
		}
	}
	return nil
}
