// Package service owns the live sky map sessions and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	workerpool "github.com/okian/skymap/internal/adapters/mq/worker"
	repository "github.com/okian/skymap/internal/adapters/repository"
	"github.com/okian/skymap/internal/domain/dedupe"
	"github.com/okian/skymap/internal/domain/model"
	"github.com/okian/skymap/internal/domain/render"
	"github.com/okian/skymap/internal/domain/skymap"
	"github.com/okian/skymap/internal/domain/types"
	"github.com/okian/skymap/pkg/logger"
	"github.com/okian/skymap/pkg/metrics"
)

// Service runs the session store and the command dispatcher.
type Service struct {
	mu sync.RWMutex

	// Core components
	sessions  *repository.LRUStore
	deduper   dedupe.Deduper
	pool      *workerpool.Pool
	renderSem *semaphore.Weighted

	// Configuration
	shardCount        int
	queueSize         int
	dedupeSize        int
	maxSessions       int
	sessionTTL        time.Duration
	commandTimeout    time.Duration
	renderConcurrency int64
	maxPNGPixels      int
	mapOptions        []skymap.Option
	fields            []model.Field
	localization      *geojson.FeatureCollection

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		shardCount:        runtime.NumCPU(),
		queueSize:         1024,
		dedupeSize:        50_000,
		maxSessions:       1024,
		sessionTTL:        30 * time.Minute,
		commandTimeout:    2 * time.Second,
		renderConcurrency: 4,
		maxPNGPixels:      16_777_216,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the session store and starts the dispatcher. The components
// outlive ctx's cancellation and stop in Stop.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting sky map service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.sessions = repository.NewLRUStore(runCtx,
		repository.WithMaxSessions(s.maxSessions),
		repository.WithTTL(s.sessionTTL),
		repository.WithLogger(s.logger.Named("sessions")),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.renderSem = semaphore.NewWeighted(s.renderConcurrency)
	s.pool = workerpool.NewPool(s.shardCount, s,
		workerpool.WithQueueCapacity(s.queueSize),
		workerpool.WithPoolLogger(s.logger.Named("worker-pool")),
	)
	s.pool.Start(runCtx)

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "sky map service started",
		logger.Int("shards", s.shardCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSessions", s.maxSessions),
		logger.Int("defaultFields", len(s.fields)),
	)
	return nil
}

// Stop drains the dispatcher and drops every session. Commands already
// queued are still applied; new ones are rejected with ErrNotStarted.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	pool, sessions, cancel := s.pool, s.sessions, s.cancel
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping sky map service...")

	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	if err := sessions.Close(); err != nil {
		s.logger.Error(ctx, "session store close failed", logger.Error(err))
	}
	cancel()

	s.logger.Info(ctx, "sky map service stopped")
}

// Started reports whether Start has run without a matching Stop.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// components returns the running components or ErrNotStarted.
func (s *Service) components() (*repository.LRUStore, *workerpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.sessions, s.pool, nil
}

// CreateSession attaches a new map to a viewport of the requested size. The
// request's fields replace the default fields when present. The default
// localization, if any, is applied before the session is published.
func (s *Service) CreateSession(ctx context.Context, req types.CreateSessionRequest) (*repository.Session, error) {
	sessions, _, err := s.components()
	if err != nil {
		return nil, err
	}

	fields := s.fields
	if len(req.Fields) > 0 {
		if fields, err = model.DecodeFields(req.Fields); err != nil {
			return nil, err
		}
	}

	id := uuid.NewString()
	log := s.logger.Named("skymap").With(logger.String("session_id", id))
	vp := skymap.NewViewport(model.Size{Width: req.Width, Height: req.Height})
	opts := append([]skymap.Option{skymap.WithLogger(log)}, s.mapOptions...)
	m := skymap.Attach(ctx, vp, fields, opts...)

	if s.localization != nil {
		if err := m.Localization(ctx, s.localization); err != nil {
			s.logger.Warn(ctx, "default localization rejected",
				logger.String("session_id", id),
				logger.Error(err),
			)
		}
	}

	sess := &repository.Session{ID: id, Viewport: vp, Map: m, CreatedAt: time.Now()}
	if err := sessions.Put(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "session created",
		logger.String("session_id", id),
		logger.Int("fields", len(fields)),
	)
	return sess, nil
}

// Session returns a live session and restarts its idle timer.
func (s *Service) Session(ctx context.Context, id string) (*repository.Session, error) {
	sessions, _, err := s.components()
	if err != nil {
		return nil, err
	}
	return sessions.Get(ctx, id)
}

// DeleteSession drops a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	sessions, _, err := s.components()
	if err != nil {
		return err
	}
	return sessions.Delete(ctx, id)
}

// SeenAndRecord atomically checks if a command id was seen and records it if not.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d == nil {
		return false
	}
	seen := d.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordCommandDuplicate()
	}
	return seen
}

// Unrecord forgets a command id so it can be retried.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.mu.RLock()
	d := s.deduper
	s.mu.RUnlock()
	if d != nil {
		d.Unrecord(ctx, id)
	}
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Do submits c to its session's shard and waits for the result. Commands for
// one session are applied in the order Do is called. Once c is queued, a
// timeout or cancellation returns an error wrapping ErrInFlight and c is
// still applied.
func (s *Service) Do(ctx context.Context, c model.Command) (model.Result, error) { //nolint:gocritic // hugeParam: commands travel by value
	sessions, pool, err := s.components()
	if err != nil {
		return model.Result{}, err
	}
	if _, err := sessions.Get(ctx, c.SessionID); err != nil {
		return model.Result{}, err
	}

	c.Reply = make(chan model.Result, 1)
	if err := pool.Submit(ctx, c); err != nil {
		return model.Result{}, err
	}

	timer := time.NewTimer(s.commandTimeout)
	defer timer.Stop()

	select {
	case res := <-c.Reply:
		return res, res.Err
	case <-ctx.Done():
		return model.Result{}, fmt.Errorf("%w: waiting for %s command: %w", ErrInFlight, c.Kind, ctx.Err())
	case <-timer.C:
		s.logger.Warn(ctx, "command timed out",
			logger.String("session_id", c.SessionID),
			logger.String("kind", string(c.Kind)),
		)
		return model.Result{}, fmt.Errorf("%w: %w: %s after %s", ErrInFlight, ErrTimeout, c.Kind, s.commandTimeout)
	}
}

// Apply runs one command against its session. It is called by the
// dispatcher's workers, one command per session at a time.
func (s *Service) Apply(ctx context.Context, c model.Command) model.Result { //nolint:gocritic // hugeParam: commands travel by value
	s.mu.RLock()
	sessions := s.sessions
	s.mu.RUnlock()
	if sessions == nil {
		return model.Result{Err: ErrNotStarted}
	}
	sess, err := sessions.Get(ctx, c.SessionID)
	if err != nil {
		return model.Result{Err: err}
	}

	switch c.Kind {
	case model.CommandResize:
		sess.Viewport.SetSize(ctx, c.Size)
	case model.CommandGesture:
		err = sess.Viewport.Dispatch(ctx, c.Gesture)
	case model.CommandLocalization:
		err = sess.Map.Localization(ctx, c.Localization)
	case model.CommandRedraw:
		sess.Map.Redraw(ctx)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
	}

	return model.Result{State: sess.Map.State(), Sequence: sess.Map.Sequence(), Err: err}
}

// RenderPNG rasterizes a session's current scene into w.
func (s *Service) RenderPNG(ctx context.Context, id string, w io.Writer) error {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return err
	}
	size := sess.Map.Size()
	if px := math.Ceil(size.Width) * math.Ceil(size.Height); px > float64(s.maxPNGPixels) {
		return fmt.Errorf("%w: %gx%g exceeds %d pixels", ErrImageTooLarge, size.Width, size.Height, s.maxPNGPixels)
	}
	s.mu.RLock()
	sem := s.renderSem
	s.mu.RUnlock()

	if err := sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("waiting for render slot: %w", err)
	}
	defer sem.Release(1)

	return render.WritePNG(w, sess.Map.Scene())
}

// Stats summarises the live sessions and the dispatcher.
func (s *Service) Stats(ctx context.Context) types.Stats {
	sessions, pool, err := s.components()
	if err != nil {
		return types.Stats{QueueSizes: []int{}}
	}

	live := sessions.List(ctx)
	queues := pool.QueueSizes()

	s.mu.RLock()
	uptime := int64(time.Since(s.startedAt).Seconds())
	s.mu.RUnlock()

	return types.Stats{
		Sessions: len(live),
		Fields: lo.Sum(lo.Map(live, func(sess *repository.Session, _ int) int {
			return len(sess.Map.Fields())
		})),
		Contours: lo.Sum(lo.Map(live, func(sess *repository.Session, _ int) int {
			return len(sess.Map.Contours())
		})),
		Redraws: lo.Sum(lo.Map(live, func(sess *repository.Session, _ int) int64 {
			return int64(sess.Map.Sequence())
		})),
		QueueBacklog:  lo.Sum(queues),
		QueueSizes:    queues,
		DedupeEntries: s.Size(),
		UptimeSeconds: uptime,
	}
}
