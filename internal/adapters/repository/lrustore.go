package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/okian/skymap/pkg/logger"
	"github.com/okian/skymap/pkg/metrics"
)

const (
	defaultMaxSessions           = 1024
	defaultTTL                   = 30 * time.Minute
	defaultMetricsUpdateInterval = 5 * time.Second
)

// LRUStore is a bounded in-memory Store. Sessions expire after ttl without
// a Get, and the least recently used session is evicted when full.
type LRUStore struct {
	maxSessions           int
	ttl                   time.Duration
	metricsUpdateInterval time.Duration
	log                   logger.Logger

	sessions *expirable.LRU[string, *Session]
	// deleting holds ids removed through Delete so the evict callback can
	// tell them apart from capacity and idle evictions.
	deleting sync.Map

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewLRUStore constructs a session store with configuration options.
func NewLRUStore(ctx context.Context, opts ...Option) *LRUStore {
	s := &LRUStore{
		maxSessions:           defaultMaxSessions,
		ttl:                   defaultTTL,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get().Named("sessions")
	}

	s.sessions = expirable.NewLRU[string, *Session](s.maxSessions, s.onEvict, s.ttl)

	s.stopChan = make(chan struct{})
	s.startMetricsUpdater(ctx)
	return s
}

// onEvict runs under the LRU's lock and must not call back into it.
func (s *LRUStore) onEvict(id string, _ *Session) {
	if _, ok := s.deleting.Load(id); ok {
		return
	}
	metrics.RecordSessionEvicted()
	s.log.Debug(context.Background(), "session evicted", logger.String("session_id", id))
}

func (s *LRUStore) Put(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" || sess.Map == nil {
		return fmt.Errorf("%w: missing id or map", ErrInvalidSession)
	}
	s.sessions.Add(sess.ID, sess)
	return nil
}

func (s *LRUStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	// Re-adding an existing key restarts its expiry.
	s.sessions.Add(id, sess)
	return sess, nil
}

func (s *LRUStore) Delete(ctx context.Context, id string) error {
	s.deleting.Store(id, struct{}{})
	defer s.deleting.Delete(id)

	if !s.sessions.Remove(id) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *LRUStore) List(ctx context.Context) []*Session {
	return s.sessions.Values()
}

func (s *LRUStore) Count(ctx context.Context) int {
	return s.sessions.Len()
}

// Close stops the metrics updater.
func (s *LRUStore) Close() error {
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
	return nil
}

func (s *LRUStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateSessionCount(s.sessions.Len())
			}
		}
	}()
}
