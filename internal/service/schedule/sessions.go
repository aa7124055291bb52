package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/clinic-schedule/internal/model"
	"github.com/jwalitptl/clinic-schedule/internal/repository"
	"github.com/jwalitptl/clinic-schedule/internal/service/notification"
	"github.com/jwalitptl/clinic-schedule/pkg/metrics"
)

// SessionConfig controls how long an idle store is kept.
type SessionConfig struct {
	TTL             time.Duration
	CleanupInterval time.Duration
	Debounce        time.Duration
	WriteTimeout    time.Duration
	// CloseTimeout bounds the flush of a store that expires.
	CloseTimeout time.Duration
}

// Sessions keeps one loaded Store per owner while it is being edited.
// Every access extends the session; an expired session is flushed and
// closed before a new one is opened for the same owner.
//
// Evictions only happen with mu held, so a replacement store never loads
// while its predecessor still has writes pending.
type Sessions struct {
	cfg     SessionConfig
	repo    repository.ScheduleRepository
	sink    notification.Sink
	metrics *metrics.Metrics
	logger  zerolog.Logger

	cache *cache.Cache
	mu    sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

func NewSessions(cfg SessionConfig, repo repository.ScheduleRepository, sink notification.Sink, m *metrics.Metrics, logger zerolog.Logger) *Sessions {
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = 10 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Minute
	}
	s := &Sessions{
		cfg:     cfg,
		repo:    repo,
		sink:    sink,
		metrics: m,
		logger:  logger.With().Str("component", "schedule_sessions").Logger(),
		// expired items are swept under mu by Sessions.janitor
		cache: cache.New(cfg.TTL, 0),
		stop:  make(chan struct{}),
	}
	s.cache.OnEvicted(s.evicted)
	go s.janitor(cfg.CleanupInterval)
	return s
}

func (s *Sessions) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			s.cache.DeleteExpired()
			s.mu.Unlock()
		case <-s.stop:
			return
		}
	}
}

func sessionKey(kind model.OwnerKind, ownerID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", kind, ownerID)
}

// Get returns the owner's store, loading it on first use. clinicID is the
// doctor's fallback clinic and is ignored for clinic owners; a non-nil
// value replaces the one the session was opened with.
func (s *Sessions) Get(ctx context.Context, kind model.OwnerKind, ownerID, clinicID uuid.UUID) (*Store, error) {
	key := sessionKey(kind, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.cache.Get(key); ok {
		store := v.(*Store)
		s.cache.SetDefault(key, store)
		if store.SetClinic(clinicID) {
			if err := store.Fetch(ctx); err != nil {
				return nil, err
			}
		}
		return store, nil
	}

	// an expired store may still sit in the cache with writes pending
	s.cache.DeleteExpired()

	store := NewStore(Config{
		Kind:         kind,
		OwnerID:      ownerID,
		ClinicID:     clinicID,
		Debounce:     s.cfg.Debounce,
		WriteTimeout: s.cfg.WriteTimeout,
	}, s.repo, s.sink, s.metrics, s.logger)
	if err := store.Fetch(ctx); err != nil {
		return nil, err
	}
	s.cache.SetDefault(key, store)
	if s.metrics != nil {
		s.metrics.ScheduleSessions.Inc()
	}
	s.logger.Debug().Str("session", key).Msg("schedule session opened")
	return store, nil
}

// Lookup returns the store of an open session without loading one.
func (s *Sessions) Lookup(kind model.OwnerKind, ownerID uuid.UUID) (*Store, bool) {
	v, ok := s.cache.Get(sessionKey(kind, ownerID))
	if !ok {
		return nil, false
	}
	return v.(*Store), true
}

// Stores lists the open sessions.
func (s *Sessions) Stores() []*Store {
	items := s.cache.Items()
	out := make([]*Store, 0, len(items))
	for _, it := range items {
		out = append(out, it.Object.(*Store))
	}
	return out
}

func (s *Sessions) Len() int { return s.cache.ItemCount() }

// Drop ends one session now.
func (s *Sessions) Drop(kind model.OwnerKind, ownerID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Delete(sessionKey(kind, ownerID))
}

func (s *Sessions) evicted(key string, v interface{}) {
	store, ok := v.(*Store)
	if !ok {
		return
	}
	if s.metrics != nil {
		s.metrics.ScheduleSessions.Dec()
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CloseTimeout)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		s.logger.Error().Err(err).Str("session", key).Msg("failed to close schedule session")
		return
	}
	s.logger.Debug().Str("session", key).Msg("schedule session closed")
}

// Close flushes and closes every session.
func (s *Sessions) Close(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.DeleteExpired()
	var firstErr error
	for key, it := range s.cache.Items() {
		store := it.Object.(*Store)
		if err := store.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close session %s: %w", key, err)
		}
		if s.metrics != nil {
			s.metrics.ScheduleSessions.Dec()
		}
	}
	s.cache.Flush()
	return firstErr
}
