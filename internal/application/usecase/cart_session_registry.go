package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/session"
)

const (
	DefaultSessionCacheSize = 10_000
	DefaultSessionIdleTTL   = 30 * time.Minute

	evictFlushTimeout = 10 * time.Second
)

// SessionRegistryConfig configures NewSessionRegistry.
type SessionRegistryConfig struct {
	Devices    session.DeviceRepository
	Snapshots  cartdom.SnapshotStore
	Identities IdentitySource
	Notifier   Notifier
	Recorder   Recorder
	Scheduler  Scheduler

	DebounceDelay time.Duration
	CacheSize     int
	IdleTTL       time.Duration

	Logger *zap.Logger
}

// ErrRegistryClosed is returned by Session after Close.
var ErrRegistryClosed = errors.New("session registry closed")

// SessionRegistry hands out the CartSessionUsecase of a device.
// Idle sessions are evicted; eviction flushes their pending snapshot write.
// Device state itself is persisted, so an evicted device resumes where it was.
//
// A device never has two live sessions: an evicted session is sealed on
// eviction, and its replacement is built only after the sealed session's
// writes have finished.
type SessionRegistry struct {
	cfg   SessionRegistryConfig
	log   *zap.Logger
	mu    sync.Mutex // serialises Session and Close
	cache *expirable.LRU[string, *CartSessionUsecase]

	// dmu is taken from the eviction callback, which runs under the cache lock.
	dmu      sync.Mutex
	closing  bool
	draining map[string]*retiredSession
	wg       sync.WaitGroup
}

// retiredSession is an evicted session whose last write is still owed.
type retiredSession struct {
	s     *CartSessionUsecase
	write *PendingWrite
	owned bool // someone is draining it
	done  chan struct{}
}

func NewSessionRegistry(cfg SessionRegistryConfig) *SessionRegistry {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultSessionCacheSize
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultSessionIdleTTL
	}
	if cfg.Identities == nil {
		cfg.Identities = ContextIdentitySource{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &SessionRegistry{
		cfg:      cfg,
		log:      logger.Named("session_registry"),
		draining: make(map[string]*retiredSession),
	}
	r.cache = expirable.NewLRU[string, *CartSessionUsecase](cfg.CacheSize, r.onEvict, cfg.IdleTTL)
	return r
}

// Session returns the session of deviceID, creating it on first use. Every
// call pushes the session's idle deadline back by IdleTTL.
func (r *SessionRegistry) Session(deviceID string) (*CartSessionUsecase, error) {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return nil, session.ErrDeviceIDRequired
	}

	for {
		r.mu.Lock()
		if s, ok := r.cache.Get(id); ok {
			// Get alone does not extend the TTL
			r.cache.Add(id, s)
			if !s.retired() {
				r.mu.Unlock()
				return s, nil
			}
			// expired between Get and Add
		}
		// An expired entry may still sit in the cache; removing it runs onEvict.
		r.cache.Remove(id)

		r.dmu.Lock()
		closing := r.closing
		old := r.draining[id]
		r.dmu.Unlock()

		if closing {
			r.mu.Unlock()
			return nil, ErrRegistryClosed
		}
		if old != nil {
			r.mu.Unlock()
			<-old.done
			continue
		}

		s, err := r.newSession(id)
		if err == nil {
			r.cache.Add(id, s)
		}
		r.mu.Unlock()
		return s, err
	}
}

func (r *SessionRegistry) newSession(id string) (*CartSessionUsecase, error) {
	local, err := r.cfg.Devices.ForDevice(id)
	if err != nil {
		return nil, err
	}
	return NewCartSessionUsecase(CartSessionDeps{
		Identities:    r.cfg.Identities,
		Local:         local,
		Snapshots:     r.cfg.Snapshots,
		Notifier:      r.cfg.Notifier,
		Recorder:      r.cfg.Recorder,
		Scheduler:     r.cfg.Scheduler,
		DebounceDelay: r.cfg.DebounceDelay,
		Logger:        r.log.With(zap.String("device", id)),
	}), nil
}

// Len is the number of sessions in the cache.
func (r *SessionRegistry) Len() int {
	return r.cache.Len()
}

// Close flushes every session, including those still draining after
// eviction, and empties the registry. Session fails afterwards.
func (r *SessionRegistry) Close(ctx context.Context) error {
	r.dmu.Lock()
	r.closing = true
	r.dmu.Unlock()

	// Purge retires every entry, expired ones included.
	r.mu.Lock()
	r.cache.Purge()
	r.mu.Unlock()

	r.dmu.Lock()
	ours := make(map[string]*retiredSession)
	for id, rs := range r.draining {
		if !rs.owned {
			rs.owned = true
			ours[id] = rs
		}
	}
	r.dmu.Unlock()

	// one failed write must not cancel the others
	var g errgroup.Group
	g.SetLimit(16)
	for id, rs := range ours {
		g.Go(func() error { return r.finish(ctx, id, rs) })
	}
	err := g.Wait()

	r.wg.Wait()
	return err
}

// onEvict runs under the cache lock: it seals s without I/O and leaves the
// write to a tracked goroutine, or to Close once closing.
func (r *SessionRegistry) onEvict(deviceID string, s *CartSessionUsecase) {
	if s == nil || s.retired() {
		return
	}
	rs := &retiredSession{s: s, write: s.seal(), done: make(chan struct{})}

	r.dmu.Lock()
	r.draining[deviceID] = rs
	owned := !r.closing
	if owned {
		rs.owned = true
		r.wg.Add(1)
	}
	r.dmu.Unlock()

	if !owned {
		return
	}
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), evictFlushTimeout)
		defer cancel()
		_ = r.finish(ctx, deviceID, rs)
	}()
}

func (r *SessionRegistry) finish(ctx context.Context, deviceID string, rs *retiredSession) error {
	err := rs.s.drain(ctx, rs.write)
	if err != nil {
		r.log.Warn("flush of evicted session failed", zap.String("device", deviceID), zap.Error(err))
	}

	r.dmu.Lock()
	if r.draining[deviceID] == rs {
		delete(r.draining, deviceID)
	}
	r.dmu.Unlock()
	close(rs.done)
	return err
}
