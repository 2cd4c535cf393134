package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"storefront/internal/adapters/out/memory"
	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/identity"
)

var errBoom = errors.New("boom")

// manualScheduler fires timers only when Fire is called.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	f       func()
	d       time.Duration
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{f: f, d: d}
	s.timers = append(s.timers, t)
	return t
}

// Fire runs every live timer and returns how many ran.
func (s *manualScheduler) Fire() int {
	s.mu.Lock()
	live := []*manualTimer{}
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			live = append(live, t)
		}
	}
	s.mu.Unlock()

	for _, t := range live {
		t.f()
	}
	return len(live)
}

func (s *manualScheduler) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// switchableIdentity is an auth collaborator the test drives.
type switchableIdentity struct {
	mu  sync.Mutex
	id  identity.Identity
	err error
}

func (s *switchableIdentity) Set(id identity.Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.err = id, nil
}

func (s *switchableIdentity) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *switchableIdentity) CurrentIdentity(context.Context) (identity.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.err
}

// recordingNotifier keeps every notice.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []RestoreNotice
}

func (n *recordingNotifier) NotifyRestored(_ context.Context, x RestoreNotice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, x)
	return nil
}

func (n *recordingNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.notices)
}

// flakyStore wraps a store and fails reads/writes on demand.
type flakyStore struct {
	cartdom.SnapshotStore
	mu        sync.Mutex
	failWrite bool
	failRead  error
	writes    []string
}

func (f *flakyStore) Read(ctx context.Context, key string) (*cartdom.Cart, error) {
	f.mu.Lock()
	err := f.failRead
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.SnapshotStore.Read(ctx, key)
}

func (f *flakyStore) Write(ctx context.Context, key string, c cartdom.Cart) error {
	f.mu.Lock()
	fail := f.failWrite
	if !fail {
		f.writes = append(f.writes, key)
	}
	f.mu.Unlock()
	if fail {
		return errBoom
	}
	return f.SnapshotStore.Write(ctx, key, c)
}

func (f *flakyStore) Writes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.writes...)
}

func (f *flakyStore) SetFailWrite(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWrite = v
}

func (f *flakyStore) SetFailRead(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failRead = err
}

// gatedStore holds every Write until release is closed.
type gatedStore struct {
	cartdom.SnapshotStore
	entered chan string
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		SnapshotStore: memory.NewCartSnapshotRepositoryMem(),
		entered:       make(chan string, 16),
		release:       make(chan struct{}),
	}
}

func (g *gatedStore) Write(ctx context.Context, key string, c cartdom.Cart) error {
	g.entered <- key
	select {
	case <-g.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	return g.SnapshotStore.Write(ctx, key, c)
}

type harness struct {
	ids      *switchableIdentity
	local    *memory.LocalStoreMem
	store    *flakyStore
	notifier *recordingNotifier
	sched    *manualScheduler
}

func newHarness() *harness {
	return &harness{
		ids:      &switchableIdentity{},
		local:    memory.NewLocalStoreMem(),
		store:    &flakyStore{SnapshotStore: memory.NewCartSnapshotRepositoryMem()},
		notifier: &recordingNotifier{},
		sched:    &manualScheduler{},
	}
}

// session builds a fresh session over the harness state, like a page load.
func (h *harness) session() *CartSessionUsecase {
	return NewCartSessionUsecase(CartSessionDeps{
		Identities: h.ids,
		Local:      h.local,
		Snapshots:  h.store,
		Notifier:   h.notifier,
		Scheduler:  h.sched,
	})
}

func (h *harness) seed(key string, lines ...cartdom.CartLine) {
	if err := h.store.SnapshotStore.Write(context.Background(), key, cartdom.New(lines...)); err != nil {
		panic(err)
	}
}

func (h *harness) snapshot(key string) *cartdom.Cart {
	c, err := h.store.SnapshotStore.Read(context.Background(), key)
	if err != nil {
		panic(err)
	}
	return c
}

func line(pid string, qty int) cartdom.CartLine {
	return cartdom.CartLine{ProductID: pid, Name: "product " + pid, UnitPrice: 1000, Quantity: qty}
}
