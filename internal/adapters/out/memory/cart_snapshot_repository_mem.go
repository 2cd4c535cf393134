// internal/adapters/out/memory/cart_snapshot_repository_mem.go
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	cartdom "storefront/internal/domain/cart"
)

// CartSnapshotRepositoryMem implements cart.SnapshotStore in process memory.
// Used by tests and by SNAPSHOT_BACKEND=memory (single-instance dev).
type CartSnapshotRepositoryMem struct {
	// TTL stamps expiresAt; <= 0 means cart.DefaultSnapshotTTL.
	TTL time.Duration

	mu   sync.RWMutex
	docs map[string]snapshotEntry
	now  func() time.Time
}

type snapshotEntry struct {
	cart      cartdom.Cart
	updatedAt time.Time
	expiresAt time.Time
}

func NewCartSnapshotRepositoryMem() *CartSnapshotRepositoryMem {
	return &CartSnapshotRepositoryMem{
		TTL:  cartdom.DefaultSnapshotTTL,
		docs: map[string]snapshotEntry{},
		now:  time.Now,
	}
}

// Read returns (nil, nil) if not found.
func (r *CartSnapshotRepositoryMem) Read(_ context.Context, key string) (*cartdom.Cart, error) {
	k := strings.TrimSpace(key)
	if k == "" {
		return nil, errors.New("cart_snapshot_repository_mem: key is empty")
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.docs[k]
	if !ok {
		return nil, nil
	}
	c := e.cart.Clone()
	return &c, nil
}

func (r *CartSnapshotRepositoryMem) Write(_ context.Context, key string, c cartdom.Cart) error {
	k := strings.TrimSpace(key)
	if k == "" {
		return errors.New("cart_snapshot_repository_mem: key is empty")
	}
	now := r.now().UTC()
	ttl := r.TTL
	if ttl <= 0 {
		ttl = cartdom.DefaultSnapshotTTL
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[k] = snapshotEntry{
		cart:      cartdom.New(c.Clone().Lines...),
		updatedAt: now,
		expiresAt: now.Add(ttl),
	}
	return nil
}

func (r *CartSnapshotRepositoryMem) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, strings.TrimSpace(key))
	return nil
}

func (r *CartSnapshotRepositoryMem) List(_ context.Context, limit int) ([]cartdom.SnapshotInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]cartdom.SnapshotInfo, 0, len(r.docs))
	for k, e := range r.docs {
		out = append(out, cartdom.SnapshotInfo{
			Key:       k,
			Lines:     e.cart.LineCount(),
			UpdatedAt: e.updatedAt,
			ExpiresAt: e.expiresAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *CartSnapshotRepositoryMem) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for k, e := range r.docs {
		if !e.expiresAt.After(now) {
			delete(r.docs, k)
			n++
		}
	}
	return n, nil
}
