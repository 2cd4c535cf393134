// internal/application/usecase/cart_merge.go
package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/session"
)

// MergeResult is the outcome of applying one transition.
type MergeResult struct {
	// Cart is the new authoritative working cart.
	Cart cartdom.Cart
	// Restored is true when Cart came from the target account's snapshot.
	Restored      bool
	RestoredLines int
	// ReadFailed is set when the target snapshot could not be read. Nothing
	// is known about the account's saved cart, so it must not be overwritten.
	ReadFailed bool
	// Wrote lists snapshot keys written successfully.
	Wrote []string
	// Failed holds writes that did not reach the store; the caller retries them.
	Failed []PendingWrite
}

// PendingWrite is a snapshot write that still has to happen.
type PendingWrite struct {
	Key  string
	Cart cartdom.Cart
}

// CartMergeEngine computes the working cart and the snapshot I/O for each
// transition. The account's saved cart replaces (never unions with) the
// working cart when it is restored.
type CartMergeEngine struct {
	store cartdom.SnapshotStore
	rec   Recorder
	log   *zap.Logger
}

func NewCartMergeEngine(store cartdom.SnapshotStore, rec Recorder, logger *zap.Logger) *CartMergeEngine {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartMergeEngine{store: store, rec: rec, log: logger.Named("cart_merge")}
}

// Apply never fails: storage errors degrade to "nothing restored" and the
// current cart is kept.
func (e *CartMergeEngine) Apply(ctx context.Context, tr session.Transition, current cartdom.Cart) MergeResult {
	current = current.Clone()

	switch tr.Kind {
	case session.GuestToAccount:
		res := MergeResult{Cart: current}
		saved := e.read(ctx, &res, tr.To.Key())
		if saved == nil || saved.IsEmpty() {
			return res
		}
		// the guest cart is dropped
		res.Cart = *saved
		res.Restored = true
		res.RestoredLines = saved.LineCount()
		return res

	case session.AccountToGuest:
		res := MergeResult{Cart: cartdom.Cart{}}
		if !current.IsEmpty() {
			e.write(ctx, &res, tr.From.Key(), current)
		}
		return res

	case session.AccountToAccount:
		res := MergeResult{Cart: cartdom.Cart{}}
		if !current.IsEmpty() {
			e.write(ctx, &res, tr.From.Key(), current)
		}
		saved := e.read(ctx, &res, tr.To.Key())
		if saved != nil {
			res.Cart = *saved
			if !saved.IsEmpty() {
				res.Restored = true
				res.RestoredLines = saved.LineCount()
			}
		}
		return res

	default:
		return MergeResult{Cart: current}
	}
}

// read treats a malformed snapshot as absent; any other error sets
// res.ReadFailed.
func (e *CartMergeEngine) read(ctx context.Context, res *MergeResult, key string) *cartdom.Cart {
	if e.store == nil {
		return nil
	}
	c, err := e.store.Read(ctx, key)
	if err != nil {
		op := "snapshot_read"
		if errors.Is(err, cartdom.ErrMalformedSnapshot) {
			op = "snapshot_malformed"
		} else {
			res.ReadFailed = true
		}
		e.rec.StorageError(op)
		e.log.Warn("snapshot read failed; treating as absent", zap.String("key", key), zap.Error(err))
		return nil
	}
	if c == nil {
		return nil
	}
	cp := c.Clone()
	return &cp
}

func (e *CartMergeEngine) write(ctx context.Context, res *MergeResult, key string, c cartdom.Cart) {
	if e.store == nil {
		res.Failed = append(res.Failed, PendingWrite{Key: key, Cart: c.Clone()})
		return
	}
	if err := e.store.Write(ctx, key, c); err != nil {
		e.rec.StorageError("snapshot_write")
		e.log.Warn("snapshot write failed; will retry", zap.String("key", key), zap.Int("lines", c.LineCount()), zap.Error(err))
		res.Failed = append(res.Failed, PendingWrite{Key: key, Cart: c.Clone()})
		return
	}
	res.Wrote = append(res.Wrote, key)
}
