// internal/application/usecase/cart_usecase.go
package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/identity"
	"storefront/internal/domain/session"
)

// TickResult is what one evaluation tick produced.
type TickResult struct {
	Transition session.Transition
	Cart       cartdom.Cart
	Notice     *RestoreNotice
	// IdentityErr is set when the tick degraded to NoChange because the
	// identity source could not answer.
	IdentityErr error
}

// CartSessionUsecase reconciles the working cart of one device with the
// per-account snapshots across sign-in, sign-out and account switch.
//
// Ticks and cart mutations are serialised; debounced writes run on timer
// goroutines and never touch the working cart.
type CartSessionUsecase struct {
	observer  *SessionObserver
	engine    *CartMergeEngine
	gate      *NotificationGate
	holder    CartHolder
	debouncer *SnapshotDebouncer
	log       *zap.Logger

	mu      sync.Mutex
	loaded  bool
	current identity.Identity
}

// CartSessionDeps wires one device session.
type CartSessionDeps struct {
	Identities IdentitySource
	Local      session.LocalStore
	Snapshots  cartdom.SnapshotStore
	Notifier   Notifier
	Recorder   Recorder
	Scheduler  Scheduler
	// DebounceDelay <= 0 means DefaultDebounceDelay.
	DebounceDelay time.Duration
	Logger        *zap.Logger
}

func NewCartSessionUsecase(d CartSessionDeps) *CartSessionUsecase {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartSessionUsecase{
		observer:  NewSessionObserver(d.Identities, d.Local, d.Recorder, logger),
		engine:    NewCartMergeEngine(d.Snapshots, d.Recorder, logger),
		gate:      NewNotificationGate(d.Local, d.Notifier, d.Recorder, logger),
		holder:    NewLocalCartHolder(d.Local, d.Recorder, logger),
		debouncer: NewSnapshotDebouncer(d.Snapshots, d.Scheduler, d.DebounceDelay, d.Recorder, logger),
		log:       logger.Named("cart_session"),
	}
}

// Evaluate runs one tick: classify the transition, merge, gate the notice.
// Running it again with unchanged inputs writes and notifies nothing.
func (uc *CartSessionUsecase) Evaluate(ctx context.Context) TickResult {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	tr, idErr := uc.observer.Observe(ctx)

	freshLoad := !uc.loaded
	uc.loaded = true
	if freshLoad && idErr == nil && tr.Kind == session.NoChange && tr.Current.IsGuest() {
		uc.gate.Reset(ctx)
	}

	if tr.Kind != session.NoChange {
		// pending writes belong to the identity that just stopped being current
		uc.debouncer.Cancel()
	}

	res := uc.engine.Apply(ctx, tr, uc.holder.Cart(ctx))

	if tr.Kind != session.NoChange {
		if err := uc.holder.SetCart(ctx, res.Cart); err != nil {
			uc.log.Warn("persist working cart failed", zap.Stringer("kind", tr.Kind), zap.Error(err))
		}
	}

	notice := uc.gate.Observe(ctx, tr, res)

	for _, f := range res.Failed {
		uc.debouncer.Schedule(f.Key, f.Cart)
	}

	switch tr.Kind {
	case session.GuestToAccount:
		// the guest cart becomes this account's saved cart
		if !res.Restored && !res.ReadFailed && !res.Cart.IsEmpty() && len(res.Failed) == 0 {
			uc.debouncer.Schedule(tr.To.Key(), res.Cart)
		}
	case session.NoChange:
		if !tr.Current.IsGuest() {
			uc.debouncer.RetryFailed()
		}
	}

	if idErr == nil {
		uc.current = tr.Current
	}

	return TickResult{
		Transition:  tr,
		Cart:        res.Cart,
		Notice:      notice,
		IdentityErr: idErr,
	}
}

// Current is the identity seen by the last successful tick.
func (uc *CartSessionUsecase) Current() identity.Identity {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.current
}

// Cart returns the working cart.
func (uc *CartSessionUsecase) Cart(ctx context.Context) cartdom.Cart {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.holder.Cart(ctx)
}

// AddItem adds line to the working cart.
func (uc *CartSessionUsecase) AddItem(ctx context.Context, line cartdom.CartLine) (cartdom.Cart, error) {
	if strings.TrimSpace(line.ProductID) == "" || line.Quantity <= 0 || line.UnitPrice < 0 {
		return cartdom.Cart{}, ErrCartInvalidArgument
	}
	return uc.mutate(ctx, func(c *cartdom.Cart) error { return c.Add(line) })
}

// SetItemQty sets the quantity of productID. qty <= 0 removes the line.
func (uc *CartSessionUsecase) SetItemQty(ctx context.Context, productID string, qty int) (cartdom.Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return cartdom.Cart{}, ErrCartInvalidArgument
	}
	return uc.mutate(ctx, func(c *cartdom.Cart) error { return c.SetQty(productID, qty) })
}

// RemoveItem removes productID from the working cart.
func (uc *CartSessionUsecase) RemoveItem(ctx context.Context, productID string) (cartdom.Cart, error) {
	return uc.SetItemQty(ctx, productID, 0)
}

// Clear empties the working cart.
func (uc *CartSessionUsecase) Clear(ctx context.Context) (cartdom.Cart, error) {
	return uc.mutate(ctx, func(c *cartdom.Cart) error {
		*c = cartdom.Cart{}
		return nil
	})
}

// Close writes a pending debounced snapshot immediately. No snapshot write
// is scheduled afterwards.
func (uc *CartSessionUsecase) Close(ctx context.Context) error {
	return uc.drain(ctx, uc.seal())
}

// seal stops the debouncer and returns the write it still owed.
func (uc *CartSessionUsecase) seal() *PendingWrite {
	return uc.debouncer.Seal()
}

func (uc *CartSessionUsecase) retired() bool {
	return uc.debouncer.Sealed()
}

func (uc *CartSessionUsecase) drain(ctx context.Context, p *PendingWrite) error {
	return uc.debouncer.Drain(ctx, p)
}

// mutate applies fn to the working cart. While signed in, the account
// snapshot write is (re)scheduled.
func (uc *CartSessionUsecase) mutate(ctx context.Context, fn func(c *cartdom.Cart) error) (cartdom.Cart, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	c := uc.holder.Cart(ctx)
	if err := fn(&c); err != nil {
		return uc.holder.Cart(ctx), err
	}
	if err := uc.holder.SetCart(ctx, c); err != nil {
		uc.log.Warn("persist working cart failed", zap.Error(err))
	}

	owner := uc.current
	if !uc.loaded {
		// no tick yet; the marker names the identity this cart belongs to
		owner, _ = uc.observer.readMarker(ctx)
	}
	if !owner.IsGuest() {
		uc.debouncer.Schedule(owner.Key(), c)
	}
	return c, nil
}
