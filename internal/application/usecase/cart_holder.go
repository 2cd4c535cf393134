package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/session"
)

// CartHolder owns the working cart shown to the device.
type CartHolder interface {
	Cart(ctx context.Context) cartdom.Cart
	SetCart(ctx context.Context, c cartdom.Cart) error
	Clear(ctx context.Context) error
}

// LocalCartHolder keeps the working cart in memory and mirrors it to the
// device-local "cart" key. The in-memory copy stays authoritative when the
// mirror write fails.
type LocalCartHolder struct {
	local session.LocalStore
	rec   Recorder
	log   *zap.Logger

	mu     sync.Mutex
	loaded bool
	cart   cartdom.Cart
}

func NewLocalCartHolder(local session.LocalStore, rec Recorder, logger *zap.Logger) *LocalCartHolder {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalCartHolder{local: local, rec: rec, log: logger.Named("cart_holder")}
}

func (h *LocalCartHolder) Cart(ctx context.Context) cartdom.Cart {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.loadLocked(ctx)
	return h.cart.Clone()
}

func (h *LocalCartHolder) SetCart(ctx context.Context, c cartdom.Cart) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.loaded = true
	h.cart = c.Clone()

	b, err := cartdom.Encode(h.cart)
	if err != nil {
		return err
	}
	if err := h.local.Set(ctx, session.KeyCart, string(b)); err != nil {
		h.rec.StorageError("cart_write")
		h.log.Warn("mirror working cart failed", zap.Error(err))
		return err
	}
	return nil
}

func (h *LocalCartHolder) Clear(ctx context.Context) error {
	return h.SetCart(ctx, cartdom.Cart{})
}

func (h *LocalCartHolder) loadLocked(ctx context.Context) {
	if h.loaded {
		return
	}
	v, ok, err := h.local.Get(ctx, session.KeyCart)
	if err != nil {
		// retried on the next access
		h.rec.StorageError("cart_read")
		h.log.Warn("load working cart failed", zap.Error(err))
		return
	}
	h.loaded = true
	if !ok {
		return
	}
	c, err := cartdom.Decode([]byte(v))
	if err != nil {
		h.rec.StorageError("cart_malformed")
		h.log.Warn("working cart malformed; starting empty", zap.Error(err))
		return
	}
	h.cart = c
}
