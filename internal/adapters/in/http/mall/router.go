// internal/adapters/in/http/mall/router.go
package mall

import (
	"net/http"

	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/middleware"
)

// Deps is the shopper-facing (mall) handler set.
type Deps struct {
	// /mall/session/sync
	Session http.Handler
	// /mall/me/cart, /mall/me/cart/items
	Cart http.Handler

	// per-route status/latency; nil disables
	Observer middleware.HTTPObserver
	Logger   *zap.Logger
}

// handleSafe registers pattern with h.
// If h is nil, it logs and registers NotFoundHandler instead (so Cloud Run won't crash).
func handleSafe(mux *http.ServeMux, pattern string, h http.Handler, name string, deps Deps) {
	if h == nil {
		log := deps.Logger
		if log == nil {
			log = zap.NewNop()
		}
		log.Warn("nil handler; registering NotFoundHandler", zap.String("handler", name), zap.String("pattern", pattern))
		h = http.NotFoundHandler()
	}
	mux.Handle(pattern, middleware.Instrument(deps.Observer, pattern, h))
}

// Register registers shopper-facing routes onto mux.
func Register(mux *http.ServeMux, deps Deps) {
	if mux == nil {
		return
	}

	// session tick
	handleSafe(mux, "/mall/session/sync", deps.Session, "Session", deps)

	// cart
	handleSafe(mux, "/mall/me/cart", deps.Cart, "Cart", deps)
	handleSafe(mux, "/mall/me/cart/", deps.Cart, "Cart", deps)
}
