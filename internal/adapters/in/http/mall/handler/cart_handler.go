// internal/adapters/in/http/mall/handler/cart_handler.go
package mallHandler

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	usecase "storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
)

// CartHandler serves the device cart endpoints.
//
//	GET    /mall/me/cart        current cart
//	DELETE /mall/me/cart        clear
//	POST   /mall/me/cart/items  add item
//	PUT    /mall/me/cart/items  set quantity
//	DELETE /mall/me/cart/items  remove item (?productId= or body)
//
// Every request first runs a session tick, so a sign-in/out observed on the
// request is reconciled before the cart is read or changed.
type CartHandler struct {
	sessions SessionSource
	log      *zap.Logger
}

func NewCartHandler(sessions SessionSource, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartHandler{sessions: sessions, log: logger.Named("mall_cart_handler")}
}

type cartItemReq struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	ImageRef  *string `json:"imageRef,omitempty"`
}

func (h *CartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	path := strings.TrimRight(r.URL.Path, "/")

	h.log.Debug("enter", zap.String("method", r.Method), zap.String("path", path))

	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	isItems := strings.HasSuffix(path, "/cart/items")
	isCart := strings.HasSuffix(path, "/cart")

	switch {
	case isCart && r.Method == http.MethodGet:
		h.handleGet(w, r, s)
	case isCart && r.Method == http.MethodDelete:
		h.handleClear(w, r, s)
	case isItems && r.Method == http.MethodPost:
		h.handleAddItem(w, r, s)
	case isItems && r.Method == http.MethodPut:
		h.handleSetItemQty(w, r, s)
	case isItems && r.Method == http.MethodDelete:
		h.handleRemoveItem(w, r, s)
	case isCart || isItems:
		methodNotAllowed(w)
	default:
		writeErr(w, http.StatusNotFound, "not found")
	}

	h.log.Debug("exit", zap.String("method", r.Method), zap.String("path", path), zap.Duration("elapsed", time.Since(start)))
}

// -------------------------
// handlers
// -------------------------

func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request, s *usecase.CartSessionUsecase) {
	res := s.Evaluate(r.Context())
	writeJSON(w, http.StatusOK, toSessionDTO(res, res.Cart))
}

func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request, s *usecase.CartSessionUsecase) {
	res := s.Evaluate(r.Context())
	c, err := s.Clear(r.Context())
	if err != nil {
		h.log.Warn("clear failed", zap.Error(err))
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(res, c))
}

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request, s *usecase.CartSessionUsecase) {
	var req cartItemReq
	if err := readJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	pid := strings.TrimSpace(req.ProductID)
	if pid == "" || req.Quantity <= 0 || req.UnitPrice < 0 {
		writeErr(w, http.StatusBadRequest, "productId, quantity(>=1), unitPrice(>=0) are required")
		return
	}

	res := s.Evaluate(r.Context())
	c, err := s.AddItem(r.Context(), cartdom.CartLine{
		ProductID: pid,
		Name:      strings.TrimSpace(req.Name),
		UnitPrice: req.UnitPrice,
		Quantity:  req.Quantity,
		ImageRef:  req.ImageRef,
	})
	if err != nil {
		h.log.Warn("add item failed", zap.String("productId", pid), zap.Error(err))
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(res, c))
}

func (h *CartHandler) handleSetItemQty(w http.ResponseWriter, r *http.Request, s *usecase.CartSessionUsecase) {
	var req cartItemReq
	if err := readJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	pid := strings.TrimSpace(req.ProductID)
	if pid == "" {
		writeErr(w, http.StatusBadRequest, "productId is required")
		return
	}

	res := s.Evaluate(r.Context())
	c, err := s.SetItemQty(r.Context(), pid, req.Quantity)
	if err != nil {
		h.log.Warn("set qty failed", zap.String("productId", pid), zap.Int("qty", req.Quantity), zap.Error(err))
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(res, c))
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request, s *usecase.CartSessionUsecase) {
	pid := strings.TrimSpace(r.URL.Query().Get("productId"))
	if pid == "" && r.ContentLength != 0 {
		var req cartItemReq
		if err := readJSON(r, &req); err != nil {
			writeErr(w, http.StatusBadRequest, "invalid json body")
			return
		}
		pid = strings.TrimSpace(req.ProductID)
	}
	if pid == "" {
		writeErr(w, http.StatusBadRequest, "productId is required")
		return
	}

	res := s.Evaluate(r.Context())
	c, err := s.RemoveItem(r.Context(), pid)
	if err != nil {
		h.log.Warn("remove item failed", zap.String("productId", pid), zap.Error(err))
		writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(res, c))
}
