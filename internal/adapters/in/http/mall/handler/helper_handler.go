// internal/adapters/in/http/mall/handler/helper_handler.go
package mallHandler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"storefront/internal/adapters/in/http/middleware"
	usecase "storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	"storefront/internal/domain/identity"
	"storefront/internal/domain/session"
)

const maxBodyBytes = 1 << 20

// SessionSource hands out the cart session of a device (usecase.SessionRegistry).
type SessionSource interface {
	Session(deviceID string) (*usecase.CartSessionUsecase, error)
}

// ============================================================
// DTOs
// ============================================================

type cartLineDTO struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	UnitPrice int64   `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	ImageRef  *string `json:"imageRef,omitempty"`
	LineTotal int64   `json:"lineTotal"`
}

type cartDTO struct {
	Lines         []cartLineDTO `json:"lines"`
	TotalQuantity int           `json:"totalQuantity"`
	Subtotal      int64         `json:"subtotal"`
}

type sessionDTO struct {
	Identity   string                 `json:"identity"`
	AccountID  string                 `json:"accountId,omitempty"`
	Transition string                 `json:"transition"`
	Cart       cartDTO                `json:"cart"`
	Notice     *usecase.RestoreNotice `json:"notice,omitempty"`
	Degraded   bool                   `json:"degraded,omitempty"`
}

func toCartDTO(c cartdom.Cart) cartDTO {
	out := cartDTO{
		Lines:         make([]cartLineDTO, 0, len(c.Lines)),
		TotalQuantity: c.TotalQuantity(),
		Subtotal:      c.Subtotal(),
	}
	for _, l := range c.Lines {
		out.Lines = append(out.Lines, cartLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
			LineTotal: l.UnitPrice * int64(l.Quantity),
		})
	}
	return out
}

func toSessionDTO(res usecase.TickResult, c cartdom.Cart) sessionDTO {
	cur := res.Transition.Current
	return sessionDTO{
		Identity:   identityLabel(cur),
		AccountID:  cur.AccountID(),
		Transition: res.Transition.Kind.String(),
		Cart:       toCartDTO(c),
		Notice:     res.Notice,
		Degraded:   res.IdentityErr != nil,
	}
}

func identityLabel(id identity.Identity) string {
	if id.IsGuest() {
		return "guest"
	}
	return "account"
}

// ============================================================
// HTTP helpers
// ============================================================

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method_not_allowed"})
}

// readJSON decodes a bounded JSON body. An empty body is io.EOF.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// resolveSession returns the session of the request's device or writes the error.
func resolveSession(w http.ResponseWriter, r *http.Request, sessions SessionSource) (*usecase.CartSessionUsecase, bool) {
	if sessions == nil {
		writeErr(w, http.StatusInternalServerError, "cart handler is not configured")
		return nil, false
	}
	deviceID, _ := middleware.CurrentDeviceID(r)
	s, err := sessions.Session(deviceID)
	if err != nil {
		if errors.Is(err, session.ErrDeviceIDRequired) {
			writeErr(w, http.StatusBadRequest, "device id is required")
			return nil, false
		}
		if errors.Is(err, usecase.ErrRegistryClosed) {
			writeErr(w, http.StatusServiceUnavailable, "shutting down")
			return nil, false
		}
		writeErr(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return s, true
}

func writeMutationErr(w http.ResponseWriter, err error) {
	if errors.Is(err, usecase.ErrCartInvalidArgument) || errors.Is(err, cartdom.ErrInvalidCart) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	writeErr(w, http.StatusInternalServerError, err.Error())
}
