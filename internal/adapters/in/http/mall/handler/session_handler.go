package mallHandler

import (
	"net/http"

	"go.uber.org/zap"
)

// SessionHandler serves POST /mall/session/sync: the client calls it on page
// load and whenever its auth state changes. The response carries the
// reconciled cart and, once per sign-in, the restore notice.
type SessionHandler struct {
	sessions SessionSource
	log      *zap.Logger
}

func NewSessionHandler(sessions SessionSource, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{sessions: sessions, log: logger.Named("mall_session_handler")}
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s, ok := resolveSession(w, r, h.sessions)
	if !ok {
		return
	}

	res := s.Evaluate(r.Context())
	if res.IdentityErr != nil {
		h.log.Warn("identity unavailable; tick degraded", zap.Error(res.IdentityErr))
	}
	h.log.Debug("sync",
		zap.Stringer("transition", res.Transition.Kind),
		zap.Bool("notice", res.Notice != nil),
		zap.Int("lines", res.Cart.LineCount()),
	)
	writeJSON(w, http.StatusOK, toSessionDTO(res, res.Cart))
}
