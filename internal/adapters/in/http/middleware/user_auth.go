// internal/adapters/in/http/middleware/user_auth.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"storefront/internal/domain/identity"
)

// UserAuthMiddleware resolves the shopper identity of a request.
//
//   - no bearer token: Guest
//   - valid Firebase ID token: Account(uid) with the optional email claim
//   - invalid token: 401 (never Guest)
//
// The identity is stored with identity.WithContext.
type UserAuthMiddleware struct {
	FirebaseAuth TokenVerifier
	Logger       *zap.Logger
}

func (m *UserAuthMiddleware) Handler(next http.Handler) http.Handler {
	log := m.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("user_auth")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idToken, present := bearerToken(r)
		if !present {
			ctx := identity.WithContext(r.Context(), identity.Guest())
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		if idToken == "" {
			writeMiddlewareErr(w, http.StatusUnauthorized, "unauthorized: empty bearer token")
			return
		}
		if m.FirebaseAuth == nil {
			writeMiddlewareErr(w, http.StatusServiceUnavailable, "user auth middleware not initialized")
			return
		}

		token, err := m.FirebaseAuth.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			log.Debug("verify id token failed", zap.Int("tokenLen", len(idToken)), zap.Error(err))
			writeMiddlewareErr(w, http.StatusUnauthorized, "invalid token")
			return
		}

		uid := strings.TrimSpace(token.UID)
		if uid == "" {
			writeMiddlewareErr(w, http.StatusUnauthorized, "invalid uid in token")
			return
		}
		email := claimString(token, "email")

		ctx := r.Context()
		ctx = identity.WithContext(ctx, identity.Account(uid).WithEmail(email))
		ctx = context.WithValue(ctx, ctxKeyUID, uid)
		if email != "" {
			ctx = context.WithValue(ctx, ctxKeyEmail, email)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CurrentUserUID returns the Firebase UID of a signed-in request.
func CurrentUserUID(r *http.Request) (string, bool) {
	u, ok := r.Context().Value(ctxKeyUID).(string)
	if !ok || strings.TrimSpace(u) == "" {
		return "", false
	}
	return strings.TrimSpace(u), true
}

// CurrentUserUIDAndEmail returns uid/email (email can be empty).
func CurrentUserUIDAndEmail(r *http.Request) (uid string, email string, ok bool) {
	uid, ok = CurrentUserUID(r)
	if !ok {
		return "", "", false
	}
	if e, okEmail := r.Context().Value(ctxKeyEmail).(string); okEmail {
		email = strings.TrimSpace(e)
	}
	return uid, email, true
}
