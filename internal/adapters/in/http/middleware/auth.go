// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient is an alias of the firebase auth client, so DI can
// hand over *middleware.FirebaseAuthClient.
type FirebaseAuthClient = fbauth.Client

// TokenVerifier verifies a Firebase ID token. *FirebaseAuthClient satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// ctxKey is a private type so keys never collide (SA1029).
type ctxKey struct{ name string }

var (
	ctxKeyUID      = ctxKey{name: "uid"}
	ctxKeyEmail    = ctxKey{name: "email"}
	ctxKeyDeviceID = ctxKey{name: "deviceId"}
)

// bearerToken returns the token of an "Authorization: Bearer x" header.
// present is false when there is no bearer header at all.
func bearerToken(r *http.Request) (token string, present bool) {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if h == "" {
		return "", false
	}
	scheme, rest, _ := strings.Cut(h, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

// claimString reads an optional string claim.
func claimString(tok *fbauth.Token, key string) string {
	if tok == nil || tok.Claims == nil {
		return ""
	}
	if v, ok := tok.Claims[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func writeMiddlewareErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
