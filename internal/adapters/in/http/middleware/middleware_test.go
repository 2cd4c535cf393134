package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain/identity"
)

type fakeVerifier map[string]*fbauth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if t, ok := f[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("bad token")
}

func identityEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok {
			http.Error(w, "no identity", http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(id.String() + "|" + id.Email()))
	})
}

func TestUserAuth(t *testing.T) {
	mw := &UserAuthMiddleware{FirebaseAuth: fakeVerifier{
		"good":  {UID: "u1", Claims: map[string]interface{}{"email": " u1@example.com "}},
		"nouid": {UID: " "},
	}}
	h := mw.Handler(identityEcho())

	tests := []struct {
		name     string
		auth     string
		wantCode int
		wantBody string
	}{
		{"no header is guest", "", http.StatusOK, "Guest|"},
		{"valid token", "Bearer good", http.StatusOK, "Account(u1)|u1@example.com"},
		{"scheme is case-insensitive", "bearer good", http.StatusOK, "Account(u1)|u1@example.com"},
		{"invalid token", "Bearer bad", http.StatusUnauthorized, "invalid token"},
		{"empty token", "Bearer ", http.StatusUnauthorized, "empty bearer"},
		{"blank uid", "Bearer nouid", http.StatusUnauthorized, "invalid uid"},
		{"other scheme is guest", "Basic abc", http.StatusOK, "Guest|"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestUserAuth_NotInitialized(t *testing.T) {
	h := (&UserAuthMiddleware{}).Handler(identityEcho())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, "guests never need the verifier")

	req.Header.Set("Authorization", "Bearer x")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeviceID(t *testing.T) {
	var seen string
	h := DeviceID(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentDeviceID(r)
	}))

	// header wins over cookie
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, "dev-header")
	req.AddCookie(&http.Cookie{Name: DeviceIDCookie, Value: "dev-cookie"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "dev-header", seen)
	assert.Empty(t, rec.Result().Cookies())

	// cookie
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceIDCookie, Value: "dev-cookie"})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "dev-cookie", seen)

	// invalid header falls through to a fresh id
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DeviceIDHeader, "../etc/passwd")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Len(t, rec.Result().Cookies(), 1)
	issued := rec.Result().Cookies()[0]
	assert.Equal(t, DeviceIDCookie, issued.Name)
	assert.Equal(t, issued.Value, seen)
	assert.Equal(t, seen, rec.Header().Get(DeviceIDHeader))
	assert.Len(t, seen, 36)
}

func TestValidDeviceID(t *testing.T) {
	assert.Equal(t, "abc_DEF-123", validDeviceID(" abc_DEF-123 "))
	assert.Equal(t, "", validDeviceID("a b"))
	assert.Equal(t, "", validDeviceID(strings.Repeat("a", deviceIDMaxLen+1)))
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	CORS("https://shop.example")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), DeviceIDHeader)

	rec = httptest.NewRecorder()
	CORS("")(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecover(t *testing.T) {
	h := Recover(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
}

type obsCall struct {
	route string
	code  int
}

type fakeObserver struct{ calls []obsCall }

func (f *fakeObserver) ObserveHTTP(route string, code int, _ time.Duration) {
	f.calls = append(f.calls, obsCall{route, code})
}

func TestInstrument(t *testing.T) {
	obs := &fakeObserver{}
	h := Instrument(obs, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?fail=1", nil))

	assert.Equal(t, []obsCall{{"/x", 200}, {"/x", 400}}, obs.calls)
}
