package mallHandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/adapters/in/http/middleware"
	"storefront/internal/adapters/out/memory"
	usecase "storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
)

type tokens map[string]*fbauth.Token

func (t tokens) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	if tok, ok := t[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("invalid")
}

type testServer struct {
	h     http.Handler
	snaps *memory.CartSnapshotRepositoryMem
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	snaps := memory.NewCartSnapshotRepositoryMem()
	reg := usecase.NewSessionRegistry(usecase.SessionRegistryConfig{
		Devices:       memory.NewDeviceRepositoryMem(),
		Snapshots:     snaps,
		DebounceDelay: time.Hour,
	})
	t.Cleanup(func() { _ = reg.Close(context.Background()) })

	auth := &middleware.UserAuthMiddleware{FirebaseAuth: tokens{
		"tok-u1": {UID: "u1", Claims: map[string]interface{}{"email": "u1@example.com"}},
		"tok-u2": {UID: "u2"},
	}}

	mux := http.NewServeMux()
	mux.Handle("/mall/session/sync", NewSessionHandler(reg, nil))
	mux.Handle("/mall/me/cart", NewCartHandler(reg, nil))
	mux.Handle("/mall/me/cart/", NewCartHandler(reg, nil))

	return &testServer{
		h:     middleware.DeviceID(false)(auth.Handler(mux)),
		snaps: snaps,
	}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (int, sessionDTO) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(middleware.DeviceIDHeader, "dev-1")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	var out sessionDTO
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func TestCartHandler_SignInRestoresOnce(t *testing.T) {
	s := newTestServer(t)
	require.NoError(t, s.snaps.Write(context.Background(), "u1", cartdom.New(
		cartdom.CartLine{ProductID: "p2", Name: "Cap", UnitPrice: 1800, Quantity: 1},
	)))

	code, res := s.do(t, http.MethodPost, "/mall/me/cart/items", "", `{"productId":"p1","name":"Tee","unitPrice":2500,"quantity":2}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "guest", res.Identity)
	require.Len(t, res.Cart.Lines, 1)
	assert.Equal(t, int64(5000), res.Cart.Subtotal)

	code, res = s.do(t, http.MethodPost, "/mall/session/sync", "tok-u1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "guest_to_account", res.Transition)
	assert.Equal(t, "u1", res.AccountID)
	require.NotNil(t, res.Notice)
	assert.Equal(t, 1, res.Notice.ItemCount)
	require.Len(t, res.Cart.Lines, 1)
	assert.Equal(t, "p2", res.Cart.Lines[0].ProductID, "saved account cart replaces the guest cart")

	code, res = s.do(t, http.MethodPost, "/mall/session/sync", "tok-u1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "no_change", res.Transition)
	assert.Nil(t, res.Notice)

	code, res = s.do(t, http.MethodPost, "/mall/session/sync", "", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "account_to_guest", res.Transition)
	assert.Empty(t, res.Cart.Lines)

	saved, err := s.snaps.Read(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	_, ok := saved.Line("p2")
	assert.True(t, ok)
}

func TestCartHandler_Mutations(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/mall/me/cart/items", "tok-u2", `{"productId":"p1","unitPrice":100,"quantity":1}`)
	require.Equal(t, http.StatusOK, code)

	code, res := s.do(t, http.MethodPut, "/mall/me/cart/items", "tok-u2", `{"productId":"p1","quantity":4}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 4, res.Cart.TotalQuantity)

	code, res = s.do(t, http.MethodGet, "/mall/me/cart", "tok-u2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, int64(400), res.Cart.Subtotal)

	code, res = s.do(t, http.MethodDelete, "/mall/me/cart/items?productId=p1", "tok-u2", "")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, res.Cart.Lines)

	code, _ = s.do(t, http.MethodPut, "/mall/me/cart/items", "tok-u2", `{"productId":"missing","quantity":1}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodDelete, "/mall/me/cart", "tok-u2", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestCartHandler_BadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		want   int
	}{
		{"invalid json", http.MethodPost, "/mall/me/cart/items", "", `{`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/mall/me/cart/items", "", `{"productId":"p1","quantity":1,"qty":1}`, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, "/mall/me/cart/items", "", `{"productId":"p1","quantity":0}`, http.StatusBadRequest},
		{"negative price", http.MethodPost, "/mall/me/cart/items", "", `{"productId":"p1","quantity":1,"unitPrice":-1}`, http.StatusBadRequest},
		{"remove without id", http.MethodDelete, "/mall/me/cart/items", "", "", http.StatusBadRequest},
		{"method", http.MethodPatch, "/mall/me/cart", "", "", http.StatusMethodNotAllowed},
		{"unknown path", http.MethodGet, "/mall/me/cart/other", "", "", http.StatusNotFound},
		{"sync needs POST", http.MethodGet, "/mall/session/sync", "", "", http.StatusMethodNotAllowed},
		{"invalid token", http.MethodPost, "/mall/session/sync", "nope", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := s.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestResolveSession_NotConfigured(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSessionHandler(nil, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mall/session/sync", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
