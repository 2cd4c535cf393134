package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartMetrics_Counters(t *testing.T) {
	m := New()

	m.Transition("guest_to_account")
	m.Transition("guest_to_account")
	m.Transition("account_to_guest")
	m.Notified()
	m.StorageError("snapshot_read")
	m.DebouncedWrite(true)
	m.DebouncedWrite(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("guest_to_account")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("account_to_guest")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storageErrors.WithLabelValues("snapshot_read")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.debouncedWrite.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.debouncedWrite.WithLabelValues("error")))
}

func TestCartMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveHTTP("/mall/me/cart", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `cart_http_requests_total{code="200",route="/mall/me/cart"} 1`)
	assert.Contains(t, body, "cart_http_request_duration_seconds_bucket")
}
