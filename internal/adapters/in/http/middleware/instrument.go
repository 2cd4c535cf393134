package middleware

import (
	"net/http"
	"time"
)

// HTTPObserver receives per-request measurements (infra/metrics.CartMetrics).
type HTTPObserver interface {
	ObserveHTTP(route string, code int, d time.Duration)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.code == 0 {
		s.code = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.code == 0 {
		s.code = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

// Instrument reports status and latency of route to obs. A nil obs is a no-op.
func Instrument(obs HTTPObserver, route string, next http.Handler) http.Handler {
	if obs == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)
		if sr.code == 0 {
			sr.code = http.StatusOK
		}
		obs.ObserveHTTP(route, sr.code, time.Since(start))
	})
}
