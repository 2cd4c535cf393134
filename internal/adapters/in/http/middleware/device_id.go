package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	DeviceIDHeader = "X-Device-Id"
	DeviceIDCookie = "device_id"

	deviceIDMaxLen     = 128
	deviceCookieMaxAge = 400 * 24 * 60 * 60 // browsers cap cookie lifetime at 400 days
)

// DeviceID resolves the device a request comes from: the X-Device-Id header,
// then the device_id cookie. When neither carries a usable id, a new uuid is
// issued as a cookie (and echoed in the response header).
func DeviceID(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := validDeviceID(r.Header.Get(DeviceIDHeader))
			if id == "" {
				if c, err := r.Cookie(DeviceIDCookie); err == nil {
					id = validDeviceID(c.Value)
				}
			}
			if id == "" {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     DeviceIDCookie,
					Value:    id,
					Path:     "/",
					MaxAge:   deviceCookieMaxAge,
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(DeviceIDHeader, id)

			ctx := context.WithValue(r.Context(), ctxKeyDeviceID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentDeviceID returns the id set by DeviceID.
func CurrentDeviceID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(ctxKeyDeviceID).(string)
	return id, ok && id != ""
}

// validDeviceID accepts [A-Za-z0-9_-]{1,128}; anything else is "".
func validDeviceID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > deviceIDMaxLen {
		return ""
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ""
		}
	}
	return s
}
