// internal/platform/di/mall/register.go
package mall

import (
	"net/http"
	"strings"

	mallhttp "storefront/internal/adapters/in/http/mall"
	mallhandler "storefront/internal/adapters/in/http/mall/handler"
	"storefront/internal/adapters/in/http/middleware"
)

const MetricsPath = "/metrics"

// Register registers mall routes onto mux.
// Pure DI: construct handlers and pass into mall router.Register.
//
// Chain per mall route: DeviceID -> UserAuth (optional auth) -> handler.
// Recover/CORS wrap the whole mux in cmd/mall.
func Register(mux *http.ServeMux, cont *Container) {
	if mux == nil || cont == nil {
		return
	}
	cfg := cont.Infra.Config

	userAuth := &middleware.UserAuthMiddleware{Logger: cont.Logger}
	if cont.Infra.FirebaseAuth != nil {
		userAuth.FirebaseAuth = cont.Infra.FirebaseAuth
	}
	deviceID := middleware.DeviceID(strings.HasPrefix(cfg.CORSAllowedOrigin, "https://"))

	wrap := func(h http.Handler) http.Handler {
		return deviceID(userAuth.Handler(h))
	}

	mallhttp.Register(mux, mallhttp.Deps{
		Session:  wrap(mallhandler.NewSessionHandler(cont.Sessions, cont.Logger)),
		Cart:     wrap(mallhandler.NewCartHandler(cont.Sessions, cont.Logger)),
		Observer: cont.Metrics,
		Logger:   cont.Logger,
	})

	mux.Handle(MetricsPath, cont.Metrics.Handler())
}
