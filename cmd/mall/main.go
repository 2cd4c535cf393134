// cmd/mall/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"storefront/internal/adapters/in/http/middleware"
	appcfg "storefront/internal/infra/config"
	mallDI "storefront/internal/platform/di/mall"
	shared "storefront/internal/platform/di/shared"
)

// atomicHandler allows swapping the underlying handler at runtime safely.
type atomicHandler struct {
	v atomic.Value // stores http.Handler
}

func newAtomicHandler(initial http.Handler) *atomicHandler {
	ah := &atomicHandler{}
	if initial == nil {
		initial = http.NotFoundHandler()
	}
	ah.v.Store(initial)
	return ah
}

func (h *atomicHandler) Store(next http.Handler) {
	if next == nil {
		return
	}
	h.v.Store(next)
}

func (h *atomicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cur := h.v.Load()
	if cur == nil {
		http.NotFound(w, r)
		return
	}
	cur.(http.Handler).ServeHTTP(w, r)
}

func newLogger(level string) (*zap.Logger, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "debug" {
		return zap.NewDevelopmentConfig().Build()
	}
	zc := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func main() {
	ctx := context.Background()

	cfg, err := appcfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "[boot] config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[boot] logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Named("boot")

	// ─────────────────────────────────────────────────────────────
	// Start listening ASAP with lightweight mux (healthz only)
	// ─────────────────────────────────────────────────────────────
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthz)

	wrapOuter := func(h http.Handler) http.Handler {
		return middleware.CORS(cfg.CORSAllowedOrigin)(middleware.Recover(logger)(h))
	}
	switcher := newAtomicHandler(wrapOuter(healthMux))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           switcher,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// ─────────────────────────────────────────────────────────────
	// Lifetime management (infra/container)
	// ─────────────────────────────────────────────────────────────
	var infraHolder atomic.Pointer[shared.Infra]
	var mallHolder atomic.Pointer[mallDI.Container]

	shuttingDown := make(chan struct{})

	// ─────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c

		close(shuttingDown)
		log.Info("received signal; shutting down", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown error", zap.Error(err))
		}

		// Pending snapshot writes are flushed before infra goes away.
		if cont := mallHolder.Swap(nil); cont != nil {
			log.Info("closing mall container")
			if err := cont.Close(shutdownCtx); err != nil {
				log.Warn("mall container close error", zap.Error(err))
			}
		}
		if inf := infraHolder.Swap(nil); inf != nil {
			log.Info("closing infra resources")
			if err := inf.Close(); err != nil {
				log.Warn("infra close error", zap.Error(err))
			}
		}

		close(idleConnsClosed)
	}()

	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// ─────────────────────────────────────────────────────────────
	// Heavy DI init in background; then swap handler to full app mux
	// ─────────────────────────────────────────────────────────────
	go func() {
		initCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()

		// 1) shared infra (mall service owns it)
		inf, err := shared.NewInfra(initCtx, cfg, logger)
		if err != nil {
			log.Warn("shared infra init failed; serving /healthz only", zap.Error(err))
			return
		}
		infraHolder.Store(inf)

		// 2) mall container (required)
		cont, err := mallDI.NewContainer(initCtx, inf)
		if err != nil {
			_ = inf.Close()
			infraHolder.Store(nil)
			log.Warn("mall di init failed; serving /healthz only", zap.Error(err))
			return
		}
		mallHolder.Store(cont)

		select {
		case <-shuttingDown:
			if c := mallHolder.Swap(nil); c != nil {
				_ = c.Close(context.Background())
			}
			if i := infraHolder.Swap(nil); i != nil {
				_ = i.Close()
			}
			return
		default:
		}

		fullMux := http.NewServeMux()

		// keep healthz
		fullMux.HandleFunc("/healthz", healthz)

		// 3) mall routes
		mallDI.Register(fullMux, cont)
		log.Info("mall routes registered")

		switcher.Store(wrapOuter(fullMux))
		log.Info("handler switched to mall router")
	}()

	<-idleConnsClosed
	log.Info("server stopped")
}
