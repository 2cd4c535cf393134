// internal/platform/di/mall/container.go
package mall

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	mailadapter "storefront/internal/adapters/out/mail"
	usecase "storefront/internal/application/usecase"
	"storefront/internal/infra/metrics"
	shared "storefront/internal/platform/di/shared"
)

// Container is the mall DI container.
// Pure DI: build deps only. No routing branching.
type Container struct {
	Infra  *shared.Infra
	Stores *shared.Stores
	Logger *zap.Logger

	Metrics  *metrics.CartMetrics
	Mailer   *mailadapter.RestoreMailer // nil when SendGrid is not configured
	Sessions *usecase.SessionRegistry

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewContainer wires stores, notifier and the session registry on inf.
// The restore mailer runs until Close.
func NewContainer(ctx context.Context, inf *shared.Infra) (*Container, error) {
	if inf == nil || inf.Config == nil {
		return nil, errors.New("di.mall: infra is nil")
	}
	logger := inf.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("di.mall")
	cfg := inf.Config

	stores, err := shared.NewStores(ctx, inf)
	if err != nil {
		return nil, fmt.Errorf("di.mall: %w", err)
	}

	c := &Container{
		Infra:   inf,
		Stores:  stores,
		Logger:  logger,
		Metrics: metrics.New(),
	}

	// ------------------------------------------------------------
	// Restore notice mail (optional)
	// ------------------------------------------------------------
	apiKey := strings.TrimSpace(cfg.SendGridAPIKey)
	if apiKey == "" && strings.TrimSpace(cfg.SendGridAPIKeySecret) != "" {
		v, err := inf.Secrets.Access(ctx, cfg.SendGridAPIKeySecret)
		if err != nil {
			log.Warn("resolve SendGrid key from Secret Manager failed", zap.Error(err))
		} else {
			apiKey = v
		}
	}
	c.Mailer = mailadapter.NewRestoreMailerWithSendGrid(mailadapter.SendGridConfig{
		APIKey:   apiKey,
		From:     cfg.SendGridFrom,
		FromName: cfg.SendGridFromName,
		ShopURL:  cfg.ShopBaseURL,
	}, logger)

	var notifier usecase.Notifier
	if c.Mailer != nil {
		runCtx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.Mailer.Run(runCtx)
		}()
		notifier = c.Mailer
	}

	// ------------------------------------------------------------
	// Cart sessions
	// ------------------------------------------------------------
	c.Sessions = usecase.NewSessionRegistry(usecase.SessionRegistryConfig{
		Devices:       stores.Devices,
		Snapshots:     stores.Snapshots,
		Notifier:      notifier,
		Recorder:      c.Metrics,
		DebounceDelay: cfg.CartDebounce,
		CacheSize:     cfg.SessionCacheSize,
		IdleTTL:       cfg.SessionIdleTTL,
		Logger:        logger,
	})

	log.Info("container ready",
		zap.Bool("mailer", c.Mailer != nil),
		zap.Duration("debounce", cfg.CartDebounce),
		zap.Int("sessionCacheSize", cfg.SessionCacheSize),
	)
	return c, nil
}

// Close flushes pending snapshot writes, then drains the mailer.
// Infra is owned by the caller.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var err error
	c.closeOnce.Do(func() {
		if c.Sessions != nil {
			err = c.Sessions.Close(ctx)
		}
		if c.Mailer != nil {
			c.Mailer.Close()
			c.wg.Wait()
		}
		if c.cancel != nil {
			c.cancel()
		}
	})
	return err
}
