// internal/adapters/out/mail/restore_mailer.go
package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront/internal/application/usecase"
)

var ErrMailerClosed = errors.New("restore_mailer: closed")

const (
	defaultQueueSize   = 256
	defaultSendTimeout = 15 * time.Second
)

// RestoreMailer implements usecase.Notifier by mailing the
// "your cart was restored" notice.
//
// NotifyRestored only enqueues; Run drains the queue so a slow mail API
// never holds a cart session. A full queue drops the notice.
type RestoreMailer struct {
	client      EmailClient
	fromAddress string
	shopURL     string
	log         *zap.Logger

	queue     chan usecase.RestoreNotice
	closeOnce sync.Once
	done      chan struct{}
}

func NewRestoreMailer(client EmailClient, fromAddress, shopURL string, logger *zap.Logger) *RestoreMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RestoreMailer{
		client:      client,
		fromAddress: strings.TrimSpace(fromAddress),
		shopURL:     strings.TrimRight(strings.TrimSpace(shopURL), "/"),
		log:         logger.Named("restore_mailer"),
		queue:       make(chan usecase.RestoreNotice, defaultQueueSize),
		done:        make(chan struct{}),
	}
}

func (m *RestoreMailer) NotifyRestored(_ context.Context, n usecase.RestoreNotice) error {
	if strings.TrimSpace(n.Email) == "" {
		// account without a verified address: in-app notice only
		return nil
	}
	select {
	case <-m.done:
		return ErrMailerClosed
	default:
	}
	select {
	case m.queue <- n:
		return nil
	default:
		return fmt.Errorf("restore_mailer: queue full, dropped notice for %s", n.AccountID)
	}
}

// Run sends queued notices until ctx is done or Close is called.
func (m *RestoreMailer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			m.drain()
			return
		case n := <-m.queue:
			m.send(ctx, n)
		}
	}
}

// Close stops accepting notices; Run sends what is already queued and returns.
func (m *RestoreMailer) Close() {
	m.closeOnce.Do(func() { close(m.done) })
}

func (m *RestoreMailer) drain() {
	for {
		select {
		case n := <-m.queue:
			m.send(context.Background(), n)
		default:
			return
		}
	}
}

func (m *RestoreMailer) send(ctx context.Context, n usecase.RestoreNotice) {
	ctx, cancel := context.WithTimeout(ctx, defaultSendTimeout)
	defer cancel()

	subject, body := m.compose(n)
	if err := m.client.Send(ctx, m.fromAddress, strings.TrimSpace(n.Email), subject, body); err != nil {
		m.log.Warn("send restore notice failed", zap.String("account", n.AccountID), zap.Error(err))
		return
	}
	m.log.Debug("restore notice sent", zap.String("account", n.AccountID))
}

func (m *RestoreMailer) compose(n usecase.RestoreNotice) (string, string) {
	subject := "Welcome back: your cart was restored"

	items := "1 item"
	if n.ItemCount != 1 {
		items = fmt.Sprintf("%d items", n.ItemCount)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Welcome back!\n\nWe restored %s to your cart from your last visit.\n", items)
	if m.shopURL != "" {
		fmt.Fprintf(&b, "\n  Your cart: %s/cart\n", m.shopURL)
	}
	b.WriteString("\nIf you did not sign in recently, you can ignore this message.\n")
	return subject, b.String()
}
