package mail

import (
	"strings"

	"go.uber.org/zap"
)

// SendGridConfig carries the resolved SendGrid settings.
// The API key comes from SENDGRID_API_KEY or Secret Manager (see di/mall).
type SendGridConfig struct {
	APIKey   string
	From     string // e.g. no-reply@shop.example
	FromName string
	ShopURL  string // e.g. https://shop.example
}

// NewRestoreMailerWithSendGrid builds a RestoreMailer on SendGrid.
// It returns nil when the key or sender is missing; restore notices then stay in-app.
func NewRestoreMailerWithSendGrid(cfg SendGridConfig, logger *zap.Logger) *RestoreMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("mail")

	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("SENDGRID_API_KEY is empty; restore mails disabled")
		return nil
	}
	if strings.TrimSpace(cfg.From) == "" {
		log.Warn("SENDGRID_FROM is empty; restore mails disabled")
		return nil
	}
	if strings.TrimSpace(cfg.FromName) == "" {
		cfg.FromName = "Storefront"
	}

	client := NewSendGridClient(cfg.APIKey, cfg.FromName, logger)
	m := NewRestoreMailer(client, cfg.From, cfg.ShopURL, logger)

	log.Info("restore mailer initialized", zap.String("from", cfg.From), zap.String("shopURL", cfg.ShopURL))
	return m
}
