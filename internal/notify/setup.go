package notify

import (
	"bookstore-backend/internal/config"
	"bookstore-backend/internal/metrics"
	"bookstore-backend/internal/resilience"

	"go.uber.org/zap"
)

// FromConfig builds the Brevo backed notifier used by both the API
// process and the Kafka consumer.
func FromConfig(cfg *config.Config, log *zap.Logger) (*Notifier, error) {
	breaker := resilience.NewBreaker("brevo", cfg.Breaker.MaxFailures, cfg.BreakerTimeout, log, metrics.ObserveBreaker)
	mailer := NewBrevoClient(cfg.Email.APIKey, cfg.Email.SenderEmail, cfg.Email.SenderName, breaker)
	if !mailer.IsConfigured() {
		log.Warn("BREVO api key or sender email missing, emails will be skipped")
	}
	return NewNotifier(mailer, Links{
		FrontendURL:       cfg.App.FrontendURL,
		AdminDashboardURL: cfg.App.AdminDashboardURL,
		SupportInbox:      cfg.Email.SupportInbox,
	}, log)
}
