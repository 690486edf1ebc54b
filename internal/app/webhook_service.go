package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueaction/internal/metrics"
	"github.com/dokzlo13/hueaction/internal/webhook"
)

// WebhookService wraps the command HTTP server.
type WebhookService struct {
	services *Services
	server   *webhook.Server
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(s *Services) *WebhookService {
	server := webhook.NewServer(s.cfg.Server.Addr(), s.Invoker, s.ModuleConfig, metrics.NewRegistry())
	return &WebhookService{
		services: s,
		server:   server,
	}
}

// Run serves until ctx is cancelled.
func (w *WebhookService) Run(ctx context.Context) error {
	if err := w.server.Run(ctx, w.services.cfg.ShutdownTimeout.Duration()); err != nil {
		log.Error().Err(err).Msg("Command server error")
		return err
	}
	return nil
}
