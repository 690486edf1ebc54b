package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueaction/internal/config"
)

// ledgerCleanupInterval is how often the server prunes the ledger
const ledgerCleanupInterval = 24 * time.Hour

// App runs the long-lived command server.
type App struct {
	cfg      *config.Config
	services *Services
	webhook  *WebhookService
}

// New creates a new App around already initialized services.
func New(cfg *config.Config, services *Services) *App {
	return &App{
		cfg:      cfg,
		services: services,
		webhook:  NewWebhookService(services),
	}
}

// Run serves commands until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.services.ModuleConfig(ctx); err != nil {
		return err
	}

	go a.cleanupLoop(ctx)

	log.Info().Str("addr", a.cfg.Server.Addr()).Msg("hueaction started")
	err := a.webhook.Run(ctx)
	log.Info().Msg("Shutting down...")
	return err
}

func (a *App) cleanupLoop(ctx context.Context) {
	a.services.PruneLedger()

	ticker := time.NewTicker(ledgerCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.services.PruneLedger()
		}
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
