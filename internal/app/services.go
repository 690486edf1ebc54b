package app

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueaction/internal/actions"
	"github.com/dokzlo13/hueaction/internal/commands"
	"github.com/dokzlo13/hueaction/internal/config"
	"github.com/dokzlo13/hueaction/internal/db"
	"github.com/dokzlo13/hueaction/internal/hue"
	"github.com/dokzlo13/hueaction/internal/kv"
	"github.com/dokzlo13/hueaction/internal/ledger"
)

const (
	moduleBucket = "module"
	moduleKey    = "config"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Module kv.Bucket

	// Action system
	Registry *actions.Registry
	Invoker  *actions.Invoker

	clientOptions hue.ClientOptions
}

// NewServices opens the database and registers the light commands.
func NewServices(cfg *config.Config) (*Services, error) {
	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	return newServices(cfg, database)
}

func newServices(cfg *config.Config, database *db.DB) (*Services, error) {
	s := &Services{
		cfg:    cfg,
		DB:     database,
		Ledger: ledger.New(database.DB),
		Module: kv.NewSQLiteBucket(database.DB, moduleBucket),
		clientOptions: hue.ClientOptions{
			Timeout:      cfg.Hue.Timeout.Duration(),
			RateLimitRPS: cfg.Hue.RateLimitRPS,
		},
	}

	s.Registry = actions.NewRegistry()
	if err := commands.Register(s.Registry, commands.DefaultClientFactory(s.clientOptions)); err != nil {
		s.Close()
		return nil, err
	}

	s.Invoker = actions.NewInvoker(s.Registry, s.Ledger)

	return s, nil
}

// ModuleConfig returns the config actions run with. A configured address
// takes precedence over the installed one.
func (s *Services) ModuleConfig(_ context.Context) (actions.ModuleConfig, error) {
	if s.cfg.Hue.Address != "" {
		return actions.ModuleConfig{Address: s.cfg.Hue.Address}, nil
	}

	var mc actions.ModuleConfig
	if _, err := s.Module.Load(moduleKey, &mc); err != nil {
		return actions.ModuleConfig{}, fmt.Errorf("failed to load module config: %w", err)
	}
	return mc, nil
}

// Installed returns the config, failing when no bridge is known yet
func (s *Services) Installed(ctx context.Context) (actions.ModuleConfig, error) {
	mc, err := s.ModuleConfig(ctx)
	if err != nil {
		return mc, err
	}
	if mc.IsZero() {
		return mc, fmt.Errorf("no bridge configured, run `hueaction install` or set HUEACTION_ADDRESS")
	}
	return mc, nil
}

// Install runs the bridge install routine and persists the resulting config.
func (s *Services) Install(ctx context.Context, out io.Writer) (actions.ModuleConfig, error) {
	mc, err := commands.Install(ctx, out, commands.InstallOptions{
		DiscoveryURL: s.cfg.Hue.DiscoveryURL,
		DeviceType:   s.cfg.Hue.DeviceType,
		LinkWait:     s.cfg.Hue.LinkWait.Duration(),
	})
	if err != nil {
		return actions.ModuleConfig{}, err
	}

	if err := s.Module.Store(moduleKey, mc, nil); err != nil {
		return actions.ModuleConfig{}, fmt.Errorf("failed to save module config: %w", err)
	}

	if err := s.Ledger.Append(ledger.EventInstalled, "", "cli", map[string]any{
		"device_type": s.cfg.Hue.DeviceType,
	}); err != nil {
		log.Error().Err(err).Msg("Failed to append to ledger")
	}

	return mc, nil
}

// Client builds a bridge client for the current config
func (s *Services) Client(ctx context.Context) (*hue.Client, error) {
	mc, err := s.Installed(ctx)
	if err != nil {
		return nil, err
	}
	return hue.NewClient(mc.Address, s.clientOptions), nil
}

// Bucket opens a named kv bucket
func (s *Services) Bucket(name string) kv.Bucket {
	return kv.NewSQLiteBucket(s.DB.DB, name)
}

// PruneLedger drops ledger entries past the retention window
func (s *Services) PruneLedger() {
	retention := s.cfg.Ledger.Retention()
	if retention <= 0 {
		return
	}
	removed, err := s.Ledger.DeleteOlderThan(retention)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune ledger")
		return
	}
	if removed > 0 {
		log.Info().Int64("removed", removed).Msg("Pruned ledger")
	}
}

// Close closes the database.
func (s *Services) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
