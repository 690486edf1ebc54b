// Package cli implements the hueaction command tree using cobra.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dokzlo13/hueaction/internal/app"
	"github.com/dokzlo13/hueaction/internal/config"
)

// Version is the application version string.
var Version = "dev"

// state is shared by the subcommands of one root command
type state struct {
	configPath string
	cfg        *config.Config
}

// services opens the database and registers the light commands
func (s *state) services() (*app.Services, error) {
	return app.NewServices(s.cfg)
}

// NewRootCommand builds the hueaction command tree
func NewRootCommand() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:   "hueaction",
		Short: "Control Philips Hue lights with spoken commands",
		Long: `hueaction talks to a Philips Hue bridge on the local network.

Install once to pair with the bridge, then run commands such as
"turn on the kitchen" or "dim desk lamp" from the shell, a Lua script
or the HTTP command server.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(st.configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			st.cfg = cfg
			setupLogging(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Colors)
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&st.configPath, "config", "c", "", "Path to configuration file (default "+config.DefaultPath+" if present)")

	root.AddCommand(
		newInstallCommand(st),
		newDoCommand(st),
		newActionsCommand(st),
		newLightsCommand(st),
		newServeCommand(st),
		newScriptCommand(st),
		newHistoryCommand(st),
	)

	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln(fmt.Sprintf("[ERROR] %v", err))
		os.Exit(1)
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		// JSON output for production
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		// Text output (with optional colors)
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
