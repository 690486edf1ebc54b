package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dokzlo13/hueaction/internal/app"
	"github.com/dokzlo13/hueaction/internal/ledger"
)

func newInstallCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Discover the bridge and pair with it",
		Long: `Finds the Hue bridge on the local network and registers hueaction with it.

Press the link button on the bridge when asked. The authenticated bridge
address is saved to the database and used by every other command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			mc, err := s.Install(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Installed bridge at %s\n", mc.Address)
			return nil
		},
	}
}

func newDoCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "do <command...>",
		Short: "Run a spoken command",
		Long: `Matches the words against the registered actions and runs the longest match.

Examples:
  hueaction do turn on the kitchen
  hueaction do dim desk lamp
  hueaction do turn off all lights`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			mc, err := s.Installed(cmd.Context())
			if err != nil {
				return err
			}

			result, err := s.Invoker.Run(cmd.Context(), strings.Join(args, " "), mc, "cli")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Response)
			return nil
		},
	}
}

func newActionsCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List the available commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			for _, name := range s.Registry.Names() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func newLightsCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "lights",
		Short: "List the lights known to the bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			client, err := s.Client(cmd.Context())
			if err != nil {
				return err
			}
			defer client.Close()

			lights, err := client.GetLights(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tON\tBRI")
			for _, l := range lights.All() {
				fmt.Fprintf(w, "%s\t%s\t%t\t%d\n", l.ID, l.Name, l.IsOn(), l.Brightness())
			}
			return w.Flush()
		},
	}
}

func newServeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve commands over HTTP",
		Long: `Starts the command server.

  POST /command   {"command": "turn on the kitchen"} or the bare text
  GET  /health    liveness
  GET  /ready     ready once a bridge is configured
  GET  /metrics   Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			return app.New(st.cfg, s).Run(cmd.Context())
		},
	}
}

func newScriptCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "script <file.lua>",
		Short: "Run a Lua script",
		Long: `Runs a Lua script with these modules available through require:

  log     debug/info/warn/error(msg, fields)
  action  run(name, param), say(command), names(), define(name, fn)
  hue     lights(), set_state(id, state), toggle(name, on),
          toggle_all(on), change_brightness(name, brighten)
  kv      bucket(name) with store/get/delete/keys`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			return s.RunScript(cmd.Context(), args[0])
		},
	}
}

func newHistoryCommand(st *state) *cobra.Command {
	var (
		limit     int
		eventType string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent commands and installs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := st.services()
			if err != nil {
				return err
			}
			defer s.Close()

			var entries []*ledger.Entry
			switch ledger.EventType(eventType) {
			case "":
				entries, err = s.Ledger.Recent(limit)
			case ledger.EventActionCompleted, ledger.EventActionFailed, ledger.EventInstalled:
				entries, err = s.Ledger.GetByType(ledger.EventType(eventType), limit)
			default:
				return fmt.Errorf("unknown event type %q", eventType)
			}
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tEVENT\tSOURCE\tACTION\tDETAIL")
			for _, e := range entries {
				detail := e.Payload["response"]
				if errMsg, ok := e.Payload["error"]; ok {
					detail = errMsg
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%v\n",
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.EventType, e.Source, orDash(e.Payload["action"]), orDash(detail))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	cmd.Flags().StringVarP(&eventType, "type", "t", "", "Only show one event type (action_completed, action_failed, installed)")
	return cmd
}

func orDash(v any) any {
	if v == nil {
		return "-"
	}
	return v
}
