// Package commands binds the six light commands to the bridge client and
// implements the bridge install routine.
package commands

import (
	"fmt"

	"github.com/dokzlo13/hueaction/internal/actions"
	"github.com/dokzlo13/hueaction/internal/hue"
)

// Command names as the host matches them against an utterance
const (
	TurnOffAllLights = "turn off all lights"
	TurnOnAllLights  = "turn on all lights"
	TurnOnThe        = "turn on the"
	TurnOffThe       = "turn off the"
	Dim              = "dim"
	Brighten         = "brighten"
)

// ClientFactory builds a bridge client for an authenticated bridge address
type ClientFactory func(address string) *hue.Client

// DefaultClientFactory returns a ClientFactory that applies opts to every client
func DefaultClientFactory(opts hue.ClientOptions) ClientFactory {
	return func(address string) *hue.Client {
		return hue.NewClient(address, opts)
	}
}

// Register adds the light commands to registry
func Register(registry *actions.Registry, factory ClientFactory) error {
	if factory == nil {
		factory = DefaultClientFactory(hue.ClientOptions{})
	}

	handlers := map[string]actions.HandlerFunc{
		TurnOffAllLights: allLights(factory, false, "Turned off all lights"),
		TurnOnAllLights:  allLights(factory, true, "Turned on all lights"),
		TurnOnThe:        oneLight(factory, true, "Turned on the light %s"),
		TurnOffThe:       oneLight(factory, false, "Turned off the light %s"),
		Dim:              brightness(factory, false, "Dimmed light %s"),
		Brighten:         brightness(factory, true, "Brightened light %s"),
	}

	for name, handler := range handlers {
		if err := registry.RegisterSimple(name, handler); err != nil {
			return fmt.Errorf("failed to register command %q: %w", name, err)
		}
	}
	return nil
}

func allLights(factory ClientFactory, on bool, reply string) actions.HandlerFunc {
	return func(ctx *actions.Context, _ string) (string, error) {
		client := factory(ctx.Config().Address)
		defer client.Close()

		ok, err := client.ToggleAllLights(ctx.Ctx(), on)
		report(ctx, ok, err)
		return reply, nil
	}
}

func oneLight(factory ClientFactory, on bool, reply string) actions.HandlerFunc {
	return func(ctx *actions.Context, light string) (string, error) {
		client := factory(ctx.Config().Address)
		defer client.Close()

		ok, err := client.ToggleLight(ctx.Ctx(), light, on)
		report(ctx, ok, err, light)
		return fmt.Sprintf(reply, light), nil
	}
}

func brightness(factory ClientFactory, brighten bool, reply string) actions.HandlerFunc {
	return func(ctx *actions.Context, light string) (string, error) {
		client := factory(ctx.Config().Address)
		defer client.Close()

		ok, err := client.ChangeLightBrightness(ctx.Ctx(), light, brighten)
		report(ctx, ok, err, light)
		return fmt.Sprintf(reply, light), nil
	}
}

// report logs a failed or skipped bridge call. The reply to the caller is
// unchanged either way.
func report(ctx *actions.Context, ok bool, err error, light ...string) {
	if ok && err == nil {
		return
	}
	event := ctx.Logger().Warn()
	if len(light) > 0 {
		event = event.Str("light", light[0])
	}
	if err != nil {
		event.Err(err).Msg("Bridge call failed")
		return
	}
	event.Msg("Bridge call had no effect")
}
