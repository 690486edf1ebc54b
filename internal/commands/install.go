package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/hueaction/internal/actions"
	"github.com/dokzlo13/hueaction/internal/hue"
)

const (
	// DefaultDeviceType identifies this application to the bridge
	DefaultDeviceType = "@mr-smith/smith-hue"

	// DefaultLinkWait is how long the user has to press the link button
	DefaultLinkWait = 10 * time.Second

	// PressButtonPrompt is written to the install output once the bridge is armed
	PressButtonPrompt = "Press the button on your Hue Bridge"
)

// InstallOptions configures Install. Zero values fall back to defaults;
// a negative LinkWait skips the wait.
type InstallOptions struct {
	DiscoveryURL string
	DeviceType   string
	LinkWait     time.Duration
	HTTPClient   *http.Client
}

func (o InstallOptions) withDefaults() InstallOptions {
	if o.DiscoveryURL == "" {
		o.DiscoveryURL = hue.DefaultDiscoveryURL
	}
	if o.DeviceType == "" {
		o.DeviceType = DefaultDeviceType
	}
	if o.LinkWait == 0 {
		o.LinkWait = DefaultLinkWait
	}
	if o.HTTPClient == nil {
		o.HTTPClient = http.DefaultClient
	}
	return o
}

// LinkButtonError is returned when the bridge still refuses registration
// after the wait, usually because the link button was not pressed.
type LinkButtonError struct {
	APIError *huego.APIError
}

func (e *LinkButtonError) Error() string {
	if e.APIError == nil {
		return "bridge did not issue a username"
	}
	return fmt.Sprintf("bridge refused registration: %s (type %d)", e.APIError.Description, e.APIError.Type)
}

// Install discovers the bridge on the network, registers with it across a
// link button press, and returns the authenticated address to persist.
func Install(ctx context.Context, out io.Writer, opts InstallOptions) (actions.ModuleConfig, error) {
	opts = opts.withDefaults()

	bridge, err := hue.Discover(ctx, opts.HTTPClient, opts.DiscoveryURL)
	if err != nil {
		return actions.ModuleConfig{}, fmt.Errorf("failed to discover bridge: %w", err)
	}

	address := fmt.Sprintf("http://%s/api", bridge.Host)

	// Arms the bridge. The response is a link button error until pressed.
	if _, err := hue.Register(ctx, opts.HTTPClient, address, opts.DeviceType); err != nil {
		return actions.ModuleConfig{}, fmt.Errorf("failed to register with bridge: %w", err)
	}

	if _, err := io.WriteString(out, PressButtonPrompt+"\n"); err != nil {
		return actions.ModuleConfig{}, err
	}

	log.Info().Str("bridge", address).Dur("wait", opts.LinkWait).Msg("Waiting for link button")
	if err := wait(ctx, opts.LinkWait); err != nil {
		return actions.ModuleConfig{}, err
	}

	result, err := hue.Register(ctx, opts.HTTPClient, address, opts.DeviceType)
	if err != nil {
		return actions.ModuleConfig{}, fmt.Errorf("failed to register with bridge: %w", err)
	}

	username, ok := hue.Username(result)
	if !ok {
		return actions.ModuleConfig{}, &LinkButtonError{APIError: result.Error}
	}

	log.Info().Str("bridge", address).Msg("Registered with bridge")
	return actions.ModuleConfig{Address: address + "/" + username}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
