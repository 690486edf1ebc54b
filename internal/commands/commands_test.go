package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/hueaction/internal/actions"
	"github.com/dokzlo13/hueaction/internal/hue"
	"github.com/dokzlo13/hueaction/internal/hue/huetest"
)

func newTestInvoker(t *testing.T) *actions.Invoker {
	t.Helper()
	registry := actions.NewRegistry()
	require.NoError(t, Register(registry, nil))
	return actions.NewInvoker(registry, nil)
}

func TestRegister_AllCommands(t *testing.T) {
	inv := newTestInvoker(t)
	assert.Equal(t, []string{Brighten, Dim, TurnOffAllLights, TurnOffThe, TurnOnAllLights, TurnOnThe}, inv.Registry().Names())

	// A second registration into the same registry collides
	assert.Error(t, Register(inv.Registry(), nil))
}

func TestCommands_Replies(t *testing.T) {
	bridge := huetest.NewBridge(t)
	bridge.AddLight("1", "Kitchen", false, 100)
	bridge.AddLight("2", "Desk", true, 150)
	cfg := actions.ModuleConfig{Address: bridge.Address()}
	inv := newTestInvoker(t)

	tests := []struct {
		utterance string
		reply     string
	}{
		{"turn on the Kitchen", "Turned on the light Kitchen"},
		{"turn off the desk", "Turned off the light desk"},
		{"dim Desk", "Dimmed light Desk"},
		{"brighten kitchen", "Brightened light kitchen"},
		{"turn off all lights", "Turned off all lights"},
		{"turn on all lights", "Turned on all lights"},
	}

	for _, tt := range tests {
		res, err := inv.Run(context.Background(), tt.utterance, cfg, "test")
		require.NoError(t, err, tt.utterance)
		assert.Equal(t, tt.reply, res.Response, tt.utterance)
	}

	puts := bridge.Puts()
	require.Len(t, puts, 8)
	assert.Equal(t, huetest.Put{ID: "1", Body: map[string]any{"on": true}}, puts[0])
	assert.Equal(t, huetest.Put{ID: "2", Body: map[string]any{"on": false}}, puts[1])
	assert.Equal(t, huetest.Put{ID: "2", Body: map[string]any{"bri": float64(50)}}, puts[2])
	assert.Equal(t, huetest.Put{ID: "1", Body: map[string]any{"bri": float64(200)}}, puts[3])
	assert.Equal(t, huetest.Put{ID: "1", Body: map[string]any{"on": false}}, puts[4])
	assert.Equal(t, huetest.Put{ID: "2", Body: map[string]any{"on": false}}, puts[5])
}

func TestCommands_MissingLightStillReplies(t *testing.T) {
	bridge := huetest.NewBridge(t)
	bridge.AddLight("1", "Kitchen", false, 100)
	inv := newTestInvoker(t)

	res, err := inv.Invoke(context.Background(), TurnOnThe, "Garage", actions.ModuleConfig{Address: bridge.Address()})
	require.NoError(t, err)
	assert.Equal(t, "Turned on the light Garage", res.Response)
	assert.Empty(t, bridge.Puts())
}

func TestCommands_UnreachableBridgeStillReplies(t *testing.T) {
	inv := newTestInvoker(t)

	res, err := inv.Invoke(context.Background(), TurnOffAllLights, "", actions.ModuleConfig{Address: "http://127.0.0.1:1/api/x"})
	require.NoError(t, err)
	assert.Equal(t, "Turned off all lights", res.Response)
}

func TestInstall(t *testing.T) {
	bridge := huetest.NewBridge(t)
	bridge.PressLinkAfter(1)
	discovery := huetest.NewDiscovery(t, bridge.Host())

	var out bytes.Buffer
	cfg, err := Install(context.Background(), &out, InstallOptions{
		DiscoveryURL: discovery.URL,
		LinkWait:     -1,
	})
	require.NoError(t, err)

	assert.Equal(t, "http://"+bridge.Host()+"/api/"+huetest.Username, cfg.Address)
	assert.Equal(t, PressButtonPrompt+"\n", out.String())
	assert.Equal(t, []string{DefaultDeviceType, DefaultDeviceType}, bridge.Registrations())
}

func TestInstall_ButtonNeverPressed(t *testing.T) {
	bridge := huetest.NewBridge(t)
	discovery := huetest.NewDiscovery(t, bridge.Host())

	var out bytes.Buffer
	_, err := Install(context.Background(), &out, InstallOptions{
		DiscoveryURL: discovery.URL,
		DeviceType:   "test#device",
		LinkWait:     time.Millisecond,
	})

	var linkErr *LinkButtonError
	require.ErrorAs(t, err, &linkErr)
	require.NotNil(t, linkErr.APIError)
	assert.Equal(t, 101, linkErr.APIError.Type)
	assert.Equal(t, []string{"test#device", "test#device"}, bridge.Registrations())
}

func TestInstall_NoBridge(t *testing.T) {
	discovery := huetest.NewDiscovery(t)

	var out bytes.Buffer
	_, err := Install(context.Background(), &out, InstallOptions{DiscoveryURL: discovery.URL, LinkWait: -1})
	assert.ErrorIs(t, err, hue.ErrNoBridge)
	assert.Empty(t, out.String())
}

func TestInstall_CancelledDuringWait(t *testing.T) {
	bridge := huetest.NewBridge(t)
	bridge.PressLinkAfter(1)
	discovery := huetest.NewDiscovery(t, bridge.Host())

	ctx, cancel := context.WithCancel(context.Background())
	out := &cancelOnWrite{cancel: cancel}

	_, err := Install(ctx, out, InstallOptions{DiscoveryURL: discovery.URL, LinkWait: time.Hour})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, bridge.Registrations(), 1)
}

// cancelOnWrite cancels the install as soon as the prompt is shown
type cancelOnWrite struct {
	bytes.Buffer
	cancel context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	defer w.cancel()
	return w.Buffer.Write(p)
}
