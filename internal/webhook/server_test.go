package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/hueaction/internal/actions"
	"github.com/dokzlo13/hueaction/internal/commands"
	"github.com/dokzlo13/hueaction/internal/hue/huetest"
	"github.com/dokzlo13/hueaction/internal/metrics"
)

func newTestServer(t *testing.T, cfg actions.ModuleConfig, cfgErr error) *httptest.Server {
	t.Helper()
	registry := actions.NewRegistry()
	require.NoError(t, commands.Register(registry, nil))
	invoker := actions.NewInvoker(registry, nil)

	source := func(context.Context) (actions.ModuleConfig, error) { return cfg, cfgErr }
	srv := httptest.NewServer(NewServer("", invoker, source, metrics.NewRegistry()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, contentType, body string) (int, map[string]string) {
	t.Helper()
	resp, err := http.Post(url, contentType, strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestCommand_JSON(t *testing.T) {
	bridge := huetest.NewBridge(t)
	bridge.AddLight("1", "Kitchen", false, 100)
	srv := newTestServer(t, actions.ModuleConfig{Address: bridge.Address()}, nil)

	status, out := post(t, srv.URL+"/command", "application/json", `{"command":"turn on the Kitchen"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{
		"action":   "turn on the",
		"param":    "Kitchen",
		"response": "Turned on the light Kitchen",
	}, out)
	assert.Equal(t, true, bridge.LightState("1")["on"])
}

func TestCommand_PlainText(t *testing.T) {
	bridge := huetest.NewBridge(t)
	bridge.AddLight("1", "Kitchen", true, 100)
	srv := newTestServer(t, actions.ModuleConfig{Address: bridge.Address()}, nil)

	status, out := post(t, srv.URL+"/command", "text/plain", "dim kitchen\n")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Dimmed light kitchen", out["response"])
	assert.Equal(t, float64(1), bridge.LightState("1")["bri"])
}

func TestCommand_Errors(t *testing.T) {
	srv := newTestServer(t, actions.ModuleConfig{Address: "http://127.0.0.1:1/api/x"}, nil)

	status, out := post(t, srv.URL+"/command", "application/json", `{"command":"make coffee"}`)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, out["error"], "make coffee")

	status, _ = post(t, srv.URL+"/command", "application/json", `{"command":""}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = post(t, srv.URL+"/command", "application/json", `{"command":`)
	assert.Equal(t, http.StatusBadRequest, status)

	resp, err := http.Get(srv.URL + "/command")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCommand_ConfigUnavailable(t *testing.T) {
	srv := newTestServer(t, actions.ModuleConfig{}, errors.New("database is locked"))

	status, out := post(t, srv.URL+"/command", "text/plain", "turn on all lights")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "database is locked", out["error"])
}

func TestHealthReadyMetrics(t *testing.T) {
	installed := newTestServer(t, actions.ModuleConfig{Address: "http://10.0.0.2/api/x"}, nil)
	fresh := newTestServer(t, actions.ModuleConfig{}, nil)

	for _, tt := range []struct {
		url    string
		status int
	}{
		{installed.URL + "/health", http.StatusOK},
		{installed.URL + "/ready", http.StatusOK},
		{fresh.URL + "/health", http.StatusOK},
		{fresh.URL + "/ready", http.StatusServiceUnavailable},
		{installed.URL + "/metrics", http.StatusOK},
	} {
		resp, err := http.Get(tt.url)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, tt.status, resp.StatusCode, tt.url)

		if strings.HasSuffix(tt.url, "/metrics") {
			assert.Contains(t, string(body), "go_goroutines")
		}
	}
}
