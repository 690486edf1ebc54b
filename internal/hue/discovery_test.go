package hue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveJSON(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDiscover_ReturnsFirstBridge(t *testing.T) {
	server := serveJSON(t, `[
		{"id":"001788fffe100491","internalipaddress":"192.168.1.20"},
		{"id":"001788fffe09a168","internalipaddress":"192.168.1.21"}
	]`)

	bridge, err := Discover(context.Background(), server.Client(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.20", bridge.Host)
	assert.Equal(t, "001788fffe100491", bridge.ID)
}

func TestDiscover_EmptyList(t *testing.T) {
	server := serveJSON(t, `[]`)

	_, err := Discover(context.Background(), server.Client(), server.URL)
	assert.ErrorIs(t, err, ErrNoBridge)
}

func TestDiscover_EndpointDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := Discover(context.Background(), server.Client(), server.URL)
	assert.True(t, IsTransport(err))
}

func TestRegister_ReturnsFirstElementUnchanged(t *testing.T) {
	var gotBody map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[{"success":{"username":"83b7780291a6ceffbe0bd049104df"}},{"success":{"other":"x"}}]`))
	}))
	defer server.Close()

	result, err := Register(context.Background(), server.Client(), server.URL+"/api", "smith-hue#test")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"devicetype": "smith-hue#test"}, gotBody)
	assert.Nil(t, result.Error)

	username, ok := Username(result)
	assert.True(t, ok)
	assert.Equal(t, "83b7780291a6ceffbe0bd049104df", username)
}

func TestRegister_LinkButtonNotPressedIsData(t *testing.T) {
	server := serveJSON(t, `[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`)

	result, err := Register(context.Background(), server.Client(), server.URL+"/api", "smith-hue#test")
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, 101, result.Error.Type)
	assert.Equal(t, "link button not pressed", result.Error.Description)

	_, ok := Username(result)
	assert.False(t, ok)
}

func TestRegister_ErrorWithoutAddress(t *testing.T) {
	server := serveJSON(t, `[{"error":{"type":101,"description":"x"}}]`)

	result, err := Register(context.Background(), server.Client(), server.URL+"/api", "smith-hue#test")
	require.NoError(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, 101, result.Error.Type)
	assert.Equal(t, "x", result.Error.Description)

	_, ok := Username(result)
	assert.False(t, ok)
}

func TestRegister_EmptyResponse(t *testing.T) {
	server := serveJSON(t, `[]`)

	_, err := Register(context.Background(), server.Client(), server.URL+"/api", "smith-hue#test")
	assert.ErrorIs(t, err, ErrRegistration)
}
