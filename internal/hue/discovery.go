package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
)

// DefaultDiscoveryURL lists the bridges registered from the caller's network
const DefaultDiscoveryURL = "https://discovery.meethue.com"

// Discover asks the cloud discovery endpoint for bridges on the local network
// and returns the first one. Host holds the bridge's internal IP address.
func Discover(ctx context.Context, httpClient *http.Client, discoveryURL string) (*huego.Bridge, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if discoveryURL == "" {
		discoveryURL = DefaultDiscoveryURL
	}

	data, err := roundTrip(ctx, httpClient, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return nil, err
	}

	var bridges []huego.Bridge
	if err := json.Unmarshal(data, &bridges); err != nil {
		return nil, fmt.Errorf("failed to decode discovery response: %w", err)
	}
	if len(bridges) == 0 {
		return nil, ErrNoBridge
	}

	log.Debug().
		Int("found", len(bridges)).
		Str("host", bridges[0].Host).
		Str("id", bridges[0].ID).
		Msg("Discovered Hue bridge")

	return &bridges[0], nil
}

// Register posts a new user request for deviceType to address (http://<ip>/api).
// The first response element is returned as-is: until the link button has been
// pressed it carries an Error (type 101) instead of Success["username"].
func Register(ctx context.Context, httpClient *http.Client, address, deviceType string) (*huego.APIResponse, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	body, err := json.Marshal(map[string]string{"devicetype": deviceType})
	if err != nil {
		return nil, err
	}

	data, err := roundTrip(ctx, httpClient, http.MethodPost, address, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	result, err := decodeResponses(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode registration response: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrRegistration
	}

	return &result[0], nil
}

// Username extracts the issued username from a successful registration
func Username(r *huego.APIResponse) (string, bool) {
	if r == nil || r.Success == nil {
		return "", false
	}
	username, ok := r.Success["username"].(string)
	return username, ok && username != ""
}
