package hue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/amimof/huego"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/hueaction/internal/metrics"
)

// ClientOptions tunes the HTTP side of a Client
type ClientOptions struct {
	// Timeout for a single request; 0 keeps the transport default (no timeout)
	Timeout time.Duration
	// RateLimitRPS paces requests to the bridge; 0 or less disables pacing
	RateLimitRPS float64
	// HTTPClient overrides the client built from Timeout
	HTTPClient *http.Client
}

// Client talks to one bridge through an authenticated base address
// such as http://192.168.1.2/api/<username>.
type Client struct {
	address    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Hue client for the given bridge address
func NewClient(address string, opts ClientOptions) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	var limiter *rate.Limiter
	if opts.RateLimitRPS > 0 {
		burst := int(opts.RateLimitRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), burst)
	}

	return &Client{
		address:    address,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// Close closes idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Do performs one request against address+path.
// For GET, params are sent as query parameters; otherwise as a JSON body.
// A nil params map sends nothing. Every failure is a *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, params map[string]any) (json.RawMessage, error) {
	method = strings.ToUpper(method)
	target := c.address + path

	var body io.Reader
	if params != nil {
		if method == http.MethodGet {
			target = withQuery(target, params)
		} else {
			encoded, err := json.Marshal(params)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %w", err)
			}
			body = bytes.NewReader(encoded)
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportFailure(method, target, 0, err)
		}
	}

	return roundTrip(ctx, c.httpClient, method, target, body)
}

// GetLights returns all lights known to the bridge
func (c *Client) GetLights(ctx context.Context) (*LightCollection, error) {
	data, err := c.Do(ctx, http.MethodGet, "/lights", nil)
	if err != nil {
		return nil, err
	}
	if err := bridgeError(data); err != nil {
		return nil, err
	}

	var lights LightCollection
	if err := json.Unmarshal(data, &lights); err != nil {
		return nil, fmt.Errorf("failed to decode lights: %w", err)
	}
	return &lights, nil
}

// SetLightState sends a partial state update to a light.
// The bridge merges the patch; fields not present keep their values.
func (c *Client) SetLightState(ctx context.Context, id string, patch map[string]any) ([]huego.APIResponse, error) {
	data, err := c.Do(ctx, http.MethodPut, fmt.Sprintf("/lights/%s/state", id), patch)
	if err != nil {
		return nil, err
	}

	result, err := decodeResponses(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode state response: %w", err)
	}
	return result, nil
}

// GetLightByName finds a light by case-insensitive name.
// When several lights share a name the first one in bridge order wins; that
// order is whatever the bridge returns and may differ between calls.
func (c *Client) GetLightByName(ctx context.Context, name string) (*Light, error) {
	lights, err := c.GetLights(ctx)
	if err != nil {
		return nil, err
	}

	want := strings.ToLower(name)
	for _, light := range lights.All() {
		if strings.ToLower(light.Name) == want {
			return light, nil
		}
	}

	return nil, fmt.Errorf("%w: %q", ErrLightNotFound, name)
}

// ToggleLight turns the named light on or off.
// Returns false when no light has that name. The outcome of the state update
// itself is logged but not reported.
func (c *Client) ToggleLight(ctx context.Context, name string, on bool) (bool, error) {
	light, err := c.GetLightByName(ctx, name)
	if errors.Is(err, ErrLightNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.setIgnoringFailure(ctx, light.ID, map[string]any{"on": on})
	return true, nil
}

// ToggleAllLights turns every light on or off, one request at a time.
// Individual failures are logged and do not change the result.
func (c *Client) ToggleAllLights(ctx context.Context, on bool) (bool, error) {
	lights, err := c.GetLights(ctx)
	if err != nil {
		return false, err
	}

	for _, id := range lights.IDs() {
		c.setIgnoringFailure(ctx, id, map[string]any{"on": on})
	}

	log.Debug().Bool("on", on).Int("lights", lights.Len()).Msg("Toggled all lights")
	return true, nil
}

// ChangeLightBrightness dims or brightens the named light by BrightnessStep.
// Returns false without touching the bridge when the light is missing, has
// no brightness (see Light.Dimmable) or already sits at the limit in the
// requested direction.
func (c *Client) ChangeLightBrightness(ctx context.Context, name string, brighten bool) (bool, error) {
	light, err := c.GetLightByName(ctx, name)
	if errors.Is(err, ErrLightNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if !light.Dimmable() {
		log.Debug().Str("light", light.ID).Msg("Light has no brightness")
		return false, nil
	}

	bri, ok := NextBrightness(light.Brightness(), brighten)
	if !ok {
		return false, nil
	}

	c.setIgnoringFailure(ctx, light.ID, map[string]any{"bri": bri})
	return true, nil
}

// NextBrightness computes the brightness after one dim/brighten step.
// The limit check looks at the current value only; the stepped value is then
// clamped into [MinBrightness, MaxBrightness]. A current value below
// MinBrightness is not a real bridge reading; callers skip such lights.
func NextBrightness(current int, brighten bool) (int, bool) {
	if (!brighten && current == MinBrightness) || (brighten && current == MaxBrightness) {
		return current, false
	}

	next := current - BrightnessStep
	if brighten {
		next = current + BrightnessStep
	}

	if next < MinBrightness {
		next = MinBrightness
	}
	if next > MaxBrightness {
		next = MaxBrightness
	}
	return next, true
}

func (c *Client) setIgnoringFailure(ctx context.Context, id string, patch map[string]any) {
	result, err := c.SetLightState(ctx, id, patch)
	if err != nil {
		log.Warn().Err(err).Str("light", id).Interface("state", patch).Msg("Failed to set light state")
		return
	}
	for _, r := range result {
		if r.Error != nil {
			log.Warn().
				Str("light", id).
				Int("type", r.Error.Type).
				Str("description", r.Error.Description).
				Msg("Bridge rejected light state")
		}
	}
}

func roundTrip(ctx context.Context, httpClient *http.Client, method, target string, body io.Reader) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, transportFailure(method, target, 0, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, transportFailure(method, target, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportFailure(method, target, resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, transportFailure(method, target, resp.StatusCode, fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(data))))
	}

	metrics.BridgeRequests.WithLabelValues(method, "ok").Inc()
	return data, nil
}

func transportFailure(method, target string, status int, err error) error {
	metrics.BridgeRequests.WithLabelValues(method, "error").Inc()

	log.Error().
		Err(err).
		Str("method", method).
		Str("url", target).
		Int("status", status).
		Msg("Hue bridge request failed")

	return &TransportError{Method: method, URL: target, StatusCode: status, Err: err}
}

// bridgeError extracts the first error of a v1 error list. The bridge reports
// authorization problems this way with a 200 status.
func bridgeError(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil
	}

	result, err := decodeResponses(trimmed)
	if err != nil {
		return fmt.Errorf("failed to decode bridge response: %w", err)
	}
	for _, r := range result {
		if r.Error != nil {
			return fmt.Errorf("bridge error %d at %s: %s", r.Error.Type, r.Error.Address, r.Error.Description)
		}
	}
	return nil
}

func withQuery(target string, params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, fmt.Sprint(v))
	}
	encoded := values.Encode()
	if encoded == "" {
		return target
	}

	u, err := url.Parse(target)
	if err != nil {
		return target + "?" + encoded
	}
	q := u.Query()
	for k := range values {
		q.Set(k, values.Get(k))
	}
	u.RawQuery = q.Encode()
	return u.String()
}
