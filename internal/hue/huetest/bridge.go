// Package huetest provides an in-memory Hue bridge and discovery endpoint
// for tests.
package huetest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// Username is the only user the fake bridge accepts
const Username = "testuser"

// Put is a recorded light state update
type Put struct {
	ID   string
	Body map[string]any
}

// Bridge serves the v1 light and registration endpoints from memory,
// keeping lights in insertion order.
type Bridge struct {
	mu            sync.Mutex
	order         []string
	lights        map[string]map[string]any
	puts          []Put
	registrations []string
	pressAfter    int
	failPuts      bool
	server        *httptest.Server
}

// NewBridge starts a fake bridge that is closed with the test
func NewBridge(t testing.TB) *Bridge {
	t.Helper()
	b := &Bridge{lights: make(map[string]map[string]any), pressAfter: -1}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

// AddLight appends a light to the bridge
func (b *Bridge) AddLight(id, name string, on bool, bri int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = append(b.order, id)
	b.lights[id] = map[string]any{
		"name":  name,
		"type":  "Extended color light",
		"state": map[string]any{"on": on, "bri": bri, "reachable": true},
	}
}

// AddPlug appends an on/off light whose state carries no brightness
func (b *Bridge) AddPlug(id, name string, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.order = append(b.order, id)
	b.lights[id] = map[string]any{
		"name":  name,
		"type":  "On/Off plug-in unit",
		"state": map[string]any{"on": on, "reachable": true},
	}
}

// SetFailPuts makes every state update answer 503
func (b *Bridge) SetFailPuts(fail bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failPuts = fail
}

// PressLinkAfter makes registration succeed once n earlier registration
// requests were rejected. Negative n never presses the button.
func (b *Bridge) PressLinkAfter(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pressAfter = n
}

// Host returns host:port of the bridge, as discovery would report it
func (b *Bridge) Host() string {
	u, _ := url.Parse(b.server.URL)
	return u.Host
}

// Address returns the authenticated base address
func (b *Bridge) Address() string {
	return b.server.URL + "/api/" + Username
}

// Puts returns the recorded state updates in arrival order
func (b *Bridge) Puts() []Put {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Put, len(b.puts))
	copy(out, b.puts)
	return out
}

// Registrations returns the device types of every registration request
func (b *Bridge) Registrations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.registrations))
	copy(out, b.registrations)
	return out
}

// LightState returns a copy of a light's current state
func (b *Bridge) LightState(id string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	light, ok := b.lights[id]
	if !ok {
		return nil
	}
	out := make(map[string]any)
	for k, v := range light["state"].(map[string]any) {
		out[k] = v
	}
	return out
}

func (b *Bridge) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost && r.URL.Path == "/api" {
		b.serveRegister(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/"+Username)

	switch {
	case r.Method == http.MethodGet && path == "/lights":
		b.serveLights(w)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/lights/") && strings.HasSuffix(path, "/state"):
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/lights/"), "/state")
		b.serveState(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (b *Bridge) serveRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceType string `json:"devicetype"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	rejected := len(b.registrations)
	b.registrations = append(b.registrations, req.DeviceType)
	pressed := b.pressAfter >= 0 && rejected >= b.pressAfter
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !pressed {
		w.Write([]byte(`[{"error":{"type":101,"address":"","description":"link button not pressed"}}]`))
		return
	}
	fmt.Fprintf(w, `[{"success":{"username":%q}}]`, Username)
}

func (b *Bridge) serveLights(w http.ResponseWriter) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range b.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		record, _ := json.Marshal(b.lights[id])
		fmt.Fprintf(&buf, "%q:%s", id, record)
	}
	buf.WriteByte('}')

	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (b *Bridge) serveState(w http.ResponseWriter, r *http.Request, id string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.puts = append(b.puts, Put{ID: id, Body: patch})

	if b.failPuts {
		http.Error(w, "bridge overloaded", http.StatusServiceUnavailable)
		return
	}

	light, ok := b.lights[id]
	if !ok {
		fmt.Fprintf(w, `[{"error":{"type":3,"address":"/lights/%s/state","description":"resource, /lights/%s/state, not available"}}]`, id, id)
		return
	}

	state := light["state"].(map[string]any)
	results := make([]map[string]any, 0, len(patch))
	for k, v := range patch {
		state[k] = v
		results = append(results, map[string]any{
			"success": map[string]any{fmt.Sprintf("/lights/%s/state/%s", id, k): v},
		})
	}

	json.NewEncoder(w).Encode(results)
}

// NewDiscovery serves a discovery listing that reports the given hosts
func NewDiscovery(t testing.TB, hosts ...string) *httptest.Server {
	t.Helper()
	type record struct {
		ID                string `json:"id"`
		InternalIPAddress string `json:"internalipaddress"`
	}
	records := make([]record, 0, len(hosts))
	for i, host := range hosts {
		records = append(records, record{ID: fmt.Sprintf("001788fffe%06d", i), InternalIPAddress: host})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(records)
	}))
	t.Cleanup(srv.Close)
	return srv
}
