package hue

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/amimof/huego"
)

// Brightness bounds of the v1 API and the step used by dim/brighten
const (
	MinBrightness  = 1
	MaxBrightness  = 254
	BrightnessStep = 100
)

// Light represents a Hue light (v1 API).
// ID is not part of the bridge payload; it is copied from the collection key.
type Light struct {
	ID               string       `json:"id,omitempty"`
	Name             string       `json:"name"`
	Type             string       `json:"type,omitempty"`
	ModelID          string       `json:"modelid,omitempty"`
	ManufacturerName string       `json:"manufacturername,omitempty"`
	UniqueID         string       `json:"uniqueid,omitempty"`
	State            *huego.State `json:"state,omitempty"`
}

// Brightness returns the current brightness, 0 when the bridge sent no state
func (l *Light) Brightness() int {
	if l.State == nil {
		return 0
	}
	return int(l.State.Bri)
}

// Dimmable reports whether the bridge sent a brightness for the light.
// On/off units such as plugs omit bri entirely.
func (l *Light) Dimmable() bool {
	return l.Brightness() >= MinBrightness
}

// IsOn reports the light power state
func (l *Light) IsOn() bool {
	return l.State != nil && l.State.On
}

// LightCollection is the ID -> Light mapping returned by GET /lights.
// Unlike a Go map it keeps the key order the bridge sent, which is the order
// name lookups and bulk toggles walk.
type LightCollection struct {
	ids    []string
	lights map[string]*Light
}

// NewLightCollection builds a collection from lights in the given order
func NewLightCollection(lights ...*Light) *LightCollection {
	c := &LightCollection{lights: make(map[string]*Light, len(lights))}
	for _, l := range lights {
		c.add(l.ID, l)
	}
	return c
}

func (c *LightCollection) add(id string, light *Light) {
	if _, exists := c.lights[id]; !exists {
		c.ids = append(c.ids, id)
	}
	light.ID = id
	c.lights[id] = light
}

// IDs returns light IDs in bridge order
func (c *LightCollection) IDs() []string {
	out := make([]string, len(c.ids))
	copy(out, c.ids)
	return out
}

// Get returns the light with the given ID
func (c *LightCollection) Get(id string) (*Light, bool) {
	l, ok := c.lights[id]
	return l, ok
}

// Len returns the number of lights
func (c *LightCollection) Len() int {
	return len(c.ids)
}

// All returns the lights in bridge order
func (c *LightCollection) All() []*Light {
	out := make([]*Light, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.lights[id])
	}
	return out
}

// UnmarshalJSON decodes a JSON object of lights, keeping key order
func (c *LightCollection) UnmarshalJSON(data []byte) error {
	c.ids = nil
	c.lights = make(map[string]*Light)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("light collection: expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("light collection: unexpected key %v", keyTok)
		}

		var light Light
		if err := dec.Decode(&light); err != nil {
			return fmt.Errorf("light collection: light %q: %w", id, err)
		}
		c.add(id, &light)
	}

	_, err = dec.Token()
	return err
}

// MarshalJSON encodes the collection as an object in bridge order
func (c *LightCollection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range c.ids {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.lights[id])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
