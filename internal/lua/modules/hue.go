package modules

import (
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/hueaction/internal/hue"
)

// HueModule provides hue.* functions to Lua.
//
// Functions that can fail return two values: (result, error_string).
//   - On success: (result, nil)
//   - On error: (nil/false, "error message")
//
// Example Lua usage:
//
//	local lights, err = hue.lights()
//	if err then
//	    log.error("Failed: " .. err)
//	end
//	for _, l in ipairs(lights) do
//	    if l.on then hue.set_state(l.id, { bri = 254 }) end
//	end
type HueModule struct {
	client *hue.Client
}

// NewHueModule creates a new hue module. A nil client makes every call fail
// with "not installed".
func NewHueModule(client *hue.Client) *HueModule {
	return &HueModule{client: client}
}

// Loader is the module loader for Lua
func (m *HueModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "lights", L.NewFunction(m.lights))
	L.SetField(mod, "set_state", L.NewFunction(m.setState))
	L.SetField(mod, "toggle", L.NewFunction(m.toggle))
	L.SetField(mod, "toggle_all", L.NewFunction(m.toggleAll))
	L.SetField(mod, "change_brightness", L.NewFunction(m.changeBrightness))

	L.Push(mod)
	return 1
}

func (m *HueModule) ready(L *lua.LState) bool {
	if m.client != nil {
		return true
	}
	L.Push(lua.LNil)
	L.Push(lua.LString("bridge not installed"))
	return false
}

// lights() -> ({ {id, name, type, on, bri}, ... }, err)
// Lights are listed in bridge order.
func (m *HueModule) lights(L *lua.LState) int {
	if !m.ready(L) {
		return 2
	}

	lights, err := m.client.GetLights(stateContext(L))
	if err != nil {
		log.Error().Err(err).Msg("Failed to get lights")
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	tbl := L.NewTable()
	for i, light := range lights.All() {
		entry := L.NewTable()
		entry.RawSetString("id", lua.LString(light.ID))
		entry.RawSetString("name", lua.LString(light.Name))
		entry.RawSetString("type", lua.LString(light.Type))
		entry.RawSetString("on", lua.LBool(light.IsOn()))
		entry.RawSetString("bri", lua.LNumber(light.Brightness()))
		tbl.RawSetInt(i+1, entry)
	}

	L.Push(tbl)
	L.Push(lua.LNil)
	return 2
}

// set_state(id, {on=, bri=, ...}) -> (ok, err)
// ok is false when the bridge rejected any field of the patch.
func (m *HueModule) setState(L *lua.LState) int {
	id := L.CheckString(1)
	patch := LuaTableToMap(L.CheckTable(2))
	if !m.ready(L) {
		return 2
	}

	results, err := m.client.SetLightState(stateContext(L), id, patch)
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}

	for _, r := range results {
		if r.Error != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(r.Error.Description))
			return 2
		}
	}

	L.Push(lua.LTrue)
	L.Push(lua.LNil)
	return 2
}

// toggle(name, on) -> (found, err)
func (m *HueModule) toggle(L *lua.LState) int {
	name := L.CheckString(1)
	on := L.CheckBool(2)
	if !m.ready(L) {
		return 2
	}
	ok, err := m.client.ToggleLight(stateContext(L), name, on)
	return pushResult(L, ok, err)
}

// toggle_all(on) -> (ok, err)
func (m *HueModule) toggleAll(L *lua.LState) int {
	on := L.CheckBool(1)
	if !m.ready(L) {
		return 2
	}
	ok, err := m.client.ToggleAllLights(stateContext(L), on)
	return pushResult(L, ok, err)
}

// change_brightness(name, brighten) -> (changed, err)
func (m *HueModule) changeBrightness(L *lua.LState) int {
	name := L.CheckString(1)
	brighten := L.CheckBool(2)
	if !m.ready(L) {
		return 2
	}
	ok, err := m.client.ChangeLightBrightness(stateContext(L), name, brighten)
	return pushResult(L, ok, err)
}

func pushResult(L *lua.LState, ok bool, err error) int {
	if err != nil {
		L.Push(lua.LFalse)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LBool(ok))
	L.Push(lua.LNil)
	return 2
}
