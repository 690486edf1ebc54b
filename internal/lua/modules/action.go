package modules

import (
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/hueaction/internal/actions"
)

// ActionModule provides action.* to Lua: running registered actions and
// defining new ones backed by Lua functions.
type ActionModule struct {
	invoker *actions.Invoker
	config  actions.ModuleConfig

	mu      sync.Mutex
	defined []string
}

// NewActionModule creates a new action module. Actions run with config.
func NewActionModule(invoker *actions.Invoker, config actions.ModuleConfig) *ActionModule {
	return &ActionModule{
		invoker: invoker,
		config:  config,
	}
}

// Loader is the module loader for Lua
func (m *ActionModule) Loader(L *lua.LState) int {
	mod := L.NewTable()

	L.SetField(mod, "run", L.NewFunction(m.run))
	L.SetField(mod, "say", L.NewFunction(m.say))
	L.SetField(mod, "names", L.NewFunction(m.names))
	L.SetField(mod, "define", L.NewFunction(m.define))

	L.Push(mod)
	return 1
}

// run(name, param) -> reply
// Raises an error when the action is unknown or fails.
func (m *ActionModule) run(L *lua.LState) int {
	name := L.CheckString(1)
	param := L.OptString(2, "")

	log.Debug().Str("action", name).Msg("Running action from Lua")

	result, err := m.invoker.InvokeWithSource(stateContext(L), name, param, m.config, "lua")
	if err != nil {
		L.RaiseError("action %q failed: %s", name, err.Error())
		return 0
	}

	L.Push(lua.LString(result.Response))
	return 1
}

// say(utterance) -> (reply, action, param)
func (m *ActionModule) say(L *lua.LState) int {
	utterance := L.CheckString(1)

	result, err := m.invoker.Run(stateContext(L), utterance, m.config, "lua")
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	L.Push(lua.LString(result.Response))
	L.Push(lua.LString(result.Action))
	L.Push(lua.LString(result.Param))
	return 3
}

// names() -> { "brighten", "dim", ... }
func (m *ActionModule) names(L *lua.LState) int {
	L.Push(GoToLuaValue(L, m.invoker.Registry().Names()))
	return 1
}

// define(name, function(ctx, param) return reply end)
// ctx carries invocation_id and address.
func (m *ActionModule) define(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)

	action := &luaAction{L: L, name: name, fn: fn}
	if err := m.invoker.Registry().Register(action); err != nil {
		L.RaiseError("failed to register action: %s", err.Error())
		return 0
	}

	m.mu.Lock()
	m.defined = append(m.defined, name)
	m.mu.Unlock()

	log.Debug().Str("action", name).Msg("Defined Lua action")
	return 0
}

// Cleanup unregisters every action this module defined. Their functions
// belong to a VM that is about to close.
func (m *ActionModule) Cleanup() {
	m.mu.Lock()
	defined := m.defined
	m.defined = nil
	m.mu.Unlock()

	registry := m.invoker.Registry()
	for _, name := range defined {
		registry.Unregister(name)
	}
}

// luaAction wraps a Lua function as an action. It must only be executed
// from the goroutine running the script that defined it.
type luaAction struct {
	L    *lua.LState
	name string
	fn   *lua.LFunction
}

func (a *luaAction) Name() string { return a.name }

func (a *luaAction) Execute(ctx *actions.Context, param string) (string, error) {
	ctxTable := a.L.NewTable()
	ctxTable.RawSetString("invocation_id", lua.LString(ctx.InvocationID()))
	ctxTable.RawSetString("address", lua.LString(ctx.Config().Address))

	a.L.Push(a.fn)
	a.L.Push(ctxTable)
	a.L.Push(lua.LString(param))

	if err := a.L.PCall(2, 1, nil); err != nil {
		return "", err
	}

	result := a.L.Get(-1)
	a.L.Pop(1)

	if result == lua.LNil {
		return "", nil
	}
	return lua.LVAsString(result), nil
}
