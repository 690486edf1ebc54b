// Package lua hosts user scripts that can run actions, define new ones and
// drive lights directly.
package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/hueaction/internal/lua/modules"
)

// ErrRuntimeClosed is returned when the Lua runtime is closed
var ErrRuntimeClosed = errors.New("lua runtime closed")

// Runtime owns one Lua VM. Calls are serialized; the VM is not safe for
// concurrent use.
type Runtime struct {
	mu      sync.Mutex
	L       *lua.LState
	actions *modules.ActionModule
	closed  bool
}

// NewRuntime creates a Lua VM with the log, action, hue and kv modules preloaded
func NewRuntime(deps RuntimeDeps) *Runtime {
	L := lua.NewState()

	L.PreloadModule("log", modules.NewLogModule().Loader)
	actionModule := modules.NewActionModule(deps.Invoker, deps.Config)
	L.PreloadModule("action", actionModule.Loader)
	L.PreloadModule("hue", modules.NewHueModule(deps.Client).Loader)
	if deps.Buckets != nil {
		L.PreloadModule("kv", modules.NewKVModule(deps.Buckets).Loader)
	}

	return &Runtime{L: L, actions: actionModule}
}

// Close unregisters the actions the script defined and releases the VM.
// Later calls return ErrRuntimeClosed.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.actions.Cleanup()
	r.L.Close()
}

// DoFile executes the script at path. Cancelling ctx aborts the script.
func (r *Runtime) DoFile(ctx context.Context, path string) error {
	log.Info().Str("path", path).Msg("Running Lua script")

	return r.do(ctx, func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("failed to execute Lua script: %w", err)
		}
		return nil
	})
}

// DoString executes source as a chunk
func (r *Runtime) DoString(ctx context.Context, source string) error {
	return r.do(ctx, func(L *lua.LState) error {
		return L.DoString(source)
	})
}

func (r *Runtime) do(ctx context.Context, work func(L *lua.LState) error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRuntimeClosed
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Lua work panicked")
			err = fmt.Errorf("lua panic: %v", rec)
		}
	}()

	// Modules read the Go context through L.Context()
	r.L.SetContext(ctx)
	defer r.L.RemoveContext()

	return work(r.L)
}
