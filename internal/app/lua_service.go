package app

import (
	"context"

	luart "github.com/dokzlo13/hueaction/internal/lua"
)

// RunScript executes a Lua script with the action, hue, log and kv modules.
// The hue module is unavailable until a bridge is installed.
func (s *Services) RunScript(ctx context.Context, path string) error {
	mc, err := s.ModuleConfig(ctx)
	if err != nil {
		return err
	}

	deps := luart.RuntimeDeps{
		Invoker: s.Invoker,
		Config:  mc,
		Buckets: s.Bucket,
	}
	if !mc.IsZero() {
		client, err := s.Client(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		deps.Client = client
	}

	runtime := luart.NewRuntime(deps)
	defer runtime.Close()

	return runtime.DoFile(ctx, path)
}
