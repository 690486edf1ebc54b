package lua

import (
	"github.com/dokzlo13/hueaction/internal/actions"
	"github.com/dokzlo13/hueaction/internal/hue"
	"github.com/dokzlo13/hueaction/internal/lua/modules"
)

// RuntimeDeps groups all dependencies needed by the Lua runtime.
type RuntimeDeps struct {
	Invoker *actions.Invoker
	Config  actions.ModuleConfig
	Client  *hue.Client           // nil until the bridge is installed
	Buckets modules.BucketFactory // nil disables the kv module
}
