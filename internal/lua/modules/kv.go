package modules

import (
	"time"

	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"

	"github.com/dokzlo13/hueaction/internal/kv"
)

const bucketTypeName = "kv_bucket"

// BucketFactory opens a named bucket
type BucketFactory func(name string) kv.Bucket

// KVModule provides persistent key-value buckets to Lua.
//
//	local counts = kv.bucket("counts")
//	counts:store("dim", (counts:get("dim") or 0) + 1, { ttl = 3600 })
type KVModule struct {
	open BucketFactory
}

// NewKVModule creates a new KV module.
func NewKVModule(open BucketFactory) *KVModule {
	return &KVModule{open: open}
}

// Loader is the module loader for Lua.
func (m *KVModule) Loader(L *lua.LState) int {
	// Register bucket userdata type
	mt := L.NewTypeMetatable(bucketTypeName)
	L.SetField(mt, "__index", L.SetFuncs(L.NewTable(), bucketMethods))

	mod := L.NewTable()
	L.SetField(mod, "bucket", L.NewFunction(m.bucket))

	L.Push(mod)
	return 1
}

// bucket(name) -> Bucket
func (m *KVModule) bucket(L *lua.LState) int {
	name := L.CheckString(1)

	ud := L.NewUserData()
	ud.Value = m.open(name)
	L.SetMetatable(ud, L.GetTypeMetatable(bucketTypeName))

	L.Push(ud)
	return 1
}

// Bucket methods accessible from Lua
var bucketMethods = map[string]lua.LGFunction{
	"store":  bucketStore,
	"get":    bucketGet,
	"delete": bucketDelete,
	"keys":   bucketKeys,
}

// checkBucket extracts the bucket from userdata at the given stack position.
func checkBucket(L *lua.LState, pos int) kv.Bucket {
	ud := L.CheckUserData(pos)
	if bucket, ok := ud.Value.(kv.Bucket); ok {
		return bucket
	}
	L.ArgError(pos, "bucket expected")
	return nil
}

// store(key, value, opts) -> ok
// opts: { ttl = seconds }
func bucketStore(L *lua.LState) int {
	bucket := checkBucket(L, 1)
	key := L.CheckString(2)
	value := LuaToGo(L.Get(3))

	var opts *kv.StoreOptions
	if optsTable := L.OptTable(4, nil); optsTable != nil {
		if ttl, ok := L.GetField(optsTable, "ttl").(lua.LNumber); ok {
			opts = &kv.StoreOptions{TTL: time.Duration(float64(ttl) * float64(time.Second))}
		}
	}

	if err := bucket.Store(key, value, opts); err != nil {
		log.Warn().Err(err).
			Str("bucket", bucket.Name()).
			Str("key", key).
			Msg("Failed to store value")
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LTrue)
	return 1
}

// get(key) -> value | nil
func bucketGet(L *lua.LState) int {
	bucket := checkBucket(L, 1)
	key := L.CheckString(2)

	var value any
	found, err := bucket.Load(key, &value)
	if err != nil {
		log.Warn().Err(err).
			Str("bucket", bucket.Name()).
			Str("key", key).
			Msg("Failed to get value")
	}
	if err != nil || !found {
		L.Push(lua.LNil)
		return 1
	}

	L.Push(GoToLuaValue(L, value))
	return 1
}

// delete(key) -> bool
func bucketDelete(L *lua.LState) int {
	bucket := checkBucket(L, 1)
	key := L.CheckString(2)

	deleted, err := bucket.Delete(key)
	if err != nil {
		log.Warn().Err(err).
			Str("bucket", bucket.Name()).
			Str("key", key).
			Msg("Failed to delete key")
		L.Push(lua.LFalse)
		return 1
	}

	L.Push(lua.LBool(deleted))
	return 1
}

// keys() -> table
func bucketKeys(L *lua.LState) int {
	bucket := checkBucket(L, 1)

	keys, err := bucket.Keys()
	if err != nil {
		log.Warn().Err(err).
			Str("bucket", bucket.Name()).
			Msg("Failed to list keys")
		L.Push(L.NewTable())
		return 1
	}

	L.Push(GoToLuaValue(L, keys))
	return 1
}
