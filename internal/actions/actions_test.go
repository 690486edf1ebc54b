package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/hueaction/internal/db"
	"github.com/dokzlo13/hueaction/internal/ledger"
)

func echoAction(prefix string) HandlerFunc {
	return func(ctx *Context, param string) (string, error) {
		return prefix + param, nil
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	for _, name := range []string{"turn on the", "turn on all lights", "turn off the", "dim", "brighten"} {
		require.NoError(t, r.RegisterSimple(name, echoAction(name+":")))
	}
	return r
}

func TestRegistry_DuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterSimple("dim", echoAction("")))
	assert.Error(t, r.RegisterSimple("dim", echoAction("")))
}

func TestRegistry_Unregister(t *testing.T) {
	r := newTestRegistry(t)

	assert.True(t, r.Unregister("dim"))
	assert.False(t, r.Unregister("dim"))
	_, ok := r.Get("dim")
	assert.False(t, ok)
	_, _, ok = r.Match("dim Desk")
	assert.False(t, ok)

	require.NoError(t, r.RegisterSimple("dim", echoAction("again:")))
}

func TestRegistry_NamesSorted(t *testing.T) {
	r := newTestRegistry(t)
	assert.Equal(t, []string{"brighten", "dim", "turn off the", "turn on all lights", "turn on the"}, r.Names())
}

func TestRegistry_Match(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		command    string
		wantAction string
		wantParam  string
		wantOK     bool
	}{
		{"turn on the Kitchen", "turn on the", "Kitchen", true},
		{"Turn  On THE living room", "turn on the", "living room", true},
		{"turn on all lights", "turn on all lights", "", true},
		{"dim Desk Lamp", "dim", "Desk Lamp", true},
		{"brighten", "brighten", "", true},
		{"dimmer lamp", "", "", false},
		{"turn on", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		action, param, ok := r.Match(tt.command)
		assert.Equal(t, tt.wantOK, ok, tt.command)
		if !tt.wantOK {
			continue
		}
		assert.Equal(t, tt.wantAction, action.Name(), tt.command)
		assert.Equal(t, tt.wantParam, param, tt.command)
	}
}

func TestInvoker_RunRecordsLedger(t *testing.T) {
	database, err := db.OpenMemory()
	require.NoError(t, err)
	defer database.Close()
	l := ledger.New(database.DB)

	r := newTestRegistry(t)
	require.NoError(t, r.RegisterSimple("explode", func(ctx *Context, param string) (string, error) {
		return "", errors.New("kaboom")
	}))
	inv := NewInvoker(r, l)

	cfg := ModuleConfig{Address: "http://bridge/api/user"}
	res, err := inv.Run(context.Background(), "dim Desk", cfg, "test")
	require.NoError(t, err)
	assert.Equal(t, "dim", res.Action)
	assert.Equal(t, "Desk", res.Param)
	assert.Equal(t, "dim:Desk", res.Response)
	assert.NotEmpty(t, res.InvocationID)

	_, err = inv.Invoke(context.Background(), "explode", "", cfg)
	assert.EqualError(t, err, "kaboom")

	_, err = inv.Run(context.Background(), "open the pod bay doors", cfg, "test")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = inv.Invoke(context.Background(), "missing", "", cfg)
	assert.ErrorIs(t, err, ErrActionNotFound)

	completed, err := l.GetByType(ledger.EventActionCompleted, 10)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, res.InvocationID, completed[0].InvocationID)
	assert.Equal(t, "test", completed[0].Source)
	assert.Equal(t, "dim:Desk", completed[0].Payload["response"])

	failed, err := l.GetByType(ledger.EventActionFailed, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "kaboom", failed[0].Payload["error"])
}

func TestInvoker_PassesConfigAndContext(t *testing.T) {
	r := NewRegistry()
	var seen ModuleConfig
	var seenID string
	require.NoError(t, r.RegisterSimple("inspect", func(ctx *Context, param string) (string, error) {
		seen = ctx.Config()
		seenID = ctx.InvocationID()
		return "ok", ctx.Ctx().Err()
	}))

	inv := NewInvoker(r, nil)
	assert.True(t, inv.HasAction("inspect"))
	assert.False(t, inv.HasAction("nope"))

	res, err := inv.Invoke(context.Background(), "inspect", "", ModuleConfig{Address: "http://x/api/y"})
	require.NoError(t, err)
	assert.Equal(t, "http://x/api/y", seen.Address)
	assert.Equal(t, res.InvocationID, seenID)
}
