package hue

import (
	"testing"

	"github.com/dokzlo13/hueaction/internal/hue/huetest"
)

type recordedPut = huetest.Put

type fakeBridge struct {
	*huetest.Bridge
}

func newFakeBridge(t *testing.T) *fakeBridge {
	t.Helper()
	return &fakeBridge{huetest.NewBridge(t)}
}

func (f *fakeBridge) addLight(id, name string, on bool, bri int) { f.AddLight(id, name, on, bri) }
func (f *fakeBridge) addPlug(id, name string, on bool)           { f.AddPlug(id, name, on) }
func (f *fakeBridge) setFailPuts(fail bool)                      { f.SetFailPuts(fail) }
func (f *fakeBridge) address() string                            { return f.Address() }
func (f *fakeBridge) recordedPuts() []recordedPut                { return f.Puts() }

func (f *fakeBridge) client() *Client {
	return NewClient(f.Address(), ClientOptions{})
}
