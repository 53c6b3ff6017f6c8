package composite

import (
	"context"
	"testing"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/ShadowBlip/InputPlumber-sub001/target"
	"github.com/ShadowBlip/InputPlumber-sub001/translator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	caps   map[native.Capability]struct{}
	events []native.NativeEvent
	stopped bool
}

func (f *fakeTarget) WriteEvent(ev native.NativeEvent)              { f.events = append(f.events, ev) }
func (f *fakeTarget) Capabilities() map[native.Capability]struct{} { return f.caps }
func (f *fakeTarget) Type() string                                 { return "fake" }
func (f *fakeTarget) ClearState()                                  {}
func (f *fakeTarget) PollOutput() (native.OutputEvent, bool)       { return native.OutputEvent{}, false }
func (f *fakeTarget) Stop()                                        { f.stopped = true }

type fakeFactory struct {
	targets map[string]*fakeTarget
	n       int
}

func (f *fakeFactory) CreateTarget(typeID string) (string, target.Device, error) {
	if f.targets == nil {
		f.targets = make(map[string]*fakeTarget)
	}
	f.n++
	t := &fakeTarget{caps: map[native.Capability]struct{}{
		native.NewGamepadButton(native.ButtonSouth): {},
		native.NewGamepadAxis(native.AxisLeftStick):  {},
	}}
	path := typeID
	f.targets[path] = t
	return path, t, nil
}

func (f *fakeFactory) DestroyTarget(path string) { delete(f.targets, path) }

func runComposite(t *testing.T) (*CompositeDevice, *fakeFactory) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	factory := &fakeFactory{}
	cd := New("test-composite", "/composite/0", factory, nil)
	go cd.Run(ctx)
	return cd, factory
}

func TestDispatchRoutesToCapabilityIndexedTarget(t *testing.T) {
	cd, factory := runComposite(t)
	cd.SetTargetDevices([]string{"xbox360"})

	cd.Dispatch("src1", []native.NativeEvent{
		native.NewEvent(native.NewGamepadButton(native.ButtonSouth), native.Bool(true)),
	})

	require.Eventually(t, func() bool {
		return len(factory.targets["xbox360"].events) == 1
	}, time.Second, time.Millisecond)
}

func TestProfileRuleRemapsButtonToAxis(t *testing.T) {
	cd, factory := runComposite(t)
	cd.SetTargetDevices([]string{"xbox360"})

	pt := translator.NewProfileTable([]translator.ProfileRule{
		{
			Source:    native.NewGamepadButton(native.ButtonDPadRight),
			Target:    native.NewGamepadAxis(native.AxisLeftStick),
			Direction: translator.Direction{Component: 'X', Sign: 1},
		},
	})
	cd.sync(func() { cd.profileTable = pt })

	cd.Dispatch("src1", []native.NativeEvent{
		native.NewEvent(native.NewGamepadButton(native.ButtonDPadRight), native.Bool(true)),
	})

	require.Eventually(t, func() bool {
		return len(factory.targets["xbox360"].events) == 1
	}, time.Second, time.Millisecond)
	ev := factory.targets["xbox360"].events[0]
	assert.Equal(t, native.NewGamepadAxis(native.AxisLeftStick), ev.Capability)
	require.NotNil(t, ev.Value.X)
	assert.Equal(t, 1.0, *ev.Value.X)
}

func TestAlwaysModeSuppressesNonDBusDispatch(t *testing.T) {
	cd, factory := runComposite(t)
	cd.SetTargetDevices([]string{"xbox360"})
	cd.SetInterceptMode(InterceptAlways)

	cd.Dispatch("src1", []native.NativeEvent{
		native.NewEvent(native.NewGamepadButton(native.ButtonSouth), native.Bool(true)),
	})

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, factory.targets["xbox360"].events)
}

func TestSetInterceptActivationFiresOnChordComplete(t *testing.T) {
	cd, factory := runComposite(t)
	cd.SetTargetDevices([]string{"xbox360"})
	factory.targets["xbox360"].caps[native.NewGamepadButton(native.ButtonGuide)] = struct{}{}
	cd.UpdateTargetCapabilities("xbox360", factory.targets["xbox360"].caps)

	start := native.NewGamepadButton(native.ButtonStart)
	selectBtn := native.NewGamepadButton(native.ButtonSelect)
	guide := native.NewGamepadButton(native.ButtonGuide)
	cd.SetInterceptActivation([]native.Capability{start, selectBtn}, guide)

	cd.Dispatch("src1", []native.NativeEvent{native.NewEvent(start, native.Bool(true))})
	cd.Dispatch("src1", []native.NativeEvent{native.NewEvent(selectBtn, native.Bool(true))})

	require.Eventually(t, func() bool {
		for _, ev := range factory.targets["xbox360"].events {
			if ev.Capability == guide && ev.Value.AsBool() {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestSetTargetDevicesRetiresUnwantedTypes(t *testing.T) {
	cd, factory := runComposite(t)
	cd.SetTargetDevices([]string{"xbox360"})
	require.Eventually(t, func() bool { return factory.targets["xbox360"] != nil }, time.Second, time.Millisecond)

	cd.SetTargetDevices([]string{"ds4"})

	require.Eventually(t, func() bool { return factory.targets["ds4"] != nil }, time.Second, time.Millisecond)
	assert.True(t, factory.targets["xbox360"].stopped)
	assert.Equal(t, []string{"ds4"}, cd.GetTargetDevicePaths())
}
