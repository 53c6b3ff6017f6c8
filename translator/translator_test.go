package translator

import (
	"testing"
	"time"

	"github.com/ShadowBlip/InputPlumber-sub001/native"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyF1() native.Capability { return native.NewKeyboardKey("KeyF1") }
func keyF2() native.Capability { return native.NewKeyboardKey("KeyF2") }
func guide() native.Capability { return native.NewGamepadButton(native.ButtonGuide) }

func TestChordMapping(t *testing.T) {
	// spec.md §8 round-trip law: {A,B}->X; press A then B emits one X=true;
	// release A then B emits one X=false on the second release; intermediate
	// releases of either alone (without the other held) emit nothing.
	cm := NewCapabilityMap([]Mapping{
		{Kind: MappingChord, Members: []native.Capability{keyF1(), keyF2()}, Target: guide()},
	})
	tr := New(cm)

	out := tr.Feed(native.NewEvent(keyF1(), native.Bool(true)))
	assert.Empty(t, out, "F1 alone emits nothing")

	out = tr.Feed(native.NewEvent(keyF2(), native.Bool(true)))
	require.Len(t, out, 1)
	assert.Equal(t, guide(), out[0].Capability)
	assert.True(t, out[0].Value.AsBool())

	out = tr.Feed(native.NewEvent(keyF1(), native.Bool(false)))
	assert.Empty(t, out, "releasing a used member alone does not re-fire or release")

	out = tr.Feed(native.NewEvent(keyF2(), native.Bool(false)))
	require.Len(t, out, 1)
	assert.Equal(t, guide(), out[0].Capability)
	assert.False(t, out[0].Value.AsBool())
}

func TestChordIntermediateReleaseWithoutCompletion(t *testing.T) {
	cm := NewCapabilityMap([]Mapping{
		{Kind: MappingChord, Members: []native.Capability{keyF1(), keyF2()}, Target: guide()},
	})
	tr := New(cm)

	out := tr.Feed(native.NewEvent(keyF1(), native.Bool(true)))
	assert.Empty(t, out)
	out = tr.Feed(native.NewEvent(keyF1(), native.Bool(false)))
	assert.Empty(t, out, "release of A without B held emits nothing")
	out = tr.Feed(native.NewEvent(keyF2(), native.Bool(true)))
	assert.Empty(t, out, "B alone (A no longer held) does not complete the chord")
}

func TestDelayedChordSchedulesRelease(t *testing.T) {
	activation := native.NewGamepadButton(native.ButtonQuickAccess)
	cm := NewCapabilityMap([]Mapping{
		{Kind: MappingDelayedChord, Members: []native.Capability{keyF1()}, Target: activation},
	})
	tr := New(cm)
	base := time.Now()
	tr.now = func() time.Time { return base }

	out := tr.Feed(native.NewEvent(keyF1(), native.Bool(true)))
	assert.Empty(t, out, "press alone does not fire")

	out = tr.Feed(native.NewEvent(keyF1(), native.Bool(false)))
	require.Len(t, out, 1)
	assert.True(t, out[0].Value.AsBool())

	// Not due yet.
	assert.Empty(t, tr.Poll())

	tr.now = func() time.Time { return base.Add(101 * time.Millisecond) }
	due := tr.Poll()
	require.Len(t, due, 1)
	assert.False(t, due[0].Value.AsBool())
}

func TestMultiSourceFanOutWithSignFilter(t *testing.T) {
	hat := native.NewGamepadAxis(native.AxisHat0)
	up := native.NewGamepadButton(native.ButtonDPadUp)
	down := native.NewGamepadButton(native.ButtonDPadDown)
	cm := NewCapabilityMap([]Mapping{
		{Kind: MappingMultiSource, Members: []native.Capability{hat}, FanOuts: []FanOut{
			{Target: up, RequireSign: -1},
			{Target: down, RequireSign: 1},
		}},
	})
	tr := New(cm)
	y := -1.0
	out := tr.Feed(native.NewEvent(hat, native.Vector2(nil, &y)))
	require.Len(t, out, 1)
	assert.Equal(t, up, out[0].Capability)
}

func TestProfileButtonToAxis(t *testing.T) {
	src := native.NewGamepadButton(native.ButtonDPadRight)
	dst := native.NewGamepadAxis(native.AxisLeftStick)
	pt := NewProfileTable([]ProfileRule{
		{Source: src, Target: dst, Direction: Direction{Component: 'X', Sign: 1}},
	})
	rule, ok := pt.Lookup(src)
	require.True(t, ok)
	out := pt.Apply(rule, native.NewEvent(src, native.Bool(true)))
	require.Len(t, out, 1)
	require.Equal(t, native.ValueVector2, out[0].Value.Type)
	assert.Equal(t, 1.0, *out[0].Value.X)
	assert.Equal(t, 0.0, *out[0].Value.Y)
}

func TestProfileAxisToButtonEdgeDetected(t *testing.T) {
	src := native.NewGamepadAxis(native.AxisLeftStick)
	dst := native.NewGamepadButton(native.ButtonDPadRight)
	pt := NewProfileTable([]ProfileRule{
		{Source: src, Target: dst, Direction: Direction{Component: 'X', Sign: 1}, Deadzone: 0.3},
	})
	rule, _ := pt.Lookup(src)

	below := 0.1
	out := pt.Apply(rule, native.NewEvent(src, native.Vector2(&below, nil)))
	assert.Empty(t, out, "below deadzone: no transition")

	above := 0.5
	out = pt.Apply(rule, native.NewEvent(src, native.Vector2(&above, nil)))
	require.Len(t, out, 1)
	assert.True(t, out[0].Value.AsBool())

	// Repeated polls at the same magnitude must not re-fire (edge-detected).
	out = pt.Apply(rule, native.NewEvent(src, native.Vector2(&above, nil)))
	assert.Empty(t, out)
}

func TestProfileDropsSyncAndNotImplemented(t *testing.T) {
	src := native.NewGamepadButton(native.ButtonSouth)
	pt := NewProfileTable([]ProfileRule{
		{Source: src, Target: native.NewSync()},
	})
	rule, _ := pt.Lookup(src)
	out := pt.Apply(rule, native.NewEvent(src, native.Bool(true)))
	assert.Empty(t, out)

	src2 := native.NewGamepadButton(native.ButtonEast)
	pt2 := NewProfileTable([]ProfileRule{
		{Source: src2, Target: native.NewNotImplemented()},
	})
	rule2, _ := pt2.Lookup(src2)
	assert.Empty(t, pt2.Apply(rule2, native.NewEvent(src2, native.Bool(true))))
}
