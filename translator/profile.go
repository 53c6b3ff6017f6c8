package translator

import "github.com/ShadowBlip/InputPlumber-sub001/native"

// valueShape classifies a Capability by the shape of value it natively
// carries, which is what the profile translation matrix (spec.md §4.3)
// actually dispatches on.
type valueShape uint8

const (
	shapeButton valueShape = iota
	shapeAxis
	shapeTrigger
	shapeOther
)

func shapeOf(c native.Capability) valueShape {
	if c.Kind == native.KindGamepad {
		switch c.GamepadSub {
		case native.GamepadButton:
			return shapeButton
		case native.GamepadAxis:
			return shapeAxis
		case native.GamepadTrigger:
			return shapeTrigger
		}
	}
	if c.Kind == native.KindMouse && c.MouseSub == native.MouseButton {
		return shapeButton
	}
	if c.Kind == native.KindKeyboard {
		return shapeButton
	}
	return shapeOther
}

// Direction names which Vector2 component a button→axis rule drives, and
// with what sign, e.g. DPadRight -> LeftStick{Component: X, Sign: +1}.
type Direction struct {
	Component byte // 'X' or 'Y'
	Sign      int  // +1 or -1
}

// ProfileRule remaps one source Capability to a target Capability, per a
// per-composite profile (profile/ package loads these from YAML/TOML).
type ProfileRule struct {
	Source    native.Capability
	Target    native.Capability
	Direction Direction // meaningful for button->axis and axis->button
	Deadzone  float64   // meaningful for axis->button; 0 uses DefaultDeadzone
}

// ProfileTable is the per-composite capability remapping table, keyed by
// source Capability for O(1) lookup.
type ProfileTable struct {
	rules map[native.Capability]ProfileRule
	edges map[native.Capability]*EdgeDetector
}

func NewProfileTable(rules []ProfileRule) *ProfileTable {
	pt := &ProfileTable{
		rules: make(map[native.Capability]ProfileRule, len(rules)),
		edges: make(map[native.Capability]*EdgeDetector),
	}
	for _, r := range rules {
		pt.rules[r.Source] = r
	}
	return pt
}

// Lookup reports whether the profile remaps cap, per spec.md §4.4 step 3
// ("if the profile remaps the capability").
func (pt *ProfileTable) Lookup(cap native.Capability) (ProfileRule, bool) {
	if pt == nil {
		return ProfileRule{}, false
	}
	r, ok := pt.rules[cap]
	return r, ok
}

// Apply implements the profile translation matrix from spec.md §4.3. It may
// return zero events (drop), one event, or — for the axis→button case where
// the edge detector finds no transition — zero events even on a non-drop
// rule.
func (pt *ProfileTable) Apply(rule ProfileRule, ev native.NativeEvent) []native.NativeEvent {
	srcShape := shapeOf(rule.Source)
	dstShape := shapeOf(rule.Target)

	if rule.Target.Kind == native.KindDBus {
		return []native.NativeEvent{native.NewEvent(rule.Target, ev.Value)}
	}
	if rule.Target.Kind == native.KindSync || rule.Target.Kind == native.KindNotImplemented {
		return nil
	}

	switch {
	case srcShape == shapeButton && dstShape == shapeButton:
		return []native.NativeEvent{native.NewEvent(rule.Target, ev.Value)}

	case srcShape == shapeButton && dstShape == shapeAxis:
		pressed := ev.Value.AsBool()
		var x, y *float64
		mag := 0.0
		if pressed {
			mag = float64(rule.Direction.Sign)
			if mag == 0 {
				mag = 1
			}
		}
		if rule.Direction.Component == 'Y' {
			y = f64ptr(mag)
			x = f64ptr(0)
		} else {
			x = f64ptr(mag)
			y = f64ptr(0)
		}
		return []native.NativeEvent{native.NewEvent(rule.Target, native.Vector2(x, y))}

	case srcShape == shapeButton && dstShape == shapeTrigger:
		v := 0.0
		if ev.Value.AsBool() {
			v = 1.0
		}
		return []native.NativeEvent{native.NewEvent(rule.Target, native.Float(v))}

	case srcShape == shapeAxis && dstShape == shapeButton:
		det := pt.edges[rule.Source]
		if det == nil {
			det = NewEdgeDetector()
			pt.edges[rule.Source] = det
		}
		mag := componentMagnitude(ev.Value, rule.Direction)
		pressed, changed := det.Feed(rule.Target, mag, rule.Deadzone)
		if !changed {
			return nil
		}
		return []native.NativeEvent{native.NewEvent(rule.Target, native.Bool(pressed))}

	case srcShape == shapeAxis && dstShape == shapeAxis:
		return []native.NativeEvent{native.NewEvent(rule.Target, ev.Value)}

	default:
		return nil
	}
}

func componentMagnitude(v native.InputValue, dir Direction) float64 {
	var raw float64
	if dir.Component == 'Y' {
		if v.Y != nil {
			raw = *v.Y
		}
	} else {
		if v.X != nil {
			raw = *v.X
		}
	}
	if dir.Sign < 0 {
		raw = -raw
	}
	if raw < 0 {
		return 0
	}
	return raw
}

func f64ptr(v float64) *float64 { return &v }
