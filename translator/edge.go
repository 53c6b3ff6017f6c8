package translator

import "github.com/ShadowBlip/InputPlumber-sub001/native"

// DefaultDeadzone is the axis→button deadzone used when a profile rule
// doesn't declare one, per spec.md §4.3.
const DefaultDeadzone = 0.3

// EdgeDetector turns a continuous axis magnitude into discrete press/release
// events external to the stateless profile-translation function, per
// spec.md §4.3's note that axis→button must be edge-detected outside the
// translator to avoid repeat presses every poll.
type EdgeDetector struct {
	pressed map[native.Capability]bool
}

func NewEdgeDetector() *EdgeDetector {
	return &EdgeDetector{pressed: make(map[native.Capability]bool)}
}

// Feed reports whether target should transition, and to what state, given
// the current magnitude of the source axis component in the declared
// direction. Returns ok=false when no transition occurred.
func (e *EdgeDetector) Feed(target native.Capability, magnitude, deadzone float64) (pressed bool, ok bool) {
	if deadzone <= 0 {
		deadzone = DefaultDeadzone
	}
	want := magnitude >= deadzone
	have := e.pressed[target]
	if want == have {
		return want, false
	}
	e.pressed[target] = want
	return want, true
}

// Clear resets all tracked press state, used when a profile reloads or the
// owning target's ClearState fires.
func (e *EdgeDetector) Clear() {
	for k := range e.pressed {
		delete(e.pressed, k)
	}
}
