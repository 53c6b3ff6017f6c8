package native

import "time"

// NativeEvent is the pipeline's internal representation of a single input
// sample: a capability, its value, and an optional scheduled firing time for
// delayed-release events (the delayed-chord mapping in translator/translator.go).
// NativeEvent defines no equality method; comparing two events with == also
// compares FireAt and the Value's component pointers.
type NativeEvent struct {
	Capability Capability
	Value      InputValue
	FireAt     time.Time // zero if not a scheduled event
}

// NewEvent constructs an immediate (non-scheduled) event.
func NewEvent(cap Capability, val InputValue) NativeEvent {
	return NativeEvent{Capability: cap, Value: val}
}

// Scheduled constructs an event that should not be dispatched until At.
func Scheduled(cap Capability, val InputValue, at time.Time) NativeEvent {
	return NativeEvent{Capability: cap, Value: val, FireAt: at}
}

// IsScheduled reports whether the event carries a future firing time.
func (e NativeEvent) IsScheduled() bool { return !e.FireAt.IsZero() }

// Due reports whether a scheduled event's firing time has passed.
func (e NativeEvent) Due(now time.Time) bool {
	return e.FireAt.IsZero() || !e.FireAt.After(now)
}

// OutputEvent flows from a target to a source, requesting a physical effect:
// rumble, LED, or haptic feedback. Kind determines which payload field is
// meaningful.
type OutputEvent struct {
	Kind OutputKind

	Rumble    RumblePayload
	LED       LEDPayload
	EffectID  int       // caller-supplied force-feedback effect id, for Upload/Erase
	Timestamp uint16    // OutputTouchTimestamp: MSC_TIMESTAMP-equivalent tick, microseconds mod 2^16
}

type OutputKind uint8

const (
	OutputNone OutputKind = iota
	OutputRumbleUpload
	OutputRumblePlay
	OutputRumbleStop
	OutputRumbleErase
	OutputLED
	// OutputTouchTimestamp is emitted by a touchpad/touchscreen kernel
	// target on every poll while any contact is active, even if no
	// coordinate changed in the interval, per spec.md §4.2's mandatory
	// timestamp-maintenance requirement.
	OutputTouchTimestamp
)

// RumblePayload carries normalized [0,1] magnitudes for the strong
// (low-frequency) and weak (high-frequency) rumble motors.
type RumblePayload struct {
	StrongMagnitude float64
	WeakMagnitude   float64
	DurationMS      uint16 // 0 == infinite, per the kernel FF_RUMBLE convention
}

// LEDPayload carries an RGB LED write, scaled to the device's max_brightness
// by the LED source at write time.
type LEDPayload struct {
	R, G, B uint8
	Index   uint8 // multi_index, for multi-zone LED nodes
}
