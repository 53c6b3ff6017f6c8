// Package native defines the canonical input taxonomy that every source and
// target in the pipeline speaks: Capability, InputValue, and NativeEvent.
// Source-specific codes are translated into this vocabulary at the source
// boundary and never cross a CompositeDevice's event bus in raw form.
package native

import (
	"fmt"
	"strings"
)

// Kind names the top-level family a Capability belongs to.
type Kind uint8

const (
	KindNone Kind = iota
	KindSync
	KindNotImplemented
	KindGamepad
	KindMouse
	KindKeyboard
	KindTouchpad
	KindTouchscreen
	KindDBus
	KindAccelerometer
	KindGyroscope
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindSync:
		return "Sync"
	case KindNotImplemented:
		return "NotImplemented"
	case KindGamepad:
		return "Gamepad"
	case KindMouse:
		return "Mouse"
	case KindKeyboard:
		return "Keyboard"
	case KindTouchpad:
		return "Touchpad"
	case KindTouchscreen:
		return "Touchscreen"
	case KindDBus:
		return "DBus"
	case KindAccelerometer:
		return "Accelerometer"
	case KindGyroscope:
		return "Gyroscope"
	default:
		return "Unknown"
	}
}

// GamepadSub discriminates the Gamepad sub-taxonomy (Button/Axis/Trigger/...).
type GamepadSub uint8

const (
	GamepadNone GamepadSub = iota
	GamepadButton
	GamepadAxis
	GamepadTrigger
	GamepadAccelerometer
	GamepadGyro
)

func (s GamepadSub) String() string {
	switch s {
	case GamepadButton:
		return "Button"
	case GamepadAxis:
		return "Axis"
	case GamepadTrigger:
		return "Trigger"
	case GamepadAccelerometer:
		return "Accelerometer"
	case GamepadGyro:
		return "Gyro"
	default:
		return "None"
	}
}

// Button names every gamepad button the pipeline understands. Closed catalog
// per SPEC_FULL.md's Capability catalog supplement.
type Button uint8

const (
	ButtonNone Button = iota
	ButtonNorth
	ButtonSouth
	ButtonEast
	ButtonWest
	ButtonStart
	ButtonSelect
	ButtonGuide
	ButtonQuickAccess
	ButtonLB
	ButtonRB
	ButtonLZ
	ButtonRZ
	ButtonThumbL
	ButtonThumbR
	ButtonDPadUp
	ButtonDPadDown
	ButtonDPadLeft
	ButtonDPadRight
)

var buttonNames = map[Button]string{
	ButtonNorth: "North", ButtonSouth: "South", ButtonEast: "East", ButtonWest: "West",
	ButtonStart: "Start", ButtonSelect: "Select", ButtonGuide: "Guide", ButtonQuickAccess: "QuickAccess",
	ButtonLB: "LB", ButtonRB: "RB", ButtonLZ: "LZ", ButtonRZ: "RZ",
	ButtonThumbL: "ThumbL", ButtonThumbR: "ThumbR",
	ButtonDPadUp: "DPadUp", ButtonDPadDown: "DPadDown", ButtonDPadLeft: "DPadLeft", ButtonDPadRight: "DPadRight",
}

func (b Button) String() string {
	if n, ok := buttonNames[b]; ok {
		return n
	}
	return "None"
}

// Axis names every gamepad analog axis the pipeline understands.
type Axis uint8

const (
	AxisNone Axis = iota
	AxisLeftStick
	AxisRightStick
	AxisHat0
)

var axisNames = map[Axis]string{
	AxisLeftStick: "LeftStick", AxisRightStick: "RightStick", AxisHat0: "Hat0",
}

func (a Axis) String() string {
	if n, ok := axisNames[a]; ok {
		return n
	}
	return "None"
}

// Trigger names every gamepad analog trigger the pipeline understands.
type Trigger uint8

const (
	TriggerNone Trigger = iota
	TriggerLeftTrigger
	TriggerRightTrigger
	TriggerLeftTouchpadForce
	TriggerRightTouchpadForce
	TriggerLeftStickForce
	TriggerRightStickForce
)

var triggerNames = map[Trigger]string{
	TriggerLeftTrigger: "LeftTrigger", TriggerRightTrigger: "RightTrigger",
	TriggerLeftTouchpadForce: "LeftTouchpadForce", TriggerRightTouchpadForce: "RightTouchpadForce",
	TriggerLeftStickForce: "LeftStickForce", TriggerRightStickForce: "RightStickForce",
}

func (t Trigger) String() string {
	if n, ok := triggerNames[t]; ok {
		return n
	}
	return "None"
}

// MouseSub discriminates Mouse capabilities.
type MouseSub uint8

const (
	MouseNone MouseSub = iota
	MouseMotion
	MouseButton
)

// MouseButton names every mouse button the pipeline understands.
type MouseButton uint8

const (
	MouseBtnNone MouseButton = iota
	MouseBtnLeft
	MouseBtnRight
	MouseBtnMiddle
	MouseBtnWheelUp
	MouseBtnWheelDown
	MouseBtnExtra1
	MouseBtnExtra2
)

var mouseButtonNames = map[MouseButton]string{
	MouseBtnLeft: "Left", MouseBtnRight: "Right", MouseBtnMiddle: "Middle",
	MouseBtnWheelUp: "WheelUp", MouseBtnWheelDown: "WheelDown",
	MouseBtnExtra1: "Extra1", MouseBtnExtra2: "Extra2",
}

func (m MouseButton) String() string {
	if n, ok := mouseButtonNames[m]; ok {
		return n
	}
	return "None"
}

// KeyboardKey names a keyboard key. It is a free-form string: this package
// defines no catalog of key names and checks none.
type KeyboardKey string

// IMUSource names which physical sensor produced an IMU sample,
// since a composite may own more than one (e.g. a handheld's chassis IMU and
// a per-joycon IMU).
type IMUSource uint8

const (
	IMUSourceNone IMUSource = iota
	IMUSourceDefault
	IMUSourceLeft
	IMUSourceRight
)

func (s IMUSource) String() string {
	switch s {
	case IMUSourceLeft:
		return "Left"
	case IMUSourceRight:
		return "Right"
	default:
		return "Default"
	}
}

// Capability is a canonical name for an input signal, independent of any
// hardware. It is a closed sum type: construct one with the NewXxx
// constructors rather than by hand, so the zero value remains KindNone/None.
type Capability struct {
	Kind        Kind
	GamepadSub  GamepadSub
	Button      Button
	Axis        Axis
	Trigger     Trigger
	MouseSub    MouseSub
	MouseButton MouseButton
	Key         KeyboardKey
	IMUSource   IMUSource
}

func NewGamepadButton(b Button) Capability {
	return Capability{Kind: KindGamepad, GamepadSub: GamepadButton, Button: b}
}

func NewGamepadAxis(a Axis) Capability {
	return Capability{Kind: KindGamepad, GamepadSub: GamepadAxis, Axis: a}
}

func NewGamepadTrigger(t Trigger) Capability {
	return Capability{Kind: KindGamepad, GamepadSub: GamepadTrigger, Trigger: t}
}

func NewGamepadAccelerometer() Capability {
	return Capability{Kind: KindGamepad, GamepadSub: GamepadAccelerometer}
}

func NewGamepadGyro() Capability {
	return Capability{Kind: KindGamepad, GamepadSub: GamepadGyro}
}

func NewMouseMotion() Capability {
	return Capability{Kind: KindMouse, MouseSub: MouseMotion}
}

func NewMouseButton(b MouseButton) Capability {
	return Capability{Kind: KindMouse, MouseSub: MouseButton, MouseButton: b}
}

func NewKeyboardKey(k KeyboardKey) Capability {
	return Capability{Kind: KindKeyboard, Key: k}
}

func NewTouchpad() Capability  { return Capability{Kind: KindTouchpad} }
func NewTouchscreen() Capability { return Capability{Kind: KindTouchscreen} }
func NewDBus() Capability      { return Capability{Kind: KindDBus} }
func NewSync() Capability      { return Capability{Kind: KindSync} }
func NewNotImplemented() Capability { return Capability{Kind: KindNotImplemented} }

func NewAccelerometer(src IMUSource) Capability {
	return Capability{Kind: KindAccelerometer, IMUSource: src}
}

func NewGyroscope(src IMUSource) Capability {
	return Capability{Kind: KindGyroscope, IMUSource: src}
}

// IsGamepad reports whether the capability belongs to the Gamepad class, used
// by the GamepadOnly intercept-routing rule.
func (c Capability) IsGamepad() bool { return c.Kind == KindGamepad }

// IsDBus reports whether the capability targets the virtual-overlay class.
func (c Capability) IsDBus() bool { return c.Kind == KindDBus }

// IsGuideButton reports whether this is the Gamepad:Button:Guide capability,
// the one that drives Pass-mode's transient Always transition.
func (c Capability) IsGuideButton() bool {
	return c.Kind == KindGamepad && c.GamepadSub == GamepadButton && c.Button == ButtonGuide
}

// String renders the capability in the normative colon-separated wire form,
// e.g. "Gamepad:Button:South", "Mouse:Motion", "Keyboard:KeyEnter".
func (c Capability) String() string {
	switch c.Kind {
	case KindNone:
		return "None"
	case KindSync:
		return "Sync"
	case KindNotImplemented:
		return "NotImplemented"
	case KindDBus:
		return "DBus"
	case KindTouchpad:
		return "Touchpad"
	case KindTouchscreen:
		return "Touchscreen"
	case KindAccelerometer:
		return fmt.Sprintf("Accelerometer:%s", c.IMUSource)
	case KindGyroscope:
		return fmt.Sprintf("Gyroscope:%s", c.IMUSource)
	case KindKeyboard:
		return fmt.Sprintf("Keyboard:%s", c.Key)
	case KindMouse:
		switch c.MouseSub {
		case MouseMotion:
			return "Mouse:Motion"
		case MouseButton:
			return fmt.Sprintf("Mouse:Button:%s", c.MouseButton)
		default:
			return "Mouse:None"
		}
	case KindGamepad:
		switch c.GamepadSub {
		case GamepadButton:
			return fmt.Sprintf("Gamepad:Button:%s", c.Button)
		case GamepadAxis:
			return fmt.Sprintf("Gamepad:Axis:%s", c.Axis)
		case GamepadTrigger:
			return fmt.Sprintf("Gamepad:Trigger:%s", c.Trigger)
		case GamepadAccelerometer:
			return "Gamepad:Accelerometer"
		case GamepadGyro:
			return "Gamepad:Gyro"
		default:
			return "Gamepad:None"
		}
	default:
		return "None"
	}
}

// ParseCapability parses the normative colon-separated capability string
// form. Parsing is strict per SPEC_FULL.md §6: unknown segments are errors,
// never silently coerced to None. The key name after "Keyboard:" is the
// exception: it is accepted as-is and not checked against any key list.
func ParseCapability(s string) (Capability, error) {
	parts := strings.Split(s, ":")
	if len(parts) == 0 {
		return Capability{}, fmt.Errorf("native: empty capability string")
	}
	switch parts[0] {
	case "None":
		return Capability{}, nil
	case "Sync":
		return NewSync(), nil
	case "NotImplemented":
		return NewNotImplemented(), nil
	case "DBus":
		return NewDBus(), nil
	case "Touchpad":
		return NewTouchpad(), nil
	case "Touchscreen":
		return NewTouchscreen(), nil
	case "Accelerometer":
		src := IMUSourceDefault
		if len(parts) > 1 {
			s, err := parseIMUSource(parts[1])
			if err != nil {
				return Capability{}, err
			}
			src = s
		}
		return NewAccelerometer(src), nil
	case "Gyroscope":
		src := IMUSourceDefault
		if len(parts) > 1 {
			s, err := parseIMUSource(parts[1])
			if err != nil {
				return Capability{}, err
			}
			src = s
		}
		return NewGyroscope(src), nil
	case "Keyboard":
		if len(parts) != 2 {
			return Capability{}, fmt.Errorf("native: malformed keyboard capability %q", s)
		}
		return NewKeyboardKey(KeyboardKey(parts[1])), nil
	case "Mouse":
		if len(parts) < 2 {
			return Capability{}, fmt.Errorf("native: malformed mouse capability %q", s)
		}
		switch parts[1] {
		case "Motion":
			return NewMouseMotion(), nil
		case "Button":
			if len(parts) != 3 {
				return Capability{}, fmt.Errorf("native: malformed mouse button capability %q", s)
			}
			b, err := parseMouseButton(parts[2])
			if err != nil {
				return Capability{}, err
			}
			return NewMouseButton(b), nil
		default:
			return Capability{}, fmt.Errorf("native: unknown mouse capability %q", s)
		}
	case "Gamepad":
		if len(parts) < 2 {
			return Capability{}, fmt.Errorf("native: malformed gamepad capability %q", s)
		}
		switch parts[1] {
		case "Button":
			if len(parts) != 3 {
				return Capability{}, fmt.Errorf("native: malformed gamepad button capability %q", s)
			}
			b, err := parseButton(parts[2])
			if err != nil {
				return Capability{}, err
			}
			return NewGamepadButton(b), nil
		case "Axis":
			if len(parts) != 3 {
				return Capability{}, fmt.Errorf("native: malformed gamepad axis capability %q", s)
			}
			a, err := parseAxis(parts[2])
			if err != nil {
				return Capability{}, err
			}
			return NewGamepadAxis(a), nil
		case "Trigger":
			if len(parts) != 3 {
				return Capability{}, fmt.Errorf("native: malformed gamepad trigger capability %q", s)
			}
			t, err := parseTrigger(parts[2])
			if err != nil {
				return Capability{}, err
			}
			return NewGamepadTrigger(t), nil
		case "Accelerometer":
			return NewGamepadAccelerometer(), nil
		case "Gyro":
			return NewGamepadGyro(), nil
		default:
			return Capability{}, fmt.Errorf("native: unknown gamepad capability %q", s)
		}
	default:
		return Capability{}, fmt.Errorf("native: unknown capability kind %q", parts[0])
	}
}

func parseButton(s string) (Button, error) {
	for b, n := range buttonNames {
		if n == s {
			return b, nil
		}
	}
	return ButtonNone, fmt.Errorf("native: unknown button %q", s)
}

func parseAxis(s string) (Axis, error) {
	for a, n := range axisNames {
		if n == s {
			return a, nil
		}
	}
	return AxisNone, fmt.Errorf("native: unknown axis %q", s)
}

func parseTrigger(s string) (Trigger, error) {
	for t, n := range triggerNames {
		if n == s {
			return t, nil
		}
	}
	return TriggerNone, fmt.Errorf("native: unknown trigger %q", s)
}

func parseMouseButton(s string) (MouseButton, error) {
	for b, n := range mouseButtonNames {
		if n == s {
			return b, nil
		}
	}
	return MouseBtnNone, fmt.Errorf("native: unknown mouse button %q", s)
}

func parseIMUSource(s string) (IMUSource, error) {
	switch s {
	case "Default", "":
		return IMUSourceDefault, nil
	case "Left":
		return IMUSourceLeft, nil
	case "Right":
		return IMUSourceRight, nil
	default:
		return IMUSourceNone, fmt.Errorf("native: unknown IMU source %q", s)
	}
}
