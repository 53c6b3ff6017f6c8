package native

// ValueType discriminates the InputValue sum type.
type ValueType uint8

const (
	ValueNone ValueType = iota
	ValueBool
	ValueFloat
	ValueVector2
	ValueVector3
	ValueTouch
)

// InputValue carries the sample associated with a Capability. Component
// pointers in Vector2/Vector3 are optional so partial updates (e.g. only X
// changed on a stick) can be expressed without forcing the other axis to a
// stale or zeroed value.
type InputValue struct {
	Type ValueType

	Bool  bool
	Float float64 // triggers/analog in [0,1]; button-as-float in {0,1}

	X, Y, Z    *float64 // Vector2/Vector3 components, in [-1,1]
	TouchIndex uint8
	IsTouching bool
	Pressure   *float64
}

func Bool(v bool) InputValue { return InputValue{Type: ValueBool, Bool: v} }
func Float(v float64) InputValue { return InputValue{Type: ValueFloat, Float: v} }

func Vector2(x, y *float64) InputValue {
	return InputValue{Type: ValueVector2, X: x, Y: y}
}

func Vector3(x, y, z *float64) InputValue {
	return InputValue{Type: ValueVector3, X: x, Y: y, Z: z}
}

func Touch(index uint8, touching bool, x, y, pressure *float64) InputValue {
	return InputValue{Type: ValueTouch, TouchIndex: index, IsTouching: touching, X: x, Y: y, Pressure: pressure}
}

func f64p(v float64) *float64 { return &v }

// AsBool interprets the value as a boolean "pressed" state, the convention
// used by chord/edge-detector logic regardless of the underlying ValueType:
// Bool uses its field directly; Float/Touch use a nonzero/"is touching" test.
func (v InputValue) AsBool() bool {
	switch v.Type {
	case ValueBool:
		return v.Bool
	case ValueFloat:
		return v.Float != 0
	case ValueTouch:
		return v.IsTouching
	default:
		return false
	}
}

// AsFloat interprets the value as a scalar magnitude, used by deadzone and
// hysteresis comparisons.
func (v InputValue) AsFloat() float64 {
	switch v.Type {
	case ValueBool:
		if v.Bool {
			return 1
		}
		return 0
	case ValueFloat:
		return v.Float
	default:
		return 0
	}
}
