package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityStringRoundTrip(t *testing.T) {
	cases := []Capability{
		NewGamepadButton(ButtonSouth),
		NewGamepadButton(ButtonGuide),
		NewGamepadAxis(AxisLeftStick),
		NewGamepadTrigger(TriggerLeftTrigger),
		NewMouseMotion(),
		NewMouseButton(MouseBtnLeft),
		NewKeyboardKey("KeyEnter"),
		NewDBus(),
		NewTouchpad(),
		NewAccelerometer(IMUSourceLeft),
		NewGyroscope(IMUSourceDefault),
	}
	for _, c := range cases {
		s := c.String()
		parsed, err := ParseCapability(s)
		require.NoError(t, err, s)
		assert.Equal(t, c, parsed, s)
	}
}

func TestParseCapabilityStrict(t *testing.T) {
	_, err := ParseCapability("Gamepad:Button:NotARealButton")
	assert.Error(t, err)

	_, err = ParseCapability("TotallyUnknown")
	assert.Error(t, err)
}

func TestIsGuideButton(t *testing.T) {
	assert.True(t, NewGamepadButton(ButtonGuide).IsGuideButton())
	assert.False(t, NewGamepadButton(ButtonSouth).IsGuideButton())
	assert.False(t, NewDBus().IsGuideButton())
}

func TestIsGamepadClass(t *testing.T) {
	assert.True(t, NewGamepadAxis(AxisLeftStick).IsGamepad())
	assert.False(t, NewMouseMotion().IsGamepad())
	assert.False(t, NewDBus().IsGamepad())
}
