package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenormalizeLeftStick(t *testing.T) {
	// Scenario 1 (spec.md §8): LeftStick x=0.8 against [-32768,32767] yields 26214.
	got := Denormalize(0.8, -32768, 32767)
	assert.Equal(t, int32(26214), got)
}

func TestNormalizeDenormalizeRoundTrip(t *testing.T) {
	ranges := [][2]int32{{-32768, 32767}, {-128, 127}, {0, 255}, {-1000, 2000}}
	values := []float64{-1, -0.5, -0.1, 0, 0.1, 0.5, 0.8, 1}
	for _, r := range ranges {
		for _, v := range values {
			raw := Denormalize(v, r[0], r[1])
			back := Normalize(raw, r[0], r[1])
			// Within 1 LSB of the target's resolution.
			lsb := 1.0 / (float64(r[1]-r[0]) / 2)
			assert.InDelta(t, v, back, lsb+1e-6, "range=%v v=%v raw=%v back=%v", r, v, raw, back)
		}
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, -1.0, ClampSigned(-5))
	assert.Equal(t, 1.0, ClampSigned(5))
}
